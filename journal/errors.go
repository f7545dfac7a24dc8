package journal

import "errors"

var (
	ErrNotFound     = errors.New("entry not found")
	ErrInvalidInput = errors.New("invalid input")

	// ErrAnalysisFailed wraps an extraction failure after the entry itself was saved.
	ErrAnalysisFailed = errors.New("entry analysis failed")

	ErrQuestionsDisabled = errors.New("question answering is not configured")
)

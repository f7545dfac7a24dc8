package analysis

import (
	"errors"
	"fmt"
)

// ErrExtraction matches every error returned by Extractor.Extract.
var ErrExtraction = errors.New("analysis extraction failed")

// Stage identifies which completion call of an extraction produced a result or error.
type Stage int

const (
	StagePrimary Stage = iota + 1
	StageRepair
)

func (s Stage) String() string {
	switch s {
	case StagePrimary:
		return "primary"
	case StageRepair:
		return "repair"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// TransportError is a failed completion call. It is never retried by the Extractor.
type TransportError struct {
	Stage Stage
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s completion: %v", e.Stage, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrExtraction }

// SchemaValidationError means both the primary and the repair completion failed to parse.
type SchemaValidationError struct {
	Primary error
	Repair  error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema validation failed after repair: primary: %v; repair: %v", e.Primary, e.Repair)
}

// Unwrap exposes the repair attempt's parse error, the last one observed.
func (e *SchemaValidationError) Unwrap() error { return e.Repair }

func (e *SchemaValidationError) Is(target error) bool { return target == ErrExtraction }

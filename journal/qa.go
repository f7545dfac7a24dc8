package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/mood-journal/analysis"
)

const (
	// QuestionContextSize is how many entries are retrieved for a question.
	QuestionContextSize = 4

	NoContextAnswer = "I couldn't find any journal entries related to that question."

	answerMaxOutputTokens = 1000
)

const initialAnswerPrompt = `Context information from the user's journal is below.
---------------------
%s
---------------------
Given the context information and no prior knowledge, answer the question: %s
`

const refineAnswerPrompt = `The original question is as follows: %s
We have provided an existing answer: %s
We have the opportunity to refine the existing answer (only if needed) with some more context below.
------------
%s
------------
Given the new context, refine the original answer to better answer the question. If the context isn't useful, return the original answer.
`

// Ask answers a question about the user's journal. The most similar entries are folded
// into the answer one at a time: the first produces a draft and each following entry
// refines it.
func (s *Service) Ask(ctx context.Context, userID, question string) (string, error) {
	if err := requireUser(userID); err != nil {
		return "", err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	if s.embedder == nil || s.answerer == nil {
		return "", ErrQuestionsDisabled
	}

	start := time.Now()
	vecs, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return "", fmt.Errorf("embed question: %w", err)
	}
	if len(vecs) != 1 {
		return "", fmt.Errorf("embed question: got %d embeddings, want 1", len(vecs))
	}
	hits, err := s.store.SearchSimilar(ctx, userID, vecs[0], QuestionContextSize)
	if err != nil {
		return "", fmt.Errorf("search entries: %w", err)
	}
	if len(hits) == 0 {
		return NoContextAnswer, nil
	}

	var answer string
	for i, hit := range hits {
		var prompt string
		if i == 0 {
			prompt = fmt.Sprintf(initialAnswerPrompt, formatContext(hit), question)
		} else {
			prompt = fmt.Sprintf(refineAnswerPrompt, question, answer, formatContext(hit))
		}
		out, err := s.answerer.Complete(ctx, analysis.CompletionRequest{
			Prompt:          prompt,
			Temperature:     0,
			MaxOutputTokens: answerMaxOutputTokens,
		})
		if err != nil {
			return "", fmt.Errorf("answer step %d: %w", i+1, err)
		}
		answer = strings.TrimSpace(out)
	}

	s.logger.Info("question_answered",
		slog.String("user_id", userID),
		slog.Int("context_entries", len(hits)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return answer, nil
}

func formatContext(hit ScoredEntry) string {
	if hit.CreatedAt.IsZero() {
		return hit.Content
	}
	return "Entry from " + hit.CreatedAt.Format("January 2, 2006") + ":\n" + hit.Content
}

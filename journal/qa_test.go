package journal_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/theimaginaryfoundation/mood-journal/journal"
)

func TestAsk_RefineChainOverMostSimilarEntries(t *testing.T) {
	t.Parallel()

	ans := &scriptedAnswerer{replies: []string{"draft answer", "refined once", "refined twice", "final answer"}}
	svc, _ := newService(t, journal.WithEmbedder(&wordEmbedder{}), journal.WithAnswerer(ans))
	ctx := context.Background()

	for _, content := range []string{
		"park park park with the dog",
		"park after work",
		"family dinner and park",
		"sleep",
	} {
		if _, err := svc.CreateEntry(ctx, "u1", content); err != nil {
			t.Fatalf("CreateEntry: %v", err)
		}
	}
	if _, err := svc.CreateEntry(ctx, "u2", "park park park"); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	got, err := svc.Ask(ctx, "u1", "  When did I go to the park?  ")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	// "sleep" is orthogonal to the question but still fills the fourth slot.
	if got != "final answer" {
		t.Fatalf("answer=%q prompts=%d", got, len(ans.prompts))
	}
	if len(ans.prompts) != journal.QuestionContextSize {
		t.Fatalf("prompts=%d", len(ans.prompts))
	}
	if !strings.Contains(ans.prompts[0], "park park park with the dog") ||
		!strings.Contains(ans.prompts[0], "answer the question: When did I go to the park?") {
		t.Fatalf("initial prompt=%q", ans.prompts[0])
	}
	if !strings.Contains(ans.prompts[1], "existing answer: draft answer") {
		t.Fatalf("refine prompt=%q", ans.prompts[1])
	}
	if !strings.Contains(ans.prompts[2], "existing answer: refined once") {
		t.Fatalf("second refine prompt=%q", ans.prompts[2])
	}
	if !strings.Contains(ans.prompts[3], "\nsleep\n") {
		t.Fatalf("least similar entry should come last: %q", ans.prompts[3])
	}
	for _, p := range ans.prompts {
		if strings.Contains(p, "park park park\n") {
			t.Fatalf("another user's entry leaked into prompt: %q", p)
		}
	}
}

func TestAsk_NoEntries(t *testing.T) {
	t.Parallel()

	ans := &scriptedAnswerer{}
	svc, _ := newService(t, journal.WithEmbedder(&wordEmbedder{}), journal.WithAnswerer(ans))
	got, err := svc.Ask(context.Background(), "u1", "anything?")
	if err != nil || got != journal.NoContextAnswer {
		t.Fatalf("got=%q err=%v", got, err)
	}
	if len(ans.prompts) != 0 {
		t.Fatalf("model called without context")
	}
}

func TestAsk_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	disabled, _ := newService(t)
	if _, err := disabled.Ask(ctx, "u1", "q"); !errors.Is(err, journal.ErrQuestionsDisabled) {
		t.Fatalf("disabled err=%v", err)
	}

	svc, _ := newService(t, journal.WithEmbedder(&wordEmbedder{}), journal.WithAnswerer(&scriptedAnswerer{}))
	if _, err := svc.Ask(ctx, "u1", "   "); !errors.Is(err, journal.ErrInvalidInput) {
		t.Fatalf("empty question err=%v", err)
	}

	broken, _ := newService(t, journal.WithEmbedder(&wordEmbedder{err: errors.New("boom")}), journal.WithAnswerer(&scriptedAnswerer{}))
	if _, err := broken.Ask(ctx, "u1", "q"); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("embed failure err=%v", err)
	}
}

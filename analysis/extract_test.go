package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type recordingCompleter struct {
	responses []string
	errs      []error
	calls     []CompletionRequest
}

func (c *recordingCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	i := len(c.calls)
	c.calls = append(c.calls, req)
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i >= len(c.responses) {
		return "", errors.New("unexpected completion call")
	}
	return c.responses[i], nil
}

var parkAnalysis = Analysis{
	Mood:           "Happy",
	Subject:        "Family",
	Negative:       false,
	Summary:        "A joyful day at the park with children.",
	Color:          "#00ff00",
	SentimentScore: 8,
}

func TestExtract_WellFormedPrimaryMakesOneCall(t *testing.T) {
	t.Parallel()

	fake := &recordingCompleter{responses: []string{FormatAnalysis(parkAnalysis)}}
	got, err := NewExtractor(fake).Extract(context.Background(), "Had a wonderful day at the park with my kids.")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != parkAnalysis {
		t.Fatalf("got=%+v want=%+v", got, parkAnalysis)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("calls=%d, want 1", len(fake.calls))
	}
	if !strings.HasSuffix(fake.calls[0].Prompt, "Had a wonderful day at the park with my kids.") {
		t.Fatalf("prompt does not end with entry text")
	}
}

func TestExtract_RepairsNonConformingPrimary(t *testing.T) {
	t.Parallel()

	fake := &recordingCompleter{responses: []string{
		"Sorry, I cannot help with that.",
		FormatAnalysis(parkAnalysis),
	}}
	got, err := NewExtractor(fake).Extract(context.Background(), "entry")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != parkAnalysis {
		t.Fatalf("got=%+v", got)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("calls=%d, want 2", len(fake.calls))
	}
	repairPrompt := fake.calls[1].Prompt
	if !strings.Contains(repairPrompt, "Sorry, I cannot help with that.") {
		t.Fatalf("repair prompt is missing the failed completion")
	}
	if !strings.Contains(repairPrompt, "not a JSON object") {
		t.Fatalf("repair prompt is missing the parse error")
	}
}

func TestExtract_FailsAfterExactlyOneRepair(t *testing.T) {
	t.Parallel()

	fake := &recordingCompleter{responses: []string{"not json", "still not json", FormatAnalysis(parkAnalysis)}}
	_, err := NewExtractor(fake).Extract(context.Background(), "entry")
	if err == nil {
		t.Fatalf("expected error")
	}
	var sve *SchemaValidationError
	if !errors.As(err, &sve) {
		t.Fatalf("err=%T %v, want *SchemaValidationError", err, err)
	}
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("err does not match ErrExtraction")
	}
	if sve.Primary == nil || sve.Repair == nil {
		t.Fatalf("primary=%v repair=%v", sve.Primary, sve.Repair)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("calls=%d, want 2", len(fake.calls))
	}
}

func TestExtract_PrimaryTransportErrorSkipsRepair(t *testing.T) {
	t.Parallel()

	timeout := errors.New("context deadline exceeded")
	fake := &recordingCompleter{errs: []error{timeout}}
	_, err := NewExtractor(fake).Extract(context.Background(), "entry")

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err=%T %v, want *TransportError", err, err)
	}
	if te.Stage != StagePrimary {
		t.Fatalf("stage=%v", te.Stage)
	}
	if !errors.Is(err, timeout) || !errors.Is(err, ErrExtraction) {
		t.Fatalf("err=%v does not wrap the transport cause", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("calls=%d, want 1", len(fake.calls))
	}
}

func TestExtract_RepairTransportError(t *testing.T) {
	t.Parallel()

	fake := &recordingCompleter{
		responses: []string{"garbage"},
		errs:      []error{nil, errors.New("429 too many requests")},
	}
	_, err := NewExtractor(fake).Extract(context.Background(), "entry")

	var te *TransportError
	if !errors.As(err, &te) || te.Stage != StageRepair {
		t.Fatalf("err=%v, want repair-stage *TransportError", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("calls=%d, want 2", len(fake.calls))
	}
}

func TestExtract_PinsSamplingParameters(t *testing.T) {
	t.Parallel()

	fake := &recordingCompleter{responses: []string{"bad", "bad", "bad", "bad"}}
	ex := &Extractor{Client: fake, MaxOutputTokens: 512}
	_, _ = ex.Extract(context.Background(), "same entry")
	_, _ = ex.Extract(context.Background(), "same entry")

	if len(fake.calls) != 4 {
		t.Fatalf("calls=%d, want 4", len(fake.calls))
	}
	for i, c := range fake.calls {
		if c.Temperature != 0 {
			t.Fatalf("call %d temperature=%v", i, c.Temperature)
		}
		if c.MaxOutputTokens != 512 {
			t.Fatalf("call %d max tokens=%d", i, c.MaxOutputTokens)
		}
	}
	if fake.calls[0] != fake.calls[2] {
		t.Fatalf("primary requests differ across identical extractions")
	}
	if fake.calls[1] != fake.calls[3] {
		t.Fatalf("repair requests differ across identical extractions")
	}
}

func TestExtract_DefaultsOutputCap(t *testing.T) {
	t.Parallel()

	fake := &recordingCompleter{responses: []string{FormatAnalysis(parkAnalysis)}}
	ex := &Extractor{Client: fake}
	if _, err := ex.Extract(context.Background(), "x"); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if fake.calls[0].MaxOutputTokens != DefaultMaxOutputTokens {
		t.Fatalf("max tokens=%d", fake.calls[0].MaxOutputTokens)
	}
}

func TestExtract_NilClient(t *testing.T) {
	t.Parallel()

	_, err := (&Extractor{}).Extract(context.Background(), "x")
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("err=%v", err)
	}
}

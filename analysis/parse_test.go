package analysis

import (
	"errors"
	"testing"
)

func TestParseAnalysis_RoundTrip(t *testing.T) {
	t.Parallel()

	cases := []Analysis{
		parkAnalysis,
		{Mood: "Anxious", Subject: "Work", Negative: true, Summary: "Deadline pressure <again> & worry.", Color: "#ff0000", SentimentScore: -6.5},
		{Mood: "Calm", Subject: "Évening walk", Negative: false, Summary: "Quiet.", Color: "", SentimentScore: 0},
	}
	for _, want := range cases {
		got, err := ParseAnalysis(FormatAnalysis(want))
		if err != nil {
			t.Fatalf("ParseAnalysis(%+v): %v", want, err)
		}
		if got != want {
			t.Fatalf("got=%+v want=%+v", got, want)
		}
	}
}

func TestParseAnalysis_AcceptsBareObjectAndSurroundingText(t *testing.T) {
	t.Parallel()

	bare := `{"mood":"Happy","subject":"Family","negative":false,"summary":"s","color":"#fff","sentimentScore":3,"extra":"ignored"}`
	got, err := ParseAnalysis("\n  " + bare + "\n")
	if err != nil {
		t.Fatalf("bare: %v", err)
	}
	if got.Mood != "Happy" || got.SentimentScore != 3 || got.Color != "#fff" {
		t.Fatalf("got=%+v", got)
	}

	wrapped := "Here is the analysis:\n```JSON\n" + bare + "\n```\nHope this helps."
	if _, err := ParseAnalysis(wrapped); err != nil {
		t.Fatalf("wrapped: %v", err)
	}
}

func TestParseAnalysis_Rejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		text  string
		field string
	}{
		{name: "empty", text: "   "},
		{name: "prose", text: "Sorry, I cannot help with that."},
		{name: "array", text: `[1,2]`},
		{name: "unterminated fence", text: "```json\n{\"mood\":\"x\"}"},
		{name: "missing field", text: `{"mood":"a","subject":"b","negative":false,"summary":"c","color":"#fff"}`, field: "sentimentScore"},
		{name: "null field", text: `{"mood":null,"subject":"b","negative":false,"summary":"c","color":"#fff","sentimentScore":1}`, field: "mood"},
		{name: "blank label", text: `{"mood":"  ","subject":"b","negative":false,"summary":"c","color":"#fff","sentimentScore":1}`, field: "mood"},
		{name: "quoted number", text: `{"mood":"a","subject":"b","negative":false,"summary":"c","color":"#fff","sentimentScore":"8"}`, field: "sentimentScore"},
		{name: "string boolean", text: `{"mood":"a","subject":"b","negative":"false","summary":"c","color":"#fff","sentimentScore":1}`, field: "negative"},
		{name: "numeric color", text: `{"mood":"a","subject":"b","negative":false,"summary":"c","color":255,"sentimentScore":1}`, field: "color"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseAnalysis(tc.text)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err=%T %v, want *ParseError", err, err)
			}
			if pe.Field != tc.field {
				t.Fatalf("field=%q want %q (%v)", pe.Field, tc.field, err)
			}
		})
	}
}

func TestParseAnalysis_AllFieldsPopulated(t *testing.T) {
	t.Parallel()

	got, err := ParseAnalysis(FormatAnalysis(DefaultAnalysis()))
	if err != nil {
		t.Fatalf("ParseAnalysis: %v", err)
	}
	if got.Mood == "" || got.Subject == "" || got.Summary == "" || got.Color == "" {
		t.Fatalf("got=%+v", got)
	}
}

func TestParseAnalysis_CaseVariantKeysDoNotOverrideCheckedFields(t *testing.T) {
	t.Parallel()

	text := "```json\n" + `{"mood":"Happy","subject":"Park","negative":false,"summary":"s","color":"#fff","sentimentScore":8,"MOOD":"","SentimentScore":"high"}` + "\n```"
	got, err := ParseAnalysis(text)
	if err != nil {
		t.Fatalf("ParseAnalysis: %v", err)
	}
	if got.Mood != "Happy" || got.SentimentScore != 8 {
		t.Fatalf("got=%+v", got)
	}
}

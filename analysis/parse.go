package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const codeFence = "```"

// ParseError reports why a completion does not match the Analysis schema.
type ParseError struct {
	// Field is empty when the failure is not tied to one field.
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return "parse analysis: " + e.Reason
	}
	return fmt.Sprintf("parse analysis: field %q: %s", e.Field, e.Reason)
}

// ParseAnalysis strictly decodes a completion into an Analysis. It reads the first fenced code
// block when one is present, otherwise the whole trimmed text, and requires every schema field
// with its declared JSON type. Unknown keys are ignored.
func ParseAnalysis(text string) (Analysis, error) {
	body, err := extractJSONBlock(text)
	if err != nil {
		return Analysis{}, err
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return Analysis{}, &ParseError{Reason: fmt.Sprintf("not a JSON object: %v", err)}
	}

	// Only the checked values are decoded; encoding/json would otherwise let a
	// case-variant key such as "MOOD" overwrite a field after validation.
	checked := make(map[string]json.RawMessage, len(analysisFields))
	for _, f := range analysisFields {
		raw, ok := obj[f.Name]
		if !ok {
			return Analysis{}, &ParseError{Field: f.Name, Reason: "missing"}
		}
		if err := checkFieldType(f, raw); err != nil {
			return Analysis{}, err
		}
		checked[f.Name] = raw
	}

	b, err := json.Marshal(checked)
	if err != nil {
		return Analysis{}, &ParseError{Reason: err.Error()}
	}
	var out Analysis
	if err := json.Unmarshal(b, &out); err != nil {
		return Analysis{}, &ParseError{Reason: err.Error()}
	}
	return out, nil
}

// FormatAnalysis renders a in exactly the shape BuildPrompt asks the model for.
func FormatAnalysis(a Analysis) string {
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		panic(err)
	}
	return codeFence + "json\n" + string(b) + "\n" + codeFence
}

func extractJSONBlock(text string) (string, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return "", &ParseError{Reason: "empty completion"}
	}
	if !strings.Contains(s, codeFence) {
		return s, nil
	}

	start := strings.Index(s, codeFence) + len(codeFence)
	rest := s[start:]
	if strings.HasPrefix(strings.ToLower(rest), "json") {
		rest = rest[len("json"):]
	}
	end := strings.Index(rest, codeFence)
	if end == -1 {
		return "", &ParseError{Reason: "unterminated code block"}
	}
	block := strings.TrimSpace(rest[:end])
	if block == "" {
		return "", &ParseError{Reason: "empty code block"}
	}
	return block, nil
}

func checkFieldType(f FieldSpec, raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return &ParseError{Field: f.Name, Reason: "null"}
	}

	switch f.Type {
	case "string":
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return &ParseError{Field: f.Name, Reason: "expected string"}
		}
		if f.MinLength > 0 && len([]rune(strings.TrimSpace(s))) < f.MinLength {
			return &ParseError{Field: f.Name, Reason: "empty"}
		}
	case "boolean":
		var v bool
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return &ParseError{Field: f.Name, Reason: "expected boolean"}
		}
	case "number", "integer":
		var v float64
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return &ParseError{Field: f.Name, Reason: "expected number"}
		}
	default:
		return &ParseError{Field: f.Name, Reason: fmt.Sprintf("unsupported schema type %q", f.Type)}
	}
	return nil
}

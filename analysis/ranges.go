package analysis

import (
	"fmt"
	"regexp"
)

const (
	MinSentimentScore = -10
	MaxSentimentScore = 10
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// RangeWarning flags a structurally valid value that breaks the domain contract.
type RangeWarning struct {
	Field   string
	Message string
}

func (w RangeWarning) String() string {
	return w.Field + ": " + w.Message
}

// CheckRanges reports sentiment scores outside [-10, 10] and colors that are not #rgb or
// #rrggbb. Values are never modified.
func CheckRanges(a Analysis) []RangeWarning {
	var out []RangeWarning
	if a.SentimentScore < MinSentimentScore || a.SentimentScore > MaxSentimentScore {
		out = append(out, RangeWarning{
			Field:   "sentimentScore",
			Message: fmt.Sprintf("%g is outside [%d, %d]", a.SentimentScore, MinSentimentScore, MaxSentimentScore),
		})
	}
	if !hexColorPattern.MatchString(a.Color) {
		out = append(out, RangeWarning{
			Field:   "color",
			Message: fmt.Sprintf("%q is not a hex color code", a.Color),
		})
	}
	return out
}

package analysis

// Analysis is the model-produced mood and sentiment record for one journal entry.
// The jsonschema_description tags are the single source for both the prompt's format
// instructions and the validator in ParseAnalysis.
type Analysis struct {
	Mood     string `json:"mood" jsonschema:"required,minLength=1" jsonschema_description:"the mood of the person who wrote the journal entry."`
	Subject  string `json:"subject" jsonschema:"required,minLength=1" jsonschema_description:"the subject of the journal entry."`
	Negative bool   `json:"negative" jsonschema:"required" jsonschema_description:"is the journal entry negative? (i.e. does it contain negative emotions?)."`
	Summary  string `json:"summary" jsonschema:"required,minLength=1" jsonschema_description:"quick summary of the entire entry."`
	Color    string `json:"color" jsonschema:"required" jsonschema_description:"a hexadecimal color code that represents the mood of the entry. Example #0101fe for blue representing happiness."`

	// SentimentScore is expected in [-10, 10]; CheckRanges reports values outside it.
	SentimentScore float64 `json:"sentimentScore" jsonschema:"required" jsonschema_description:"sentiment of the text and rated on a scale from -10 to 10, where -10 is extremely negative, 0 is neutral, and 10 is extremely positive."`
}

// DefaultAnalysis is the placeholder stored for an entry before its first successful extraction.
func DefaultAnalysis() Analysis {
	return Analysis{
		Mood:           "Neutral",
		Subject:        "None",
		Negative:       false,
		Summary:        "None",
		Color:          "#0101fe",
		SentimentScore: 0,
	}
}

// CompletionRequest is one call to a completion endpoint.
type CompletionRequest struct {
	Prompt          string
	Temperature     float64
	MaxOutputTokens int
}

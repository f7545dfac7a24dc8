package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

const analyzePromptHeader = `Analyze the following journal entry. Follow the instructions and format your response to match the format instructions, no matter what!`

const formatInstructionsHeader = `You must format your output as a JSON object that adheres to the JSON Schema below.
Your output will be parsed and type-checked against this schema, so every field must be present with the declared type, and there must be no trailing commas or comments.

FIELDS:`

const formatInstructionsTail = `Return only a markdown code block containing the JSON object, including the enclosing ` + "```json" + ` and ` + "```" + ` lines. Do not include any other text.`

const repairPromptHeader = `The completion below should have matched the instructions, but it could not be parsed.
Reformat it so that it satisfies the instructions. Keep the content and values the same wherever they are valid.`

// FormatInstructions describes the required output of an extraction, field by field,
// followed by the JSON Schema the parser enforces.
func FormatInstructions() string {
	var b strings.Builder
	b.WriteString(formatInstructionsHeader)
	b.WriteString("\n")
	for _, f := range analysisFields {
		fmt.Fprintf(&b, "- %s (%s", f.Name, f.Type)
		if f.MinLength > 0 {
			b.WriteString(", non-empty")
		}
		fmt.Fprintf(&b, "): %s\n", f.Description)
	}

	schemaJSON, err := json.Marshal(analysisSchema)
	if err != nil {
		panic(err)
	}
	b.WriteString("\nJSON SCHEMA:\n```json\n")
	b.Write(schemaJSON)
	b.WriteString("\n```\n\n")
	b.WriteString(formatInstructionsTail)
	return b.String()
}

// BuildPrompt renders the extraction prompt for one entry. The entry text is appended verbatim.
func BuildPrompt(entryText string) string {
	var b strings.Builder
	b.WriteString(analyzePromptHeader)
	b.WriteString("\n")
	b.WriteString(FormatInstructions())
	b.WriteString("\n\nJOURNAL ENTRY:\n")
	b.WriteString(entryText)
	return b.String()
}

// BuildRepairPrompt asks the model to reformat a completion that failed ParseAnalysis.
func BuildRepairPrompt(completion string, parseErr error) string {
	reason := "unknown parse error"
	if parseErr != nil {
		reason = parseErr.Error()
	}

	var b strings.Builder
	b.WriteString(repairPromptHeader)
	b.WriteString("\n\nINSTRUCTIONS:\n--------------\n")
	b.WriteString(FormatInstructions())
	b.WriteString("\n--------------\n\nCOMPLETION:\n--------------\n")
	b.WriteString(completion)
	b.WriteString("\n--------------\n\nERROR:\n--------------\n")
	b.WriteString(reason)
	b.WriteString("\n--------------\n\n")
	b.WriteString("Respond only with an answer that satisfies the instructions above.")
	return b.String()
}

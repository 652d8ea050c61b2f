package qa_service

import (
	"encoding/json"
	"strings"

	"github.com/serisow/docqa/pipeline_type"
)

const noAnswer = "No answer generated."

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(raw string) string {
	clean := strings.TrimSpace(raw)
	if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
		if nl := strings.IndexByte(clean, '\n'); nl >= 0 && !strings.ContainsAny(clean[:nl], "{[") {
			// drop the language tag on the opening fence
			clean = clean[nl+1:]
		} else {
			clean = strings.TrimPrefix(clean, "json")
		}
	}
	clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	return strings.TrimSpace(clean)
}

// ParseAnswer decodes model output into a Parsed result. Output that is
// not a JSON object with string quotes comes back Unparsed, carrying the
// raw text as the answer.
func ParseAnswer(raw string) pipeline_type.QAResult {
	var out struct {
		Answer *string  `json:"answer"`
		Quotes []string `json:"quotes"`
	}
	clean := stripCodeFence(raw)
	// null decodes into the zero struct without error
	if !strings.HasPrefix(clean, "{") {
		return pipeline_type.Unparsed(raw)
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return pipeline_type.Unparsed(raw)
	}

	answer := noAnswer
	if out.Answer != nil {
		answer = *out.Answer
	}
	return pipeline_type.Parsed(answer, out.Quotes)
}

// FormatHistory serializes chat history, oldest first, as alternating
// Human/Assistant lines.
func FormatHistory(history []pipeline_type.ChatHistoryEntry) string {
	lines := make([]string, 0, len(history))
	for _, h := range history {
		lines = append(lines, "Human: "+h.Query+"\nAssistant: "+h.Answer)
	}
	return strings.Join(lines, "\n")
}

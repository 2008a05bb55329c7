package llm

import (
	"encoding/json"
	"fmt"

	"github.com/ppetrov/opinia/internal/model"
)

// maxPromptRecords caps how many records one prompt embeds. Larger batches
// are truncated to bound prompt size and latency; callers split batches if
// they need every record annotated.
const maxPromptRecords = 20

// BuildPrompt constructs the default annotation prompt for a record batch.
// The instruction demands a bare JSON array so the extractor's direct parse
// usually succeeds; the tolerant fallbacks cover models that ignore it.
func BuildPrompt(records []model.FeedbackRecord) string {
	prompt := fmt.Sprintf(`Label each feedback record below. For every record derive:
- "theme": a short topic label (one or two words, e.g. "Billing", "App Performance")
- "sentiment": exactly one of "Positive", "Neutral", "Negative"
- "urgency": exactly one of "High", "Medium", "Low"

Respond with ONLY a JSON array of objects with fields id, theme, sentiment, urgency.
No markdown fences, no commentary, no extra fields. Example:
[{"id": 1, "theme": "Billing", "sentiment": "Negative", "urgency": "High"}]

Include every record id exactly once.

Records:%s`, joinRecords(records))

	return prompt
}

// joinRecords serializes records one per line, capped at maxPromptRecords
func joinRecords(records []model.FeedbackRecord) string {
	if len(records) == 0 {
		return "\n(No records provided)"
	}

	result := ""
	for i, record := range records {
		if i >= maxPromptRecords {
			result += fmt.Sprintf("\n... and %d more records", len(records)-maxPromptRecords)
			break
		}
		data, err := json.Marshal(record)
		if err != nil {
			// Marshaling a plain struct only fails on exotic field types;
			// fall back to a lossy line rather than dropping the record.
			result += fmt.Sprintf("\n- {\"id\": %d, \"source\": %q, \"message\": %q}", record.ID, record.Source, record.Message)
			continue
		}
		result += "\n- " + string(data)
	}
	return result
}

// RecordIDs extracts the batch's ids, used for extractor coverage checks and
// for building default annotations on the failure path.
func RecordIDs(records []model.FeedbackRecord) []int {
	ids := make([]int, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

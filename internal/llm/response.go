package llm

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ExtractText normalizes a provider payload into plain text. Endpoints
// disagree about response shape: some return a bare JSON string, some an
// object with the text under "response" (Ollama-style) or "output_text"
// (Responses-API-style). The rest of the pipeline only ever sees the plain
// string this returns.
//
// Resolution order: JSON string value, object "response" field, object
// "output_text" field, then the payload itself as a last resort.
func ExtractText(payload []byte) string {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var shaped struct {
		Response   string `json:"response"`
		OutputText string `json:"output_text"`
	}
	if err := json.Unmarshal(trimmed, &shaped); err == nil {
		if text := strings.TrimSpace(shaped.Response); text != "" {
			return text
		}
		if text := strings.TrimSpace(shaped.OutputText); text != "" {
			return text
		}
	}

	return strings.TrimSpace(string(trimmed))
}

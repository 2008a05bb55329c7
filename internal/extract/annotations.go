package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppetrov/opinia/internal/model"
)

// Extractor turns raw, possibly malformed model output into typed annotations
type Extractor struct{}

// NewExtractor creates a new annotation extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses raw model output into an annotation list plus a diagnostic
// string for observability. It never returns an error: unparseable output is a
// terminal soft-failure yielding an empty list with the raw text as diagnostic.
//
// Parse order:
//  1. The whole text as a JSON array.
//  2. The substring from the first '[' to the last ']'. The slice is
//     deliberately non-nesting-aware; models wrap a single array in
//     commentary, and the first/last bracket contract handles that.
//  3. Give up: empty list, raw text as diagnostic.
//
// Elements with missing or out-of-range fields are coerced to defaults during
// decoding rather than dropped, so downstream counts stay stable.
func (e *Extractor) Extract(raw string, expectedIDs []int) ([]model.Annotation, string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return []model.Annotation{}, "model produced no output"
	}

	if annotations, ok := parseAnnotationArray(trimmed); ok {
		return annotations, coverageNote(annotations, expectedIDs)
	}

	if sub, ok := bracketSubstring(trimmed); ok {
		if annotations, ok := parseAnnotationArray(sub); ok {
			return annotations, coverageNote(annotations, expectedIDs)
		}
	}

	return []model.Annotation{}, raw
}

// parseAnnotationArray attempts a strict array decode. Per-element tolerance
// (lax ids, enum coercion) lives in Annotation.UnmarshalJSON.
func parseAnnotationArray(s string) ([]model.Annotation, bool) {
	var annotations []model.Annotation
	if err := json.Unmarshal([]byte(s), &annotations); err != nil {
		return nil, false
	}
	if annotations == nil {
		annotations = []model.Annotation{}
	}
	return annotations, true
}

// bracketSubstring slices from the first '[' to the last ']' in the text.
// Returns false when no such span exists.
func bracketSubstring(s string) (string, bool) {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// coverageNote reports id mismatches between the parsed annotations and the
// record batch. Mismatches are resolved silently at merge time; the note only
// makes them inspectable.
func coverageNote(annotations []model.Annotation, expectedIDs []int) string {
	if len(expectedIDs) == 0 {
		return ""
	}

	expected := make(map[int]bool, len(expectedIDs))
	for _, id := range expectedIDs {
		expected[id] = true
	}

	got := make(map[int]bool, len(annotations))
	var invented []int
	for _, a := range annotations {
		if !expected[a.ID] && !got[a.ID] {
			invented = append(invented, a.ID)
		}
		got[a.ID] = true
	}

	var missing []int
	for _, id := range expectedIDs {
		if !got[id] {
			missing = append(missing, id)
		}
	}

	var notes []string
	if len(missing) > 0 {
		notes = append(notes, fmt.Sprintf("model skipped ids %v", missing))
	}
	if len(invented) > 0 {
		notes = append(notes, fmt.Sprintf("model returned unknown ids %v", invented))
	}
	return strings.Join(notes, "; ")
}

// DefaultAnnotations builds the all-defaults list used when the model call
// itself fails and no output text exists to parse.
func DefaultAnnotations(ids []int) []model.Annotation {
	annotations := make([]model.Annotation, len(ids))
	for i, id := range ids {
		annotations[i] = model.DefaultAnnotation(id)
	}
	return annotations
}

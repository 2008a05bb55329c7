package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// FeedbackRecord represents a single piece of raw user feedback
type FeedbackRecord struct {
	ID        int       `json:"id"`        // Unique within a batch
	Source    string    `json:"source"`    // Channel the feedback arrived from (e.g., "Twitter", "Email")
	Message   string    `json:"message"`   // Free-text feedback body
	Timestamp time.Time `json:"timestamp"` // When the feedback was recorded
}

// Sentiment classifies the emotional tone of a feedback record
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// NormalizeSentiment maps a raw model-produced value onto the allowed set.
// Unknown or empty values fall back to Neutral so downstream counts stay stable.
func NormalizeSentiment(raw string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive":
		return SentimentPositive
	case "negative":
		return SentimentNegative
	case "neutral":
		return SentimentNeutral
	default:
		return SentimentNeutral
	}
}

// Urgency classifies how quickly a feedback record needs attention
type Urgency string

const (
	UrgencyHigh   Urgency = "High"
	UrgencyMedium Urgency = "Medium"
	UrgencyLow    Urgency = "Low"
)

// NormalizeUrgency maps a raw model-produced value onto the allowed set.
// Unknown or empty values fall back to Medium.
func NormalizeUrgency(raw string) Urgency {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "urgent":
		return UrgencyHigh
	case "low":
		return UrgencyLow
	case "medium":
		return UrgencyMedium
	default:
		return UrgencyMedium
	}
}

// Annotation holds the machine-derived labels for one feedback record.
// The id references a FeedbackRecord id, but referential integrity is not
// guaranteed: the model may hallucinate, omit, or duplicate ids.
type Annotation struct {
	ID        int       `json:"id"`
	Theme     string    `json:"theme"`
	Sentiment Sentiment `json:"sentiment"`
	Urgency   Urgency   `json:"urgency"`
}

// annotationWire mirrors Annotation with lax field types so that one
// malformed element cannot fail the decode of a whole array.
type annotationWire struct {
	ID        json.RawMessage `json:"id"`
	Theme     string          `json:"theme"`
	Sentiment string          `json:"sentiment"`
	Urgency   string          `json:"urgency"`
}

// UnmarshalJSON decodes an annotation tolerantly: ids may arrive as JSON
// numbers or numeric strings, missing fields take defaults, and out-of-range
// sentiment/urgency values are coerced rather than rejected.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	var wire annotationWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	a.ID = parseID(wire.ID)
	a.Theme = strings.TrimSpace(wire.Theme)
	if a.Theme == "" {
		a.Theme = DefaultTheme
	}
	a.Sentiment = NormalizeSentiment(wire.Sentiment)
	a.Urgency = NormalizeUrgency(wire.Urgency)
	return nil
}

// parseID accepts a JSON number or a numeric string. Anything else maps to
// zero, which matches no record and is resolved by the merge default policy.
func parseID(raw json.RawMessage) int {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0
	}

	var n int
	if err := json.Unmarshal(trimmed, &n); err == nil {
		return n
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}

	return 0
}

// DefaultTheme is the theme assigned when the model provides none
const DefaultTheme = "Unknown"

// DefaultAnnotation returns the fallback annotation substituted for records
// the model did not (usably) annotate.
func DefaultAnnotation(id int) Annotation {
	return Annotation{
		ID:        id,
		Theme:     DefaultTheme,
		Sentiment: SentimentNeutral,
		Urgency:   UrgencyMedium,
	}
}

// EnrichedRecord is a feedback record combined with its annotation, real or
// default. Derived data: always rebuilt from the two sources, never mutated.
type EnrichedRecord struct {
	ID        int       `json:"id"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Theme     string    `json:"theme"`
	Sentiment Sentiment `json:"sentiment"`
	Urgency   Urgency   `json:"urgency"`
	Annotated bool      `json:"annotated"` // false when carrying the default annotation
}

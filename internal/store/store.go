// Package store reads feedback records from their source of truth.
//
// Every store yields the same flat record shape regardless of backend so the
// rest of the pipeline never cares where feedback came from. A failing store
// is a hard error: callers must be able to distinguish "the source broke"
// from "the source legitimately holds zero records", which is an empty slice
// and a nil error.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ppetrov/opinia/internal/model"
)

// Store reads feedback records from a backing source
type Store interface {
	// Query returns all records in source order. Zero records is not an error.
	Query(ctx context.Context) ([]model.FeedbackRecord, error)

	// Kind identifies the backend ("sqlite", "file", "html", "url")
	Kind() string
}

// NewStore creates a record store based on configuration
func NewStore(cfg model.StoreConfig) (Store, error) {
	kind := strings.ToLower(cfg.Kind)

	switch kind {
	case "sqlite":
		return NewSQLiteStore(cfg)

	case "file":
		return NewFileStore(cfg.Path), nil

	case "html":
		return NewHTMLExportStore(cfg.Path), nil

	case "url":
		return NewURLStore(cfg), nil

	default:
		return nil, fmt.Errorf("unknown store kind: %s (supported: sqlite, file, html, url)", cfg.Kind)
	}
}

// timestampLayouts covers the formats feedback exports use in practice
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp parses an export timestamp, returning the zero time for
// values it cannot recognize. Timestamps are informational; a bad one never
// rejects the record.
func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

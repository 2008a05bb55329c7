package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppetrov/opinia/internal/model"
)

// FileStore reads feedback records from a JSON file on disk
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Kind identifies the backend
func (s *FileStore) Kind() string {
	return "file"
}

// Query reads and parses the feedback file
func (s *FileStore) Query(ctx context.Context) ([]model.FeedbackRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading feedback file %s: %w", s.path, err)
	}

	records, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("parsing feedback file %s: %w", s.path, err)
	}

	return records, nil
}

// decodeRecords parses a feedback export body. Exports are either a bare
// JSON array or an object wrapping the array under "records".
func decodeRecords(data []byte) ([]model.FeedbackRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []model.FeedbackRecord{}, nil
	}

	var records []model.FeedbackRecord
	arrayErr := json.Unmarshal(trimmed, &records)
	if arrayErr == nil {
		if records == nil {
			records = []model.FeedbackRecord{}
		}
		return records, nil
	}

	var wrapped struct {
		Records []model.FeedbackRecord `json:"records"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err == nil && wrapped.Records != nil {
		return wrapped.Records, nil
	}

	return nil, arrayErr
}

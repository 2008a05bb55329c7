package store

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppetrov/opinia/internal/model"
)

func TestNewStore_File(t *testing.T) {
	s, err := NewStore(model.StoreConfig{Kind: "file", Path: "feedback.json"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s.Kind() != "file" {
		t.Errorf("Expected file store, got %s", s.Kind())
	}
}

func TestNewStore_HTML(t *testing.T) {
	s, err := NewStore(model.StoreConfig{Kind: "html", Path: "export.html"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s.Kind() != "html" {
		t.Errorf("Expected html store, got %s", s.Kind())
	}
}

func TestNewStore_URL(t *testing.T) {
	s, err := NewStore(model.StoreConfig{Kind: "url", Path: "https://example.com/export.json"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s.Kind() != "url" {
		t.Errorf("Expected url store, got %s", s.Kind())
	}
}

func TestNewStore_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.db")

	s, err := NewStore(model.StoreConfig{Kind: "sqlite", Path: path})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s.Kind() != "sqlite" {
		t.Errorf("Expected sqlite store, got %s", s.Kind())
	}
	if closer, ok := s.(*SQLiteStore); ok {
		_ = closer.Close()
	}
}

func TestNewStore_CaseInsensitiveKind(t *testing.T) {
	s, err := NewStore(model.StoreConfig{Kind: "FILE", Path: "feedback.json"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s.Kind() != "file" {
		t.Errorf("Expected file store, got %s", s.Kind())
	}
}

func TestNewStore_Unknown(t *testing.T) {
	_, err := NewStore(model.StoreConfig{Kind: "redis"})
	if err == nil {
		t.Fatal("Expected error for unknown kind, got nil")
	}
	if !strings.Contains(err.Error(), "supported: sqlite, file, html, url") {
		t.Errorf("Expected supported kinds in error, got %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", "2024-03-01T10:30:00Z", time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"sqlite datetime", "2024-03-01 10:30:00", time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"date only", "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"empty", "", time.Time{}},
		{"garbage", "yesterday-ish", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTimestamp(tt.raw)
			if !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

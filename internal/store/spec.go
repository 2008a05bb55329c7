package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ppetrov/opinia/internal/model"
)

// ParseSourceSpec resolves a source argument into store configuration.
// Explicit "kind:path" prefixes win; bare http(s) URLs become url stores;
// anything else is a path whose kind is inferred from the extension.
// Settings other than kind and path are carried over from base.
func ParseSourceSpec(spec string, base model.StoreConfig) (model.StoreConfig, error) {
	cfg := base

	spec = strings.TrimSpace(spec)
	if spec == "" {
		return cfg, fmt.Errorf("empty source")
	}

	if strings.HasPrefix(spec, "http://") || strings.HasPrefix(spec, "https://") {
		cfg.Kind = "url"
		cfg.Path = spec
		return cfg, nil
	}

	if i := strings.Index(spec, ":"); i > 0 {
		kind := strings.ToLower(spec[:i])
		switch kind {
		case "sqlite", "file", "html", "url":
			cfg.Kind = kind
			cfg.Path = spec[i+1:]
			return cfg, nil
		}
		// Unrecognized prefix: treat the whole spec as a path
	}

	switch strings.ToLower(filepath.Ext(spec)) {
	case ".db", ".sqlite", ".sqlite3":
		cfg.Kind = "sqlite"
	case ".html", ".htm":
		cfg.Kind = "html"
	default:
		cfg.Kind = "file"
	}
	cfg.Path = spec

	return cfg, nil
}

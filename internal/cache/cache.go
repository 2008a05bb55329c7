// Package cache stores raw model responses so repeated runs over the same
// feedback batch do not pay for a second model call. Entries are keyed by
// provider, model, and batch content; changing any of the three misses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ppetrov/opinia/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// AnnotationKey generates the cache key for one annotation batch
func AnnotationKey(provider, modelName string, records []model.FeedbackRecord) string {
	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write([]byte(modelName))
	h.Write([]byte{0})
	for _, r := range records {
		// Unit separator between fields, record separator between records
		fmt.Fprintf(h, "%d\x1f%s\x1f%s\x1e", r.ID, r.Source, r.Message)
	}
	return "opinia:v1:" + hex.EncodeToString(h.Sum(nil))
}

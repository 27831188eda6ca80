// Package cache provides pluggable result caching for detection runs.
//
// Three backends are available: FileCache for CLI usage, RedisCache for the
// serve mode, and NullCache to disable caching. Keys are derived from content
// hashes through a Keyer, so identical model/configuration pairs hit the
// cache regardless of where the model file lives.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values per cached stage.
const (
	// TTLDetection applies to full detection results. Detection is
	// deterministic for a fixed configuration, so entries stay valid until
	// evicted.
	TTLDetection = 7 * 24 * time.Hour
)

// Cache is the storage interface shared by all backends.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present; absence is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a time-to-live. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// DetectionKeyOpts are the run parameters that change detection output and
// therefore belong in the cache key.
type DetectionKeyOpts struct {
	MaxRounds int      `json:"max_rounds"`
	Detectors []string `json:"detectors"` // enabled detector names, sorted
	Score     string   `json:"score"`
}

// Keyer generates cache keys for the cacheable stages.
type Keyer interface {
	// ModelKey identifies a parsed model by its content hash.
	ModelKey(contentHash string) string

	// DetectionKey identifies a full detection result for one model under
	// one configuration.
	DetectionKey(modelHash string, opts DetectionKeyOpts) string

	// ScoreKey identifies one score value of one decomposition.
	ScoreKey(decompID, score string) string
}

// DefaultKeyer is the standard key scheme.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// ModelKey generates a key for a parsed model.
func (k *DefaultKeyer) ModelKey(contentHash string) string {
	return "model:" + contentHash
}

// DetectionKey generates a key for a detection result.
func (k *DefaultKeyer) DetectionKey(modelHash string, opts DetectionKeyOpts) string {
	return hashKey("detect", modelHash, opts)
}

// ScoreKey generates a key for a cached score value.
func (k *DefaultKeyer) ScoreKey(decompID, score string) string {
	return "score:" + decompID + ":" + score
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)

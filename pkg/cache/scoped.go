package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation. The serve
// command's --cache-scope flag uses this to keep per-deployment caches
// separate on a shared Redis.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "prod:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ModelKey generates a prefixed key for a parsed model.
func (k *ScopedKeyer) ModelKey(contentHash string) string {
	return k.prefix + k.inner.ModelKey(contentHash)
}

// DetectionKey generates a prefixed key for a detection result.
func (k *ScopedKeyer) DetectionKey(modelHash string, opts DetectionKeyOpts) string {
	return k.prefix + k.inner.DetectionKey(modelHash, opts)
}

// ScoreKey generates a prefixed key for a cached score value.
func (k *ScopedKeyer) ScoreKey(decompID, score string) string {
	return k.prefix + k.inner.ScoreKey(decompID, score)
}

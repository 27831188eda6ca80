package detect

import (
	"context"
	"fmt"
	"slices"

	"github.com/structmine/structmine/pkg/decomp"
)

// Outcome is the result of a single detector call. A fatal condition is
// reported through the error return instead and aborts the whole run; there
// is no partial-success variant. A detector either commits a fully consistent
// mutation and reports [Found], or leaves its input untouched and reports
// [DidNotFind].
type Outcome int

const (
	// DidNotFind means the detector made no applicable change.
	DidNotFind Outcome = iota
	// Found means the detector produced or rewrote at least one decomposition.
	Found
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case DidNotFind:
		return "didnotfind"
	default:
		return "unknown"
	}
}

// Detector is the minimal surface every detector implements: static metadata
// plus the propagate capability. Detectors that cannot usefully propagate
// return [DidNotFind] unconditionally and implement [Finisher] or
// [Postprocessor] instead.
//
// Propagate mutates p in place. Ownership is not transferred; the pipeline
// hands each detector a private working copy and decides afterwards which
// pool the result belongs to.
type Detector interface {
	// Name identifies the detector in provenance chains and configuration.
	Name() string
	// Tag is the detector's single-character marker.
	Tag() rune
	// Priority orders detectors within a round; higher runs first.
	Priority() int

	Propagate(ctx context.Context, p *decomp.Partial) (Outcome, error)
}

// Finisher is implemented by detectors that can force any decomposition to
// completeness. The pipeline calls Finish when the round budget is exhausted
// and open decompositions remain.
type Finisher interface {
	Detector
	Finish(ctx context.Context, p *decomp.Partial) (Outcome, error)
}

// Postprocessor is implemented by detectors that improve complete
// decompositions without breaking completeness.
type Postprocessor interface {
	Detector
	Postprocess(ctx context.Context, p *decomp.Partial) (Outcome, error)
}

// Config holds the per-detector settings consumed by the pipeline.
type Config struct {
	// Enabled gates the propagate capability.
	Enabled bool
	// FinishingEnabled gates the finish capability.
	FinishingEnabled bool
	// PostprocessingEnabled gates the postprocess capability.
	PostprocessingEnabled bool
	// MinRound and MaxRound bound the rounds (inclusive) in which the
	// detector propagates. A MaxRound of zero means round zero only.
	MinRound int
	MaxRound int
	// Freq calls the detector every Freq-th eligible round; zero or one
	// means every round.
	Freq int
	// SkipIfFound skips propagation once any finished decomposition exists.
	SkipIfFound bool
}

// DefaultConfig enables all capabilities for every round.
func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		FinishingEnabled:      true,
		PostprocessingEnabled: true,
		MinRound:              0,
		MaxRound:              DefaultMaxRounds - 1,
		Freq:                  1,
	}
}

// eligible reports whether the detector propagates in the given round.
func (c Config) eligible(round int) bool {
	if !c.Enabled || round < c.MinRound || round > c.MaxRound {
		return false
	}
	freq := c.Freq
	if freq < 1 {
		freq = 1
	}
	return (round-c.MinRound)%freq == 0
}

// Entry pairs a registered detector with its configuration.
type Entry struct {
	Detector Detector
	Config   Config
}

// Registry is an explicit, pipeline-owned collection of detectors kept in a
// stable priority order. Registration order is irrelevant for dispatch and
// only breaks priority ties.
type Registry struct {
	entries []Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Register adds a detector. Registering two detectors with the same name is
// an error.
func (r *Registry) Register(d Detector, cfg Config) error {
	for _, e := range r.entries {
		if e.Detector.Name() == d.Name() {
			return fmt.Errorf("detector %q already registered", d.Name())
		}
	}
	r.entries = append(r.entries, Entry{Detector: d, Config: cfg})
	slices.SortStableFunc(r.entries, func(a, b Entry) int {
		return b.Detector.Priority() - a.Detector.Priority()
	})
	return nil
}

// Entries returns the registered detectors in priority order, highest first.
func (r *Registry) Entries() []Entry { return slices.Clone(r.entries) }

// Len returns the number of registered detectors.
func (r *Registry) Len() int { return len(r.entries) }

// Lookup returns the entry for name, or false if no such detector exists.
func (r *Registry) Lookup(name string) (Entry, bool) {
	for _, e := range r.entries {
		if e.Detector.Name() == name {
			return e, true
		}
	}
	return Entry{}, false
}

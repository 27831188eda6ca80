// Package pipeline provides the core detection pipeline for Structmine.
//
// This package implements the complete parse → detect → score pipeline that
// can be used by CLI and API components. By centralizing this logic, we
// ensure consistent behavior across all entry points and avoid code
// duplication.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Parse: Read an MPS model and build its incidence matrix
//  2. Detect: Run the detector rounds over the decomposition pools
//  3. Score: Rank the finished decompositions
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Path:  "model.mps",
//	    Score: "classic",
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	best := result.Best
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/structmine/structmine/pkg/cache"
	"github.com/structmine/structmine/pkg/decomp"
	"github.com/structmine/structmine/pkg/detect"
	"github.com/structmine/structmine/pkg/mip"
	"github.com/structmine/structmine/pkg/score"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultScore ranks finished decompositions unless overridden.
	DefaultScore = "classic"

	// DefaultMaxRounds matches detect.DefaultMaxRounds.
	DefaultMaxRounds = detect.DefaultMaxRounds
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the detection pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Parse options. Path reads an MPS file; Source takes precedence when
	// non-empty and carries raw MPS text (Name labels it).
	Path   string `json:"path,omitempty"`
	Source []byte `json:"source,omitempty"`
	Name   string `json:"name,omitempty"`

	// Detection options
	MaxRounds          int      `json:"max_rounds,omitempty"`
	Detectors          []string `json:"detectors,omitempty"` // enabled built-ins; empty means all
	UseConssAdjacency  bool     `json:"use_conss_adjacency,omitempty"`
	AdjacencyThreshold int      `json:"adjacency_threshold,omitempty"`
	BlockCandidates    []int    `json:"block_candidates,omitempty"` // user block-count votes
	Refresh            bool     `json:"refresh,omitempty"`          // bypass the detection cache

	// Score options
	Score string `json:"score,omitempty"`

	// Runtime options (not serialized)
	Logger   *log.Logger      `json:"-"`
	Registry *detect.Registry `json:"-"` // overrides the built-in registry

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect
// as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Path == "" && len(o.Source) == 0 {
		return fmt.Errorf("path or source is required")
	}
	if o.MaxRounds < 0 {
		return fmt.Errorf("max_rounds must be non-negative")
	}
	if o.MaxRounds == 0 {
		o.MaxRounds = DefaultMaxRounds
	}
	if o.AdjacencyThreshold == 0 {
		o.AdjacencyThreshold = decomp.DefaultAdjacencyThreshold
	}
	if o.Score == "" {
		o.Score = DefaultScore
	}
	if _, err := score.ByName(o.Score); err != nil {
		return err
	}
	if o.Registry == nil {
		reg, err := registryFor(o.Detectors)
		if err != nil {
			return err
		}
		o.Registry = reg
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// registryFor builds the built-in registry restricted to the named
// detectors. An empty list enables everything.
func registryFor(names []string) (*detect.Registry, error) {
	all := detect.DefaultRegistry()
	if len(names) == 0 {
		return all, nil
	}
	reg := detect.NewRegistry()
	for _, name := range names {
		e, ok := all.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown detector %q", name)
		}
		if err := reg.Register(e.Detector, e.Config); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// EnabledDetectors returns the names of the detectors this configuration
// runs, sorted by priority. Part of the detection cache key.
func (o *Options) EnabledDetectors() []string {
	if o.Registry == nil {
		return o.Detectors
	}
	names := make([]string, 0, o.Registry.Len())
	for _, e := range o.Registry.Entries() {
		names = append(names, e.Detector.Name())
	}
	return names
}

// DetectionKeyOpts returns cache key options for the detection stage.
func (o *Options) DetectionKeyOpts() cache.DetectionKeyOpts {
	return cache.DetectionKeyOpts{
		MaxRounds: o.MaxRounds,
		Detectors: o.EnabledDetectors(),
		Score:     o.Score,
	}
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// Model is the parsed MIP model.
	Model *mip.Model

	// Matrix is the incidence matrix owning all decompositions.
	Matrix *decomp.Matrix

	// ModelHash is the content hash of the model source.
	ModelHash string

	// Decomps are the finished decompositions, best first.
	Decomps []score.Ranked

	// Best is the highest-ranked decomposition, nil when nothing finished.
	Best *decomp.Partial

	// BestValue is Best's score value.
	BestValue float64

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NConss     int
	NVars      int
	NNonzeros  int
	ParseTime  time.Duration
	DetectTime time.Duration
	ScoreTime  time.Duration
	Detect     detect.Stats
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	DetectionHit bool // Whether the finished pool came from cache
}

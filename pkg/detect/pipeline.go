package detect

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/structmine/structmine/pkg/decomp"
)

// DefaultMaxRounds is the default number of propagation rounds.
const DefaultMaxRounds = 5

// Options configures a detection run.
type Options struct {
	// MaxRounds is the number of propagation rounds before forced finishing.
	MaxRounds int

	// Logger receives per-call debug output. Defaults to a discard logger.
	Logger *log.Logger

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks fields and applies defaults. The method is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.MaxRounds < 0 {
		return fmt.Errorf("max rounds must be non-negative, got %d", o.MaxRounds)
	}
	if o.MaxRounds == 0 {
		o.MaxRounds = DefaultMaxRounds
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Stats reports what a detection run did.
type Stats struct {
	Rounds           int
	PropagateCalls   int
	FinishCalls      int
	PostprocessCalls int
	Found            int // successful calls across all capabilities
	PropagateTime    time.Duration
	FinishTime       time.Duration
	PostprocessTime  time.Duration
}

// Pipeline drives registered detectors over the decomposition pools of one
// incidence matrix. Runs are strictly sequential: one detector call mutates
// one decomposition at a time, and pools change only between calls.
type Pipeline struct {
	m    *decomp.Matrix
	reg  *Registry
	opts Options
}

// NewPipeline builds a pipeline over m using the given registry.
func NewPipeline(m *decomp.Matrix, reg *Registry, opts Options) (*Pipeline, error) {
	if m == nil {
		return nil, fmt.Errorf("incidence matrix is required")
	}
	if reg == nil || reg.Len() == 0 {
		return nil, fmt.Errorf("at least one detector is required")
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Pipeline{m: m, reg: reg, opts: opts}, nil
}

// Run executes rounds 0..MaxRounds-1 of propagation over the open pool, then
// forces every surviving open decomposition to completeness through the
// finishing-capable detectors, then lets postprocessors improve the finished
// pool. An empty open pool is seeded with the all-open root decomposition.
//
// A detector error is fatal and aborts the run; DidNotFind results are
// normal control flow. On return the finished pool holds every distinct
// complete decomposition found.
func (pl *Pipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	if len(pl.m.OpenDecomps()) == 0 {
		if _, err := pl.m.AddToOpen(pl.m.NewPartial()); err != nil {
			return stats, err
		}
	}

	for round := 0; round < pl.opts.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Rounds++
		if err := pl.propagateRound(ctx, round, &stats); err != nil {
			return stats, err
		}
	}

	if err := pl.finishOpen(ctx, &stats); err != nil {
		return stats, err
	}
	if err := pl.postprocessFinished(ctx, &stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func (pl *Pipeline) propagateRound(ctx context.Context, round int, stats *Stats) error {
	for _, e := range pl.reg.Entries() {
		if !e.Config.eligible(round) {
			continue
		}
		if e.Config.SkipIfFound && len(pl.m.FinishedDecomps()) > 0 {
			continue
		}
		for _, p := range pl.m.OpenDecomps() {
			if err := ctx.Err(); err != nil {
				return err
			}
			cand := p.Copy()
			start := time.Now()
			out, err := e.Detector.Propagate(ctx, cand)
			elapsed := time.Since(start)
			stats.PropagateCalls++
			stats.PropagateTime += elapsed
			if err != nil {
				return fmt.Errorf("detector %s: propagate: %w", e.Detector.Name(), err)
			}
			pl.opts.Logger.Debug("propagate",
				"detector", e.Detector.Name(), "round", round, "outcome", out)
			if out != Found {
				continue
			}
			stats.Found++
			if err := pl.admit(cand, e.Detector.Name(), p, elapsed); err != nil {
				return err
			}
		}
	}
	return nil
}

// finishOpen drains the open pool: each remaining decomposition is handed to
// finishing-enabled detectors in priority order until one completes it, then
// migrated to the ancestor pool.
func (pl *Pipeline) finishOpen(ctx context.Context, stats *Stats) error {
	for _, p := range pl.m.OpenDecomps() {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, e := range pl.reg.Entries() {
			f, ok := e.Detector.(Finisher)
			if !ok || !e.Config.FinishingEnabled {
				continue
			}
			cand := p.Copy()
			start := time.Now()
			out, err := f.Finish(ctx, cand)
			elapsed := time.Since(start)
			stats.FinishCalls++
			stats.FinishTime += elapsed
			if err != nil {
				return fmt.Errorf("detector %s: finish: %w", f.Name(), err)
			}
			if out != Found || !cand.IsComplete() {
				continue
			}
			stats.Found++
			if err := pl.admit(cand, f.Name(), p, elapsed); err != nil {
				return err
			}
			break
		}
		pl.m.RemoveFromOpen(p)
		pl.m.AddToAncestors(p)
	}
	return nil
}

func (pl *Pipeline) postprocessFinished(ctx context.Context, stats *Stats) error {
	for _, p := range pl.m.FinishedDecomps() {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, e := range pl.reg.Entries() {
			pp, ok := e.Detector.(Postprocessor)
			if !ok || !e.Config.PostprocessingEnabled {
				continue
			}
			cand := p.Copy()
			start := time.Now()
			out, err := pp.Postprocess(ctx, cand)
			elapsed := time.Since(start)
			stats.PostprocessCalls++
			stats.PostprocessTime += elapsed
			if err != nil {
				return fmt.Errorf("detector %s: postprocess: %w", pp.Name(), err)
			}
			if out != Found {
				continue
			}
			stats.Found++
			if err := pl.admit(cand, pp.Name(), p, elapsed); err != nil {
				return err
			}
		}
	}
	return nil
}

// admit records provenance on cand and routes it to the open or finished
// pool. Duplicates are silently dropped by the pools. A detector that
// committed an inconsistent mutation aborts the run.
func (pl *Pipeline) admit(cand *decomp.Partial, detector string, parent *decomp.Partial, elapsed time.Duration) error {
	if err := cand.Consistent(); err != nil {
		return fmt.Errorf("detector %s: %w", detector, err)
	}
	cand.AppendStep(decomp.Step{
		Detector: detector,
		Duration: elapsed,
		Assigned: assignedFraction(parent, cand),
	})
	var added bool
	var err error
	if cand.IsComplete() {
		added, err = pl.m.AddToFinished(cand)
	} else {
		added, err = pl.m.AddToOpen(cand)
	}
	if err != nil {
		return fmt.Errorf("detector %s: %w", detector, err)
	}
	if !added {
		pl.opts.Logger.Debug("duplicate decomposition dropped", "detector", detector)
	}
	return nil
}

// assignedFraction is the fraction of all elements newly assigned between
// parent and child.
func assignedFraction(parent, child *decomp.Partial) float64 {
	total := parent.Matrix().NConss() + parent.Matrix().NVars()
	if total == 0 {
		return 0
	}
	before := parent.NOpenConss() + parent.NOpenVars()
	after := child.NOpenConss() + child.NOpenVars()
	return float64(before-after) / float64(total)
}

package detect

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/structmine/structmine/pkg/decomp"
	"github.com/structmine/structmine/pkg/mip"
)

// pipelineMatrix has one set-packing row plus two structurally independent
// constraints, so type rules and connectivity both have work to do.
func pipelineMatrix(t *testing.T) *decomp.Matrix {
	t.Helper()
	m := mip.NewModel("pipe")
	for _, name := range []string{"v0", "v1", "v2", "v3"} {
		if _, err := m.AddVariable(mip.NewVariable(name, mip.VarBinary, 0, 1)); err != nil {
			t.Fatal(err)
		}
	}
	add := func(name string, rhs float64, coefs ...mip.Coef) {
		c := mip.NewConstraint(name, math.Inf(-1), rhs)
		c.Coefs = coefs
		m.AddConstraint(c)
	}
	add("pack", 1, mip.Coef{Var: 0, Value: 1}, mip.Coef{Var: 1, Value: 1})
	add("c1", 5, mip.Coef{Var: 0, Value: 2}, mip.Coef{Var: 2, Value: 1})
	add("c2", 4, mip.Coef{Var: 3, Value: 3})

	mtx, err := decomp.Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return mtx
}

func TestPipelineRunProducesFinished(t *testing.T) {
	m := pipelineMatrix(t)
	pl, err := NewPipeline(m, DefaultRegistry(), Options{})
	if err != nil {
		t.Fatal(err)
	}

	stats, err := pl.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Rounds != DefaultMaxRounds {
		t.Errorf("rounds = %d, want %d", stats.Rounds, DefaultMaxRounds)
	}
	if stats.PropagateCalls == 0 {
		t.Error("expected propagate calls")
	}

	finished := m.FinishedDecomps()
	if len(finished) == 0 {
		t.Fatal("expected at least one finished decomposition")
	}
	for _, p := range finished {
		if !p.IsComplete() {
			t.Error("finished decomposition must be complete")
		}
		if !p.Frozen() {
			t.Error("finished decomposition must be frozen")
		}
		if err := p.Consistent(); err != nil {
			t.Errorf("finished decomposition inconsistent: %v", err)
		}
		if len(p.Chain()) == 0 {
			t.Error("finished decomposition must carry provenance")
		}
	}
	if len(m.OpenDecomps()) != 0 {
		t.Error("open pool must be drained after the run")
	}
}

func TestPipelineRunIsReproducible(t *testing.T) {
	m := pipelineMatrix(t)
	pl, err := NewPipeline(m, DefaultRegistry(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pl.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := len(m.FinishedDecomps())

	// A second run re-derives the same decompositions; deduplication keeps
	// the finished pool unchanged.
	if _, err := pl.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if after := len(m.FinishedDecomps()); after != before {
		t.Errorf("finished pool grew from %d to %d on identical rerun", before, after)
	}
}

func TestPipelineProvenanceFractions(t *testing.T) {
	m := pipelineMatrix(t)
	pl, err := NewPipeline(m, DefaultRegistry(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pl.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, p := range m.FinishedDecomps() {
		sum := 0.0
		for _, s := range p.Chain() {
			if s.Assigned < 0 || s.Assigned > 1 {
				t.Errorf("step %s assigned fraction %v out of range", s.Detector, s.Assigned)
			}
			sum += s.Assigned
		}
		// A complete decomposition assigned every element exactly once.
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("assigned fractions sum to %v, want 1", sum)
		}
	}
}

func TestPipelineFatalDetectorError(t *testing.T) {
	m := pipelineMatrix(t)
	boom := errors.New("boom")
	r := NewRegistry()
	if err := r.Register(&stubDetector{name: "bad", err: boom}, DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	pl, err := NewPipeline(m, r, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := pl.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped detector error", err)
	}
}

func TestPipelineSkipIfFound(t *testing.T) {
	m := pipelineMatrix(t)
	r := NewRegistry()
	if err := r.Register(&Connected{}, DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	skipped := &stubDetector{name: "skipped", priority: 1, outcome: Found}
	cfg := DefaultConfig()
	cfg.SkipIfFound = true
	if err := r.Register(skipped, cfg); err != nil {
		t.Fatal(err)
	}
	pl, err := NewPipeline(m, r, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := pl.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if skipped.calls != 0 {
		t.Errorf("skip-if-found detector ran %d times, want 0", skipped.calls)
	}
}

func TestPipelineContextCancellation(t *testing.T) {
	m := pipelineMatrix(t)
	pl, err := NewPipeline(m, DefaultRegistry(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := pl.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNewPipelineValidation(t *testing.T) {
	m := pipelineMatrix(t)
	if _, err := NewPipeline(nil, DefaultRegistry(), Options{}); err == nil {
		t.Error("nil matrix must be rejected")
	}
	if _, err := NewPipeline(m, NewRegistry(), Options{}); err == nil {
		t.Error("empty registry must be rejected")
	}
	if _, err := NewPipeline(m, DefaultRegistry(), Options{MaxRounds: -1}); err == nil {
		t.Error("negative max rounds must be rejected")
	}
}

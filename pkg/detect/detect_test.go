package detect

import (
	"context"
	"testing"

	"github.com/structmine/structmine/pkg/decomp"
)

type stubDetector struct {
	name     string
	priority int
	outcome  Outcome
	err      error
	calls    int
}

func (d *stubDetector) Name() string  { return d.name }
func (d *stubDetector) Tag() rune     { return '?' }
func (d *stubDetector) Priority() int { return d.priority }

func (d *stubDetector) Propagate(_ context.Context, p *decomp.Partial) (Outcome, error) {
	d.calls++
	if d.err != nil {
		return DidNotFind, d.err
	}
	if d.outcome == Found {
		// Commit a minimal consistent mutation so the result is distinct.
		for _, c := range p.OpenConss() {
			if err := p.SetConsToMaster(c); err != nil {
				return DidNotFind, err
			}
			break
		}
	}
	return d.outcome, nil
}

func TestRegistryPrioritySort(t *testing.T) {
	r := NewRegistry()
	low := &stubDetector{name: "low", priority: 10}
	high := &stubDetector{name: "high", priority: 100}
	mid := &stubDetector{name: "mid", priority: 50}
	for _, d := range []Detector{low, high, mid} {
		if err := r.Register(d, DefaultConfig()); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	for _, e := range r.Entries() {
		got = append(got, e.Detector.Name())
	}
	want := []string{"high", "mid", "low"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestRegistryStableTies(t *testing.T) {
	r := NewRegistry()
	a := &stubDetector{name: "a", priority: 10}
	b := &stubDetector{name: "b", priority: 10}
	if err := r.Register(a, DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(b, DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	if es := r.Entries(); es[0].Detector.Name() != "a" || es[1].Detector.Name() != "b" {
		t.Error("equal priorities must keep registration order")
	}
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubDetector{name: "dup"}, DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&stubDetector{name: "dup"}, DefaultConfig()); err == nil {
		t.Error("expected error for duplicate detector name")
	}
}

func TestRegistryLookup(t *testing.T) {
	r := DefaultRegistry()
	if _, ok := r.Lookup(NameConnected); !ok {
		t.Error("connected detector should be registered")
	}
	if _, ok := r.Lookup("nonexistent"); ok {
		t.Error("lookup of unknown name should fail")
	}
}

func TestConfigEligibility(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		round int
		want  bool
	}{
		{"disabled", Config{Enabled: false, MaxRound: 9}, 0, false},
		{"in window", Config{Enabled: true, MinRound: 1, MaxRound: 3}, 2, true},
		{"before window", Config{Enabled: true, MinRound: 1, MaxRound: 3}, 0, false},
		{"after window", Config{Enabled: true, MinRound: 1, MaxRound: 3}, 4, false},
		{"freq hit", Config{Enabled: true, MaxRound: 9, Freq: 3}, 3, true},
		{"freq miss", Config{Enabled: true, MaxRound: 9, Freq: 3}, 4, false},
		{"freq offset by min round", Config{Enabled: true, MinRound: 1, MaxRound: 9, Freq: 2}, 1, true},
		{"zero freq means every round", Config{Enabled: true, MaxRound: 9}, 7, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.eligible(tt.round); got != tt.want {
				t.Errorf("eligible(%d) = %v, want %v", tt.round, got, tt.want)
			}
		})
	}
}

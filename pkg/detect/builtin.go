package detect

import (
	"context"
	"errors"

	"github.com/structmine/structmine/pkg/decomp"
	"github.com/structmine/structmine/pkg/decomp/complete"
)

// Built-in detector names.
const (
	NameSetTypes    = "settypes"
	NameDenseMaster = "densemaster"
	NameConnected   = "connected"
	NameGreedy      = "greedy"
	NameBorderPost  = "borderpost"
)

// DefaultRegistry returns a registry with every built-in detector enabled
// under its default configuration.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, d := range []Detector{
		&SetTypes{},
		&DenseMasterDetector{},
		&Connected{},
		&Greedy{},
		&BorderPost{},
	} {
		// Names are distinct constants, registration cannot fail.
		_ = r.Register(d, DefaultConfig())
	}
	return r
}

// SetTypes fixes open constraints matching the combined set-type master rule
// to the master problem. It runs first: moving coupling rows into the border
// early keeps later connectivity splits clean.
type SetTypes struct{}

func (*SetTypes) Name() string  { return NameSetTypes }
func (*SetTypes) Tag() rune     { return 'S' }
func (*SetTypes) Priority() int { return 1100 }

func (*SetTypes) Propagate(_ context.Context, p *decomp.Partial) (Outcome, error) {
	fixed, err := complete.GeneralSetpackToMaster(p)
	if err != nil {
		return DidNotFind, err
	}
	if fixed == 0 {
		return DidNotFind, nil
	}
	return Found, nil
}

// DenseMasterDetector fixes the densest open constraints to master when a
// clear density gap separates them from the rest.
type DenseMasterDetector struct {
	// Ratio bounds the examined prefix; zero means the default.
	Ratio float64
}

func (*DenseMasterDetector) Name() string  { return NameDenseMaster }
func (*DenseMasterDetector) Tag() rune     { return 'D' }
func (*DenseMasterDetector) Priority() int { return 900 }

func (d *DenseMasterDetector) Propagate(_ context.Context, p *decomp.Partial) (Outcome, error) {
	ratio := d.Ratio
	if ratio <= 0 {
		ratio = complete.DefaultDenseMasterRatio
	}
	fixed, err := complete.DenseMaster(p, ratio)
	if err != nil {
		return DidNotFind, err
	}
	if fixed == 0 {
		return DidNotFind, nil
	}
	return Found, nil
}

// Connected completes a decomposition along the connected components of its
// open part. Propagation and finishing coincide: connectivity always yields
// a complete result.
type Connected struct{}

func (*Connected) Name() string  { return NameConnected }
func (*Connected) Tag() rune     { return 'C' }
func (*Connected) Priority() int { return 700 }

func (c *Connected) Propagate(ctx context.Context, p *decomp.Partial) (Outcome, error) {
	return c.Finish(ctx, p)
}

func (*Connected) Finish(_ context.Context, p *decomp.Partial) (Outcome, error) {
	if p.IsComplete() {
		return DidNotFind, nil
	}
	if err := complete.ByConnected(p); err != nil {
		return DidNotFind, err
	}
	return Found, nil
}

var _ Finisher = (*Connected)(nil)

// Greedy force-completes a decomposition with the local extension heuristic.
// Pure finisher; it never propagates, so partially built decompositions are
// not flooded with greedy variants every round.
type Greedy struct{}

func (*Greedy) Name() string  { return NameGreedy }
func (*Greedy) Tag() rune     { return 'G' }
func (*Greedy) Priority() int { return 100 }

func (*Greedy) Propagate(context.Context, *decomp.Partial) (Outcome, error) {
	return DidNotFind, nil
}

func (*Greedy) Finish(_ context.Context, p *decomp.Partial) (Outcome, error) {
	if p.IsComplete() {
		return DidNotFind, nil
	}
	if err := complete.Greedily(p); err != nil {
		return DidNotFind, err
	}
	return Found, nil
}

var _ Finisher = (*Greedy)(nil)

// BorderPost shrinks the border of complete decompositions by moving master
// constraints confined to a single block into that block.
type BorderPost struct{}

func (*BorderPost) Name() string  { return NameBorderPost }
func (*BorderPost) Tag() rune     { return 'P' }
func (*BorderPost) Priority() int { return 0 }

func (*BorderPost) Propagate(context.Context, *decomp.Partial) (Outcome, error) {
	return DidNotFind, nil
}

func (*BorderPost) Postprocess(_ context.Context, p *decomp.Partial) (Outcome, error) {
	moved, err := complete.Postprocess(p)
	if err != nil {
		if errors.Is(err, decomp.ErrIncomplete) {
			return DidNotFind, nil
		}
		return DidNotFind, err
	}
	if !moved {
		return DidNotFind, nil
	}
	return Found, nil
}

var _ Postprocessor = (*BorderPost)(nil)

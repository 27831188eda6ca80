package score

import (
	"fmt"
	"sort"

	"github.com/structmine/structmine/pkg/decomp"
	"github.com/structmine/structmine/pkg/mip"
)

// Score rates one decomposition. Implementations are pure: they read the
// decomposition and its matrix and never mutate either. Calculate requires a
// complete decomposition and returns a value in [0,1], higher is better.
type Score interface {
	Name() string
	Calculate(p *decomp.Partial) (float64, error)
}

// Evaluate computes s for p, consulting and filling the per-decomposition
// score cache. Caching is keyed by the score name.
func Evaluate(s Score, p *decomp.Partial) (float64, error) {
	if val, ok := p.CachedScore(s.Name()); ok {
		return val, nil
	}
	val, err := s.Calculate(p)
	if err != nil {
		return 0, err
	}
	p.SetCachedScore(s.Name(), val)
	return val, nil
}

// Ranked pairs a decomposition with its score value.
type Ranked struct {
	Decomp *decomp.Partial
	Value  float64
}

// Rank evaluates s for every decomposition and returns them best-first.
// Ties keep the input order.
func Rank(s Score, decomps []*decomp.Partial) ([]Ranked, error) {
	ranked := make([]Ranked, 0, len(decomps))
	for _, p := range decomps {
		val, err := Evaluate(s, p)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, Ranked{Decomp: p, Value: val})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Value > ranked[j].Value
	})
	return ranked, nil
}

// ByName returns the built-in score with the given name.
func ByName(name string) (Score, error) {
	for _, s := range All() {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unknown score %q", name)
}

// All returns every built-in score.
func All() []Score {
	return []Score{
		Classic{},
		Bender{},
		MaxForeseeingWhite{},
		SetPartAware{Inner: MaxForeseeingWhite{}},
		SetPartAware{Inner: Bender{}},
	}
}

// =============================================================================
// Area measures
// =============================================================================

// areas captures the block/border geometry of a complete decomposition.
// All values are absolute cell counts over the nconss × nvars rectangle.
type areas struct {
	total      int
	block      int // Σ_b |conss_b| · |vars_b|
	border     int // master rows fully, plus border columns outside them
	borderVars int // master + linking + stairlinking variables
	blockNZ    map[int]int
}

func measure(p *decomp.Partial) areas {
	m := p.Matrix()
	nc, nv := m.NConss(), m.NVars()

	a := areas{total: nc * nv, blockNZ: make(map[int]int)}
	for b := 0; b < p.NBlocks(); b++ {
		conss := p.ConssForBlock(b)
		vars := p.VarsForBlock(b)
		a.block += len(conss) * len(vars)
		for _, c := range conss {
			for _, v := range m.VarsForCons(c) {
				if cat, bb := p.VarAssignment(v); cat == decomp.Block && bb == b {
					a.blockNZ[b]++
				}
			}
		}
	}

	a.borderVars = len(p.Mastervars()) + len(p.Linkingvars())
	for b := 0; b+1 < p.NBlocks(); b++ {
		a.borderVars += len(p.Stairlinkingvars(b))
	}
	nMaster := len(p.Masterconss())
	a.border = nMaster*nv + a.borderVars*(nc-nMaster)
	return a
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func requireComplete(p *decomp.Partial) error {
	if !p.IsComplete() {
		return fmt.Errorf("score: %w", decomp.ErrIncomplete)
	}
	return nil
}

// =============================================================================
// Classic
// =============================================================================

// Classic combines border-area fraction, minimum block density and the
// linking-variable ratio with fixed weights. A decomposition with a thin
// border, dense blocks and few linking variables scores close to one.
type Classic struct{}

func (Classic) Name() string { return "classic" }

func (Classic) Calculate(p *decomp.Partial) (float64, error) {
	if err := requireComplete(p); err != nil {
		return 0, err
	}
	a := measure(p)
	if a.total == 0 {
		return 0, nil
	}

	borderScore := 1 - float64(a.border)/float64(a.total)

	minDensity := 0.0
	for b := 0; b < p.NBlocks(); b++ {
		cells := len(p.ConssForBlock(b)) * len(p.VarsForBlock(b))
		if cells == 0 {
			minDensity = 0
			break
		}
		d := float64(a.blockNZ[b]) / float64(cells)
		if b == 0 || d < minDensity {
			minDensity = d
		}
	}

	linking := len(p.Linkingvars())
	for b := 0; b+1 < p.NBlocks(); b++ {
		linking += len(p.Stairlinkingvars(b))
	}
	linkRatio := 1 - float64(linking)/float64(p.Matrix().NVars())

	return clamp01(0.4*borderScore + 0.3*minDensity + 0.3*linkRatio), nil
}

// =============================================================================
// Bender
// =============================================================================

// Bender rates suitability for a Benders-style reformulation. Master rows
// whose variables all live inside blocks count as "bender area": coupling
// that vanishes once the blocks are solved.
type Bender struct{}

func (Bender) Name() string { return "bender" }

func (Bender) Calculate(p *decomp.Partial) (float64, error) {
	if err := requireComplete(p); err != nil {
		return 0, err
	}
	a := measure(p)
	if a.total == 0 {
		return 0, nil
	}
	m := p.Matrix()

	benderNZ := 0
	for _, c := range p.Masterconss() {
		for _, v := range m.VarsForCons(c) {
			if cat, _ := p.VarAssignment(v); cat == decomp.Block {
				benderNZ++
			}
		}
	}

	blockScore := 1 - float64(a.block)/float64(a.total)
	benderScore := 1 - float64(benderNZ)/float64(a.total)
	borderScore := 1 - float64(a.border)/float64(a.total)

	return clamp01(1 - (blockScore + benderScore + borderScore - 1)), nil
}

// =============================================================================
// Max foreseeing white
// =============================================================================

// MaxForeseeingWhite maximizes the fraction of white area, crediting
// linking variables whose constraints are all block-assigned: such a column
// will only ever touch its current blocks, so its cells outside them are
// foreseeable white rather than border.
type MaxForeseeingWhite struct{}

func (MaxForeseeingWhite) Name() string { return "maxforeseeingwhite" }

func (MaxForeseeingWhite) Calculate(p *decomp.Partial) (float64, error) {
	if err := requireComplete(p); err != nil {
		return 0, err
	}
	a := measure(p)
	if a.total == 0 {
		return 0, nil
	}
	m := p.Matrix()
	nc := m.NConss()
	nMaster := len(p.Masterconss())

	// Reclassify foreseeable linking columns: their area shrinks from a full
	// border column to the rows of the blocks they touch.
	blockArea := a.block
	borderVars := a.borderVars
	for _, v := range p.Linkingvars() {
		confined := true
		for _, c := range m.ConssForVar(v) {
			if cat, _ := p.ConsAssignment(c); cat != decomp.Block {
				confined = false
				break
			}
		}
		if !confined {
			continue
		}
		borderVars--
		for _, b := range p.BlocksForVar(v) {
			blockArea += len(p.ConssForBlock(b))
		}
	}

	border := nMaster*m.NVars() + borderVars*(nc-nMaster)
	return clamp01(1 - float64(blockArea+border)/float64(a.total)), nil
}

// =============================================================================
// Set-partitioning-aware wrapper
// =============================================================================

// SetPartAware halves an inner score and adds a flat bonus when the master
// consists solely of set-partitioning, set-packing, set-covering or
// cardinality constraints, the shapes a set-partitioning master excels at.
type SetPartAware struct {
	Inner Score
}

func (s SetPartAware) Name() string { return "setpart-" + s.Inner.Name() }

func (s SetPartAware) Calculate(p *decomp.Partial) (float64, error) {
	inner, err := Evaluate(s.Inner, p)
	if err != nil {
		return 0, err
	}
	bonus := 0.0
	if masterIsSetShaped(p) {
		bonus = 1.0
	}
	return clamp01(0.5*inner + 0.5*bonus), nil
}

func masterIsSetShaped(p *decomp.Partial) bool {
	m := p.Matrix()
	master := p.Masterconss()
	if len(master) == 0 {
		return false
	}
	for _, c := range master {
		t := m.ConsType(c)
		if !t.IsSetType() && t != mip.TypeCardinality {
			return false
		}
	}
	return true
}

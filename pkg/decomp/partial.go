package decomp

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Category classifies what a constraint or variable is assigned to.
// Constraints use Open, Master and Block; variables additionally use Linking
// and Stairlinking.
type Category int8

const (
	// Open marks an element not yet assigned to any category.
	Open Category = iota
	// Master marks an element assigned to the coordinating master problem.
	Master
	// Linking marks a variable shared between two or more blocks.
	Linking
	// Block marks an element assigned to one block.
	Block
	// Stairlinking marks a variable confined to two adjacent blocks (b, b+1).
	Stairlinking
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case Open:
		return "open"
	case Master:
		return "master"
	case Linking:
		return "linking"
	case Block:
		return "block"
	case Stairlinking:
		return "stairlinking"
	default:
		return "unknown"
	}
}

// Internal per-element codes. Non-negative values are block indices; for
// stairlinking variables varStair holds the lower block.
const (
	catOpen    = -1
	catMaster  = -2
	catLinking = -3
	catStair   = -4
)

// Step is one entry of a decomposition's detector-chain provenance.
// The chain is pure history: later detectors never consult it.
type Step struct {
	Detector string        // detector (or "translation") that ran
	Duration time.Duration // wall time of the call
	Assigned float64       // fraction of all elements newly assigned by the call
}

// Partial is one candidate decomposition: a finite-state classification of
// every constraint into {open, master, block} and every variable into
// {open, master, linking, block, stairlinking}.
//
// Partials are created by their owning [Matrix] (empty, as a copy, or by
// translation) and mutated only by completion algorithms and by the detector
// that holds them during a pipeline step. Once moved to the finished pool a
// Partial is frozen and all mutators fail with [ErrFrozen].
type Partial struct {
	m  *Matrix
	id uuid.UUID

	nBlocks  int
	consCat  []int
	varCat   []int
	varStair []int // lower block for catStair entries, -1 otherwise

	nOpenConss int
	nOpenVars  int

	markedLinking map[int]bool

	chain          []Step
	ancestors      []uuid.UUID
	translatedFrom uuid.UUID

	scores map[string]float64
	frozen bool
}

// newPartial creates an all-open decomposition owned by m.
func newPartial(m *Matrix) *Partial {
	p := &Partial{
		m:             m,
		id:            uuid.New(),
		consCat:       make([]int, m.NConss()),
		varCat:        make([]int, m.NVars()),
		varStair:      make([]int, m.NVars()),
		nOpenConss:    m.NConss(),
		nOpenVars:     m.NVars(),
		markedLinking: make(map[int]bool),
		scores:        make(map[string]float64),
	}
	for i := range p.consCat {
		p.consCat[i] = catOpen
	}
	for i := range p.varCat {
		p.varCat[i] = catOpen
		p.varStair[i] = -1
	}
	return p
}

// ID returns the decomposition's unique identity.
func (p *Partial) ID() uuid.UUID { return p.id }

// Matrix returns the owning incidence matrix.
func (p *Partial) Matrix() *Matrix { return p.m }

// NBlocks returns the number of blocks currently allocated.
func (p *Partial) NBlocks() int { return p.nBlocks }

// NOpenConss returns the number of constraints still open.
func (p *Partial) NOpenConss() int { return p.nOpenConss }

// NOpenVars returns the number of variables still open.
func (p *Partial) NOpenVars() int { return p.nOpenVars }

// IsComplete reports whether no open constraints or variables remain.
func (p *Partial) IsComplete() bool { return p.nOpenConss == 0 && p.nOpenVars == 0 }

// Copy returns a deep, mutable copy with a fresh identity. The copy records
// p as an ancestor; cached scores are not carried over.
func (p *Partial) Copy() *Partial {
	c := &Partial{
		m:              p.m,
		id:             uuid.New(),
		nBlocks:        p.nBlocks,
		consCat:        slices.Clone(p.consCat),
		varCat:         slices.Clone(p.varCat),
		varStair:       slices.Clone(p.varStair),
		nOpenConss:     p.nOpenConss,
		nOpenVars:      p.nOpenVars,
		markedLinking:  make(map[int]bool, len(p.markedLinking)),
		chain:          slices.Clone(p.chain),
		ancestors:      append(slices.Clone(p.ancestors), p.id),
		translatedFrom: p.translatedFrom,
		scores:         make(map[string]float64),
	}
	for v := range p.markedLinking {
		c.markedLinking[v] = true
	}
	return c
}

// freeze makes the decomposition immutable. Called by the finished pool.
func (p *Partial) freeze() { p.frozen = true }

// Frozen reports whether the decomposition has entered the finished pool.
func (p *Partial) Frozen() bool { return p.frozen }

// =============================================================================
// Mutators
// =============================================================================

// AddBlock allocates a new block and returns its index.
func (p *Partial) AddBlock() (int, error) {
	if p.frozen {
		return 0, ErrFrozen
	}
	b := p.nBlocks
	p.nBlocks++
	return b, nil
}

// EnsureBlocks grows the block count to at least n.
func (p *Partial) EnsureBlocks(n int) error {
	if p.frozen {
		return ErrFrozen
	}
	if n > p.nBlocks {
		p.nBlocks = n
	}
	return nil
}

func (p *Partial) checkCons(c int) error {
	if c < 0 || c >= len(p.consCat) {
		return fmt.Errorf("%w: constraint %d", ErrIndexRange, c)
	}
	return nil
}

func (p *Partial) checkVar(v int) error {
	if v < 0 || v >= len(p.varCat) {
		return fmt.Errorf("%w: variable %d", ErrIndexRange, v)
	}
	return nil
}

func (p *Partial) checkBlock(b int) error {
	if b < 0 || b >= p.nBlocks {
		return fmt.Errorf("%w: block %d of %d", ErrBlockRange, b, p.nBlocks)
	}
	return nil
}

func (p *Partial) setConsCat(c, cat int) {
	if p.consCat[c] == catOpen && cat != catOpen {
		p.nOpenConss--
	} else if p.consCat[c] != catOpen && cat == catOpen {
		p.nOpenConss++
	}
	p.consCat[c] = cat
}

func (p *Partial) setVarCat(v, cat, stair int) {
	if p.varCat[v] == catOpen && cat != catOpen {
		p.nOpenVars--
	} else if p.varCat[v] != catOpen && cat == catOpen {
		p.nOpenVars++
	}
	p.varCat[v] = cat
	p.varStair[v] = stair
}

// SetConsToMaster assigns a constraint to the master problem.
func (p *Partial) SetConsToMaster(c int) error {
	if p.frozen {
		return ErrFrozen
	}
	if err := p.checkCons(c); err != nil {
		return err
	}
	p.setConsCat(c, catMaster)
	return nil
}

// SetConsToBlock assigns a constraint to block b.
func (p *Partial) SetConsToBlock(c, b int) error {
	if p.frozen {
		return ErrFrozen
	}
	if err := p.checkCons(c); err != nil {
		return err
	}
	if err := p.checkBlock(b); err != nil {
		return err
	}
	p.setConsCat(c, b)
	return nil
}

// SetVarToMaster assigns a variable to the master problem (a static master
// variable appearing only in master constraints).
func (p *Partial) SetVarToMaster(v int) error {
	if p.frozen {
		return ErrFrozen
	}
	if err := p.checkVar(v); err != nil {
		return err
	}
	delete(p.markedLinking, v)
	p.setVarCat(v, catMaster, -1)
	return nil
}

// SetVarToLinking marks a variable as linking. The mark is remembered, so the
// consistency check accepts the variable even while it touches fewer than two
// blocks.
func (p *Partial) SetVarToLinking(v int) error {
	if p.frozen {
		return ErrFrozen
	}
	if err := p.checkVar(v); err != nil {
		return err
	}
	p.markedLinking[v] = true
	p.setVarCat(v, catLinking, -1)
	return nil
}

// SetVarToBlock assigns a variable to block b.
func (p *Partial) SetVarToBlock(v, b int) error {
	if p.frozen {
		return ErrFrozen
	}
	if err := p.checkVar(v); err != nil {
		return err
	}
	if err := p.checkBlock(b); err != nil {
		return err
	}
	delete(p.markedLinking, v)
	p.setVarCat(v, b, -1)
	return nil
}

// SetVarToStairlinking confines a variable to the adjacent blocks b and b+1.
func (p *Partial) SetVarToStairlinking(v, b int) error {
	if p.frozen {
		return ErrFrozen
	}
	if err := p.checkVar(v); err != nil {
		return err
	}
	if err := p.checkBlock(b); err != nil {
		return err
	}
	if err := p.checkBlock(b + 1); err != nil {
		return err
	}
	delete(p.markedLinking, v)
	p.setVarCat(v, catStair, b)
	return nil
}

// SetConsToOpen returns a constraint to the open set.
func (p *Partial) SetConsToOpen(c int) error {
	if p.frozen {
		return ErrFrozen
	}
	if err := p.checkCons(c); err != nil {
		return err
	}
	p.setConsCat(c, catOpen)
	return nil
}

// SetVarToOpen returns a variable to the open set.
func (p *Partial) SetVarToOpen(v int) error {
	if p.frozen {
		return ErrFrozen
	}
	if err := p.checkVar(v); err != nil {
		return err
	}
	delete(p.markedLinking, v)
	p.setVarCat(v, catOpen, -1)
	return nil
}

// =============================================================================
// Accessors
// =============================================================================

// ConsAssignment returns the category of constraint c and, for Block, the
// block index (otherwise -1).
func (p *Partial) ConsAssignment(c int) (Category, int) {
	switch cat := p.consCat[c]; {
	case cat >= 0:
		return Block, cat
	case cat == catMaster:
		return Master, -1
	default:
		return Open, -1
	}
}

// VarAssignment returns the category of variable v and the associated block:
// the block index for Block, the lower block for Stairlinking, -1 otherwise.
func (p *Partial) VarAssignment(v int) (Category, int) {
	switch cat := p.varCat[v]; {
	case cat >= 0:
		return Block, cat
	case cat == catMaster:
		return Master, -1
	case cat == catLinking:
		return Linking, -1
	case cat == catStair:
		return Stairlinking, p.varStair[v]
	default:
		return Open, -1
	}
}

// ConssForBlock returns the sorted constraint indices of block b.
func (p *Partial) ConssForBlock(b int) []int {
	var out []int
	for c, cat := range p.consCat {
		if cat == b {
			out = append(out, c)
		}
	}
	return out
}

// VarsForBlock returns the sorted variable indices of block b.
func (p *Partial) VarsForBlock(b int) []int {
	var out []int
	for v, cat := range p.varCat {
		if cat == b {
			out = append(out, v)
		}
	}
	return out
}

// Masterconss returns the sorted indices of master constraints.
func (p *Partial) Masterconss() []int { return p.consWithCat(catMaster) }

// OpenConss returns the sorted indices of open constraints.
func (p *Partial) OpenConss() []int { return p.consWithCat(catOpen) }

func (p *Partial) consWithCat(cat int) []int {
	var out []int
	for c, got := range p.consCat {
		if got == cat {
			out = append(out, c)
		}
	}
	return out
}

// Mastervars returns the sorted indices of static master variables.
func (p *Partial) Mastervars() []int { return p.varsWithCat(catMaster) }

// Linkingvars returns the sorted indices of linking variables.
func (p *Partial) Linkingvars() []int { return p.varsWithCat(catLinking) }

// OpenVars returns the sorted indices of open variables.
func (p *Partial) OpenVars() []int { return p.varsWithCat(catOpen) }

func (p *Partial) varsWithCat(cat int) []int {
	var out []int
	for v, got := range p.varCat {
		if got == cat {
			out = append(out, v)
		}
	}
	return out
}

// Stairlinkingvars returns the sorted indices of variables stairlinking
// blocks b and b+1.
func (p *Partial) Stairlinkingvars(b int) []int {
	var out []int
	for v, cat := range p.varCat {
		if cat == catStair && p.varStair[v] == b {
			out = append(out, v)
		}
	}
	return out
}

// BlocksForVar returns the sorted distinct blocks whose constraints contain
// variable v under the current constraint assignment.
func (p *Partial) BlocksForVar(v int) []int {
	seen := map[int]bool{}
	for _, c := range p.m.ConssForVar(v) {
		if b := p.consCat[c]; b >= 0 && !seen[b] {
			seen[b] = true
		}
	}
	out := make([]int, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	slices.Sort(out)
	return out
}

// =============================================================================
// Provenance, lineage, score cache
// =============================================================================

// AppendStep records one detector invocation in the provenance chain.
// Appending is allowed even on frozen decompositions so the pipeline can
// attach the finishing entry.
func (p *Partial) AppendStep(s Step) { p.chain = append(p.chain, s) }

// Chain returns a copy of the detector-chain provenance.
func (p *Partial) Chain() []Step { return slices.Clone(p.chain) }

// Ancestors returns the identities of the decompositions this one was
// derived from, oldest first.
func (p *Partial) Ancestors() []uuid.UUID { return slices.Clone(p.ancestors) }

// TranslatedFrom returns the identity of the decomposition this one was
// translated from, or uuid.Nil.
func (p *Partial) TranslatedFrom() uuid.UUID { return p.translatedFrom }

// CachedScore returns the cached value for a score kind, if computed.
func (p *Partial) CachedScore(name string) (float64, bool) {
	val, ok := p.scores[name]
	return val, ok
}

// SetCachedScore stores a computed score value. Score caching is the one
// write permitted on frozen decompositions.
func (p *Partial) SetCachedScore(name string, value float64) { p.scores[name] = value }

// =============================================================================
// Consistency
// =============================================================================

// Consistent verifies the structural invariants and returns nil if they hold:
//
//   - every element belongs to exactly one category (structural, by
//     representation) and all block references are below NBlocks;
//   - open counters match the assignment arrays;
//   - a linking variable touches constraints of at least two distinct blocks
//     or has been explicitly marked linking;
//   - a stairlinking variable appears only in its two adjacent blocks.
//
// A non-nil result wraps [ErrInconsistent] and is treated as a
// programming-error abort by the detection pipeline.
func (p *Partial) Consistent() error {
	openConss, openVars := 0, 0
	for c, cat := range p.consCat {
		switch {
		case cat == catOpen:
			openConss++
		case cat == catMaster:
		case cat >= 0:
			if cat >= p.nBlocks {
				return fmt.Errorf("%w: constraint %d in block %d of %d", ErrInconsistent, c, cat, p.nBlocks)
			}
		default:
			return fmt.Errorf("%w: constraint %d has invalid category %d", ErrInconsistent, c, cat)
		}
	}
	for v, cat := range p.varCat {
		switch {
		case cat == catOpen:
			openVars++
		case cat == catMaster || cat == catLinking:
		case cat == catStair:
			if err := p.stairConsistent(v); err != nil {
				return err
			}
		case cat >= 0:
			if cat >= p.nBlocks {
				return fmt.Errorf("%w: variable %d in block %d of %d", ErrInconsistent, v, cat, p.nBlocks)
			}
		default:
			return fmt.Errorf("%w: variable %d has invalid category %d", ErrInconsistent, v, cat)
		}
	}
	if openConss != p.nOpenConss || openVars != p.nOpenVars {
		return fmt.Errorf("%w: open counters (%d,%d) do not match assignments (%d,%d)",
			ErrInconsistent, p.nOpenConss, p.nOpenVars, openConss, openVars)
	}
	for _, v := range p.Linkingvars() {
		if p.markedLinking[v] {
			continue
		}
		if len(p.BlocksForVar(v)) < 2 {
			return fmt.Errorf("%w: linking variable %d touches fewer than two blocks", ErrInconsistent, v)
		}
	}
	return nil
}

func (p *Partial) stairConsistent(v int) error {
	b := p.varStair[v]
	if b < 0 || b+1 >= p.nBlocks {
		return fmt.Errorf("%w: stairlinking variable %d between blocks %d and %d of %d",
			ErrInconsistent, v, b, b+1, p.nBlocks)
	}
	for _, blk := range p.BlocksForVar(v) {
		if blk != b && blk != b+1 {
			return fmt.Errorf("%w: stairlinking variable %d appears in block %d outside (%d,%d)",
				ErrInconsistent, v, blk, b, b+1)
		}
	}
	return nil
}

package decomp

import (
	"errors"
	"testing"
)

func TestPartialLifecycle(t *testing.T) {
	m := buildMatrix(t)
	p := m.NewPartial()

	if p.NOpenConss() != 3 || p.NOpenVars() != 4 {
		t.Fatalf("root decomposition open counts = (%d,%d), want (3,4)", p.NOpenConss(), p.NOpenVars())
	}
	if p.IsComplete() {
		t.Fatal("all-open decomposition must not be complete")
	}

	b, err := p.AddBlock()
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if b != 0 || p.NBlocks() != 1 {
		t.Fatalf("AddBlock() = %d, NBlocks() = %d, want 0 and 1", b, p.NBlocks())
	}

	mustAssign(t, p.SetConsToBlock(0, 0))
	mustAssign(t, p.SetConsToBlock(1, 0))
	mustAssign(t, p.SetConsToMaster(2))
	for v := 0; v < 3; v++ {
		mustAssign(t, p.SetVarToBlock(v, 0))
	}
	mustAssign(t, p.SetVarToMaster(3))

	if !p.IsComplete() {
		t.Fatal("decomposition should be complete")
	}
	if err := p.Consistent(); err != nil {
		t.Fatalf("Consistent: %v", err)
	}

	// Category closure: Σ|block| + |master| + |open| covers everything.
	total := len(p.Masterconss()) + len(p.OpenConss())
	for b := 0; b < p.NBlocks(); b++ {
		total += len(p.ConssForBlock(b))
	}
	if total != m.NConss() {
		t.Errorf("constraint categories cover %d of %d", total, m.NConss())
	}
	vtotal := len(p.Mastervars()) + len(p.Linkingvars()) + len(p.OpenVars())
	for b := 0; b < p.NBlocks(); b++ {
		vtotal += len(p.VarsForBlock(b))
		vtotal += len(p.Stairlinkingvars(b))
	}
	if vtotal != m.NVars() {
		t.Errorf("variable categories cover %d of %d", vtotal, m.NVars())
	}
}

func mustAssign(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("assignment failed: %v", err)
	}
}

func TestPartialRangeChecks(t *testing.T) {
	m := buildMatrix(t)
	p := m.NewPartial()

	if err := p.SetConsToBlock(0, 0); !errors.Is(err, ErrBlockRange) {
		t.Errorf("block 0 of 0: got %v, want ErrBlockRange", err)
	}
	if err := p.SetConsToMaster(99); !errors.Is(err, ErrIndexRange) {
		t.Errorf("constraint 99: got %v, want ErrIndexRange", err)
	}
	if err := p.SetVarToStairlinking(0, 0); !errors.Is(err, ErrBlockRange) {
		t.Errorf("stairlinking without blocks: got %v, want ErrBlockRange", err)
	}
}

func TestLinkingInvariant(t *testing.T) {
	m := buildMatrix(t)
	p := m.NewPartial()
	if _, err := p.AddBlock(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.AddBlock(); err != nil {
		t.Fatal(err)
	}
	mustAssign(t, p.SetConsToBlock(0, 0))
	mustAssign(t, p.SetConsToBlock(1, 1))

	// v1 appears in c0 (block 0) and c1 (block 1): a valid linking variable.
	mustAssign(t, p.SetVarToLinking(1))
	if err := p.Consistent(); err != nil {
		t.Fatalf("Consistent with genuine linking variable: %v", err)
	}

	// v3 touches no block at all, but an explicit mark is accepted.
	mustAssign(t, p.SetVarToLinking(3))
	if err := p.Consistent(); err != nil {
		t.Fatalf("Consistent with explicitly marked linking variable: %v", err)
	}
}

func TestStairlinkingInvariant(t *testing.T) {
	m := buildMatrix(t)
	p := m.NewPartial()
	if err := p.EnsureBlocks(2); err != nil {
		t.Fatal(err)
	}
	mustAssign(t, p.SetConsToBlock(0, 0))
	mustAssign(t, p.SetConsToBlock(1, 1))

	// v1 appears in blocks 0 and 1: valid stairlinking(0,1).
	mustAssign(t, p.SetVarToStairlinking(1, 0))
	if err := p.Consistent(); err != nil {
		t.Fatalf("Consistent: %v", err)
	}

	// Move c1 to block 0 and grow a third block; v1 now sits outside (1,2)
	// if restaired there.
	if err := p.EnsureBlocks(3); err != nil {
		t.Fatal(err)
	}
	mustAssign(t, p.SetVarToStairlinking(1, 1))
	if err := p.Consistent(); !errors.Is(err, ErrInconsistent) {
		t.Fatalf("stairlinking outside its blocks: got %v, want ErrInconsistent", err)
	}
}

func TestFrozenRejectsMutation(t *testing.T) {
	m := buildMatrix(t)
	p := completeTrivially(t, m)

	if _, err := m.AddToFinished(p); err != nil {
		t.Fatalf("AddToFinished: %v", err)
	}
	if err := p.SetConsToMaster(0); !errors.Is(err, ErrFrozen) {
		t.Errorf("mutating finished decomposition: got %v, want ErrFrozen", err)
	}
	if _, err := p.AddBlock(); !errors.Is(err, ErrFrozen) {
		t.Errorf("AddBlock on finished decomposition: got %v, want ErrFrozen", err)
	}
}

// completeTrivially assigns everything to master.
func completeTrivially(t *testing.T, m *Matrix) *Partial {
	t.Helper()
	p := m.NewPartial()
	for c := 0; c < m.NConss(); c++ {
		mustAssign(t, p.SetConsToMaster(c))
	}
	for v := 0; v < m.NVars(); v++ {
		mustAssign(t, p.SetVarToMaster(v))
	}
	return p
}

func TestCopyIsDeepAndTracksLineage(t *testing.T) {
	m := buildMatrix(t)
	p := m.NewPartial()
	p.AppendStep(Step{Detector: "seed"})

	c := p.Copy()
	if c.ID() == p.ID() {
		t.Fatal("copy must get a fresh identity")
	}
	if len(c.Ancestors()) != 1 || c.Ancestors()[0] != p.ID() {
		t.Fatalf("Ancestors() = %v, want [parent]", c.Ancestors())
	}
	if len(c.Chain()) != 1 {
		t.Fatalf("provenance chain not carried: %v", c.Chain())
	}

	mustAssign(t, c.SetConsToMaster(0))
	if got, _ := p.ConsAssignment(0); got != Open {
		t.Error("mutating the copy must not touch the parent")
	}
}

func TestScoreCache(t *testing.T) {
	m := buildMatrix(t)
	p := m.NewPartial()

	if _, ok := p.CachedScore("classic"); ok {
		t.Fatal("cache should start empty")
	}
	p.SetCachedScore("classic", 0.75)
	if got, ok := p.CachedScore("classic"); !ok || got != 0.75 {
		t.Errorf("CachedScore = %v,%v, want 0.75,true", got, ok)
	}
}

package complete

import (
	"math"
	"testing"

	"github.com/structmine/structmine/pkg/decomp"
	"github.com/structmine/structmine/pkg/mip"
)

// greedyPartial pre-assigns three blocks and leaves five open constraints
// covering every branch of the greedy policy: single-block targets, a
// no-information constraint, and variables resolving to stairlinking,
// master and linking.
func greedyPartial(t *testing.T) *decomp.Partial {
	t.Helper()
	m := mip.NewModel("greedy")
	for _, name := range []string{"a0", "a1", "b0", "b1", "s", "m", "cv", "w"} {
		if _, err := m.AddVariable(mip.NewVariable(name, mip.VarContinuous, 0, math.Inf(1))); err != nil {
			t.Fatal(err)
		}
	}
	add := func(name string, vars ...int) {
		c := mip.NewConstraint(name, math.Inf(-1), 1)
		for _, v := range vars {
			c.Coefs = append(c.Coefs, mip.Coef{Var: v, Value: 1.0})
		}
		m.AddConstraint(c)
	}
	add("cA", 0, 1) // block 0
	add("cB", 2, 3) // block 1
	add("cC", 6)    // block 2
	add("o1", 0, 4) // open, a0 pins it to block 0
	add("o2", 2, 4) // open, b0 pins it to block 1
	add("oM", 5)    // open, no assigned vars
	add("l1", 0, 7) // open, block 0
	add("l2", 6, 7) // open, block 2

	mtx, err := decomp.Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p := mtx.NewPartial()
	if err := p.EnsureBlocks(3); err != nil {
		t.Fatal(err)
	}
	for c, b := range map[int]int{0: 0, 1: 1, 2: 2} {
		if err := p.SetConsToBlock(c, b); err != nil {
			t.Fatal(err)
		}
	}
	for v, b := range map[int]int{0: 0, 1: 0, 2: 1, 3: 1, 6: 2} {
		if err := p.SetVarToBlock(v, b); err != nil {
			t.Fatal(err)
		}
	}
	return p
}

func TestGreedilyCompletes(t *testing.T) {
	p := greedyPartial(t)

	if err := Greedily(p); err != nil {
		t.Fatalf("Greedily: %v", err)
	}
	if !p.IsComplete() {
		t.Fatal("decomposition must be complete")
	}
	if err := p.Consistent(); err != nil {
		t.Fatal(err)
	}

	wantCons := map[int]struct {
		cat decomp.Category
		b   int
	}{
		3: {decomp.Block, 0},
		4: {decomp.Block, 1},
		5: {decomp.Master, 0},
		6: {decomp.Block, 0},
		7: {decomp.Block, 2},
	}
	for c, want := range wantCons {
		cat, b := p.ConsAssignment(c)
		if cat != want.cat || (want.cat == decomp.Block && b != want.b) {
			t.Errorf("cons %d = (%v, %d), want (%v, %d)", c, cat, b, want.cat, want.b)
		}
	}

	// s spans adjacent blocks 0 and 1, m touches no block, w spans 0 and 2.
	if cat, b := p.VarAssignment(4); cat != decomp.Stairlinking || b != 0 {
		t.Errorf("s = (%v, %d), want stairlinking at block 0", cat, b)
	}
	if cat, _ := p.VarAssignment(5); cat != decomp.Master {
		t.Error("m should be a master variable")
	}
	if cat, _ := p.VarAssignment(7); cat != decomp.Linking {
		t.Error("w should be linking")
	}
}

func TestGreedilyStairlinkingConflictGoesToMaster(t *testing.T) {
	m := mip.NewModel("stairconflict")
	for _, name := range []string{"s", "a", "b", "c"} {
		if _, err := m.AddVariable(mip.NewVariable(name, mip.VarContinuous, 0, math.Inf(1))); err != nil {
			t.Fatal(err)
		}
	}
	add := func(name string, vars ...int) {
		c := mip.NewConstraint(name, math.Inf(-1), 1)
		for _, v := range vars {
			c.Coefs = append(c.Coefs, mip.Coef{Var: v, Value: 1.0})
		}
		m.AddConstraint(c)
	}
	add("cA", 1)    // block 0
	add("cB", 2)    // block 1
	add("cC", 3)    // block 2
	add("ox", 0, 3) // open; s comes before the block-2 variable

	mtx, err := decomp.Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p := mtx.NewPartial()
	if err := p.EnsureBlocks(3); err != nil {
		t.Fatal(err)
	}
	for c, b := range map[int]int{0: 0, 1: 1, 2: 2} {
		if err := p.SetConsToBlock(c, b); err != nil {
			t.Fatal(err)
		}
	}
	for v, b := range map[int]int{1: 0, 2: 1, 3: 2} {
		if err := p.SetVarToBlock(v, b); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.SetVarToStairlinking(0, 0); err != nil {
		t.Fatal(err)
	}

	// s restricts ox to blocks {0,1} even though it is seen before the
	// block-2 variable; the conflict must send ox to master, not block 2.
	if err := Greedily(p); err != nil {
		t.Fatalf("Greedily: %v", err)
	}
	if cat, _ := p.ConsAssignment(3); cat != decomp.Master {
		t.Errorf("ox = %v, want master", cat)
	}
	if !p.IsComplete() {
		t.Fatal("decomposition must be complete")
	}
	if err := p.Consistent(); err != nil {
		t.Fatal(err)
	}
}

func TestGreedilyDeterministic(t *testing.T) {
	p := greedyPartial(t)
	q := p.Copy()

	if err := Greedily(p); err != nil {
		t.Fatal(err)
	}
	if err := Greedily(q); err != nil {
		t.Fatal(err)
	}
	if !decomp.Equal(p, q) {
		t.Error("greedy completion must be deterministic")
	}
}

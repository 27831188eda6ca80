package complete

import (
	"errors"
	"math"
	"testing"

	"github.com/structmine/structmine/pkg/decomp"
	"github.com/structmine/structmine/pkg/mip"
)

// borderModel has two blocks plus three master constraints: one movable into
// block 0, one spanning both blocks, one containing a master variable.
//
//	cA:  a0 + a1 ≤ 1   block 0
//	cB:  b0 ≤ 1        block 1
//	cm:  a0 ≤ 1        master, only block-0 vars
//	cl:  a0 + b0 ≤ 1   master, spans both blocks
//	cmv: mv ≤ 1        master, mv is a master variable
func borderPartial(t *testing.T) *decomp.Partial {
	t.Helper()
	m := mip.NewModel("border")
	for _, name := range []string{"a0", "a1", "b0", "mv"} {
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
	add("cA", 0, 1)
	add("cB", 2)
	add("cm", 0)
	add("cl", 0, 2)
	add("cmv", 3)

	mtx, err := decomp.Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p := mtx.NewPartial()
	if err := p.EnsureBlocks(2); err != nil {
		t.Fatal(err)
	}
	for c, b := range map[int]int{0: 0, 1: 1} {
		if err := p.SetConsToBlock(c, b); err != nil {
			t.Fatal(err)
		}
	}
	for _, c := range []int{2, 3, 4} {
		if err := p.SetConsToMaster(c); err != nil {
			t.Fatal(err)
		}
	}
	for v, b := range map[int]int{0: 0, 1: 0, 2: 1} {
		if err := p.SetVarToBlock(v, b); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.SetVarToMaster(3); err != nil {
		t.Fatal(err)
	}
	if !p.IsComplete() {
		t.Fatal("fixture must be complete")
	}
	return p
}

func TestPostprocessMovesSingleBlockMasterCons(t *testing.T) {
	p := borderPartial(t)

	moved, err := Postprocess(p)
	if err != nil {
		t.Fatalf("Postprocess: %v", err)
	}
	if !moved {
		t.Fatal("expected at least one constraint to move")
	}
	if cat, b := p.ConsAssignment(2); cat != decomp.Block || b != 0 {
		t.Errorf("cm = (%v, %d), want block 0", cat, b)
	}
	if cat, _ := p.ConsAssignment(3); cat != decomp.Master {
		t.Error("cl spans two blocks and must stay master")
	}
	if cat, _ := p.ConsAssignment(4); cat != decomp.Master {
		t.Error("cmv contains a master variable and must stay master")
	}
}

func TestPostprocessIdempotent(t *testing.T) {
	p := borderPartial(t)
	if _, err := Postprocess(p); err != nil {
		t.Fatal(err)
	}

	moved, err := Postprocess(p)
	if err != nil {
		t.Fatal(err)
	}
	if moved {
		t.Error("second application must change nothing")
	}
}

func TestPostprocessRequiresComplete(t *testing.T) {
	p := borderPartial(t).Matrix().NewPartial()

	_, err := Postprocess(p)
	if !errors.Is(err, decomp.ErrIncomplete) {
		t.Errorf("err = %v, want ErrIncomplete", err)
	}
}

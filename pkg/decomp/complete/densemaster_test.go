package complete

import (
	"fmt"
	"math"
	"testing"

	"github.com/structmine/structmine/pkg/decomp"
	"github.com/structmine/structmine/pkg/mip"
)

// densityModel builds one constraint per entry of counts, where counts[i] is
// the number of nonzeros of constraint i.
func densityModel(t *testing.T, counts []int) *decomp.Matrix {
	t.Helper()
	maxNZ := 0
	for _, n := range counts {
		if n > maxNZ {
			maxNZ = n
		}
	}
	m := mip.NewModel("density")
	for j := 0; j < maxNZ; j++ {
		if _, err := m.AddVariable(mip.NewVariable(fmt.Sprintf("x%d", j), mip.VarContinuous, 0, math.Inf(1))); err != nil {
			t.Fatal(err)
		}
	}
	for i, n := range counts {
		c := mip.NewConstraint(fmt.Sprintf("c%d", i), math.Inf(-1), 10)
		for j := 0; j < n; j++ {
			c.Coefs = append(c.Coefs, mip.Coef{Var: j, Value: 1.0})
		}
		m.AddConstraint(c)
	}
	mtx, err := decomp.Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return mtx
}

func TestDenseMasterFixesDensestPrefix(t *testing.T) {
	m := densityModel(t, []int{9, 8, 8, 2, 2, 1})
	p := m.NewPartial()

	fixed, err := DenseMaster(p, 0.2)
	if err != nil {
		t.Fatalf("DenseMaster: %v", err)
	}
	// ⌊0.2·6⌋ = 1, so only the drop 9→8 is visible: exactly one constraint.
	if fixed != 1 {
		t.Fatalf("fixed %d constraints, want 1", fixed)
	}
	if cat, _ := p.ConsAssignment(0); cat != decomp.Master {
		t.Error("densest constraint c0 should be master")
	}
	if got := len(p.Masterconss()); got != 1 {
		t.Errorf("masterconss = %d, want 1", got)
	}
}

func TestDenseMasterWiderPrefixFindsLargerDrop(t *testing.T) {
	m := densityModel(t, []int{9, 8, 8, 2, 2, 1})
	p := m.NewPartial()

	fixed, err := DenseMaster(p, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	// Prefix length 3 exposes the drop 8→2, larger than 9→8.
	if fixed != 3 {
		t.Fatalf("fixed %d constraints, want 3", fixed)
	}
	for _, c := range []int{0, 1, 2} {
		if cat, _ := p.ConsAssignment(c); cat != decomp.Master {
			t.Errorf("c%d should be master", c)
		}
	}
}

func TestDenseMasterNoDrop(t *testing.T) {
	m := densityModel(t, []int{3, 3, 3, 3})
	p := m.NewPartial()

	fixed, err := DenseMaster(p, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if fixed != 0 {
		t.Errorf("fixed %d constraints on uniform density, want 0", fixed)
	}
	if p.NOpenConss() != m.NConss() {
		t.Error("no constraint should be assigned")
	}
}

func TestDenseMasterTooFewOpen(t *testing.T) {
	m := densityModel(t, []int{3})
	p := m.NewPartial()

	fixed, err := DenseMaster(p, DefaultDenseMasterRatio)
	if err != nil {
		t.Fatal(err)
	}
	if fixed != 0 {
		t.Errorf("fixed %d, want 0 with a single open constraint", fixed)
	}
}

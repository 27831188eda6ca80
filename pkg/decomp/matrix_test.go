package decomp

import (
	"errors"
	"math"
	"testing"

	"github.com/structmine/structmine/pkg/mip"
)

// testModel builds the model used throughout the core tests:
//
//	c0: v0 + v1        ≤ 1
//	c1:      v1 + v2   ≤ 1
//	c2:           v3   ≤ 1
//
// c0 and c1 are connected through v1; c2 is disjoint.
func testModel(t *testing.T) *mip.Model {
	t.Helper()
	m := mip.NewModel("core")
	for _, name := range []string{"v0", "v1", "v2", "v3"} {
		if _, err := m.AddVariable(mip.NewVariable(name, mip.VarBinary, 0, 1)); err != nil {
			t.Fatalf("AddVariable(%s): %v", name, err)
		}
	}
	rows := [][]int{{0, 1}, {1, 2}, {3}}
	for i, vars := range rows {
		c := mip.NewConstraint("c"+string(rune('0'+i)), math.Inf(-1), 1)
		for _, v := range vars {
			c.Coefs = append(c.Coefs, mip.Coef{Var: v, Value: 1.0})
		}
		m.AddConstraint(c)
	}
	return m
}

func buildMatrix(t *testing.T) *Matrix {
	t.Helper()
	m, err := Build(testModel(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func TestBuildIndexing(t *testing.T) {
	m := buildMatrix(t)

	if m.NConss() != 3 {
		t.Errorf("NConss() = %d, want 3", m.NConss())
	}
	if m.NVars() != 4 {
		t.Errorf("NVars() = %d, want 4", m.NVars())
	}
	if m.NNonzeros() != 5 {
		t.Errorf("NNonzeros() = %d, want 5", m.NNonzeros())
	}

	// Incidence symmetry: (c,v) in VarsForCons(c) iff c in ConssForVar(v).
	for c := 0; c < m.NConss(); c++ {
		for _, v := range m.VarsForCons(c) {
			found := false
			for _, back := range m.ConssForVar(v) {
				if back == c {
					found = true
				}
			}
			if !found {
				t.Errorf("nonzero (%d,%d) missing from ConssForVar", c, v)
			}
			if m.Coefficient(c, v) != 1.0 {
				t.Errorf("Coefficient(%d,%d) = %v, want 1", c, v, m.Coefficient(c, v))
			}
		}
	}

	if m.Coefficient(0, 3) != 0 {
		t.Errorf("Coefficient(0,3) = %v, want 0 (absent)", m.Coefficient(0, 3))
	}
}

func TestBuildSkipsExcludedAndZeros(t *testing.T) {
	model := testModel(t)
	model.Var(2).Excluded = true
	c := mip.NewConstraint("zero", math.Inf(-1), 1)
	c.Coefs = []mip.Coef{{Var: 0, Value: 0.0}}
	model.AddConstraint(c)
	gone := mip.NewConstraint("gone", math.Inf(-1), 1)
	gone.Excluded = true
	model.AddConstraint(gone)

	m, err := Build(model)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.NConss() != 4 {
		t.Errorf("NConss() = %d, want 4 (excluded row dropped)", m.NConss())
	}
	if m.NVars() != 3 {
		t.Errorf("NVars() = %d, want 3 (excluded column dropped)", m.NVars())
	}
	// c1 lost its v2 entry; the zero-coefficient row is empty.
	if got := m.NNonzerosOfCons(1); got != 1 {
		t.Errorf("NNonzerosOfCons(1) = %d, want 1", got)
	}
	if got := m.NNonzerosOfCons(3); got != 0 {
		t.Errorf("NNonzerosOfCons(zero) = %d, want 0", got)
	}
}

func TestBuildDuplicateNameFails(t *testing.T) {
	model := testModel(t)
	model.AddConstraint(mip.NewConstraint("c0", math.Inf(-1), 1))

	if _, err := Build(model); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("Build with duplicate row name: got %v, want ErrDuplicateName", err)
	}
}

func TestConssAdjacency(t *testing.T) {
	m := buildMatrix(t)

	if m.HasConssAdjacency() {
		t.Fatal("adjacency should be lazy")
	}
	if m.BuildConssAdjacency(2) {
		t.Fatal("threshold below NConss must refuse to build")
	}
	if !m.BuildConssAdjacency(DefaultAdjacencyThreshold) {
		t.Fatal("BuildConssAdjacency failed")
	}

	cases := []struct {
		cons string
		c    int
		want []int
	}{
		{"c0", 0, []int{1}},
		{"c1", 1, []int{0}},
		{"c2", 2, nil},
	}
	for _, tc := range cases {
		got := m.ConssAdjacency(tc.c)
		if len(got) != len(tc.want) {
			t.Errorf("ConssAdjacency(%s) = %v, want %v", tc.cons, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("ConssAdjacency(%s) = %v, want %v", tc.cons, got, tc.want)
			}
		}
	}
}

func TestAddCandidateNBlocks(t *testing.T) {
	m := buildMatrix(t)

	m.AddCandidateNBlocks(1, 5) // ignored
	m.AddCandidateNBlocks(0, 5) // ignored
	m.AddCandidateNBlocks(4, 2)
	m.AddCandidateNBlocks(4, 3)
	m.AddCandidateNBlocks(2, UserVotes)
	m.AddCandidateNBlocks(2, 1) // saturates, does not overflow

	got := m.BlockCandidates()
	if len(got) != 2 {
		t.Fatalf("BlockCandidates() has %d entries, want 2", len(got))
	}
	if got[0].Value != 2 || got[0].Votes != UserVotes {
		t.Errorf("top candidate = %+v, want value 2 with UserVotes", got[0])
	}
	if got[1].Value != 4 || got[1].Votes != 5 {
		t.Errorf("second candidate = %+v, want {4 5}", got[1])
	}
}

func TestPartitions(t *testing.T) {
	m := buildMatrix(t)

	part := NewPartition("constypes", m.NConss())
	pack := part.AddClass("setpacking")
	for c := 0; c < m.NConss(); c++ {
		if err := part.Assign(c, pack); err != nil {
			t.Fatalf("Assign: %v", err)
		}
	}
	if err := m.AddConsPartition(part); err != nil {
		t.Fatalf("AddConsPartition: %v", err)
	}
	if len(m.ConsPartitions()) != 1 {
		t.Fatalf("ConsPartitions() has %d entries, want 1", len(m.ConsPartitions()))
	}
	if got := part.Members(pack); len(got) != 3 {
		t.Errorf("Members(pack) = %v, want all 3 constraints", got)
	}

	wrong := NewPartition("short", 1)
	if err := m.AddConsPartition(wrong); err == nil {
		t.Error("AddConsPartition should reject a partition of the wrong size")
	}
}

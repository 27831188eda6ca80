package decomp

import (
	"errors"
	"testing"
)

// twoBlockPartial assigns c0,c1 and v0..v2 to one block and c2,v3 to another,
// with the block numbers given.
func twoBlockPartial(t *testing.T, m *Matrix, first, second int) *Partial {
	t.Helper()
	p := m.NewPartial()
	n := first
	if second > n {
		n = second
	}
	if err := p.EnsureBlocks(n + 1); err != nil {
		t.Fatal(err)
	}
	mustAssign(t, p.SetConsToBlock(0, first))
	mustAssign(t, p.SetConsToBlock(1, first))
	mustAssign(t, p.SetConsToBlock(2, second))
	for v := 0; v < 3; v++ {
		mustAssign(t, p.SetVarToBlock(v, first))
	}
	mustAssign(t, p.SetVarToBlock(3, second))
	return p
}

func TestEqualUnderBlockPermutation(t *testing.T) {
	m := buildMatrix(t)

	a := twoBlockPartial(t, m, 0, 1)
	b := twoBlockPartial(t, m, 1, 0)

	if !Equal(a, b) {
		t.Error("decompositions differing only by block numbering must be equal")
	}
	if !Equal(a, a.Copy()) {
		t.Error("a copy must be structurally equal to its parent")
	}
}

func TestNotEqual(t *testing.T) {
	m := buildMatrix(t)

	a := twoBlockPartial(t, m, 0, 1)

	b := m.NewPartial()
	if err := b.EnsureBlocks(2); err != nil {
		t.Fatal(err)
	}
	mustAssign(t, b.SetConsToBlock(0, 0))
	mustAssign(t, b.SetConsToMaster(1)) // differs: c1 in master
	mustAssign(t, b.SetConsToBlock(2, 1))
	for v := 0; v < 3; v++ {
		mustAssign(t, b.SetVarToBlock(v, 0))
	}
	mustAssign(t, b.SetVarToBlock(3, 1))

	if Equal(a, b) {
		t.Error("different master sets must not compare equal")
	}
}

func TestPoolDeduplication(t *testing.T) {
	m := buildMatrix(t)

	a := twoBlockPartial(t, m, 0, 1)
	b := twoBlockPartial(t, m, 1, 0)

	added, err := m.AddToFinished(a)
	if err != nil || !added {
		t.Fatalf("AddToFinished(a) = %v, %v", added, err)
	}
	added, err = m.AddToFinished(b)
	if err != nil {
		t.Fatalf("AddToFinished(b): %v", err)
	}
	if added {
		t.Error("structurally equal decomposition must be rejected")
	}
	if got := len(m.FinishedDecomps()); got != 1 {
		t.Errorf("finished pool size = %d, want 1", got)
	}
	if !m.HasEqualFinished(b) {
		t.Error("HasEqualFinished should report the duplicate")
	}
}

func TestAddToFinishedRequiresComplete(t *testing.T) {
	m := buildMatrix(t)
	p := m.NewPartial()

	if _, err := m.AddToFinished(p); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("AddToFinished(open) = %v, want ErrIncomplete", err)
	}
}

func TestOpenPoolOperations(t *testing.T) {
	m := buildMatrix(t)
	p := m.NewPartial()

	added, err := m.AddToOpen(p)
	if err != nil || !added {
		t.Fatalf("AddToOpen = %v, %v", added, err)
	}
	// The same object is structurally equal to itself.
	if added, _ := m.AddToOpen(p.Copy()); added {
		t.Error("open pool must reject structural duplicates")
	}
	if !m.RemoveFromOpen(p) {
		t.Error("RemoveFromOpen should report presence")
	}
	if len(m.OpenDecomps()) != 0 {
		t.Error("open pool should be empty")
	}

	other := buildMatrix(t)
	if _, err := m.AddToOpen(other.NewPartial()); !errors.Is(err, ErrForeignDecomp) {
		t.Errorf("foreign decomposition: got %v, want ErrForeignDecomp", err)
	}
}

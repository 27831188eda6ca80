package complete

import (
	"slices"

	"github.com/structmine/structmine/pkg/decomp"
)

// DefaultDenseMasterRatio bounds the sorted prefix examined by [DenseMaster]
// to the densest 20% of all constraints.
const DefaultDenseMasterRatio = 0.2

// DenseMaster fixes the densest open constraints to master. Open constraints
// are sorted descending by nonzero count; within the prefix of length
// ⌊maxRatio·NConss⌋ the single largest drop between consecutive counts is
// located, and every constraint strictly before that drop is fixed to master.
// Constraints far denser than their neighbors are coupling rows best kept in
// the border.
//
// Returns the number of constraints fixed; zero when no drop exists within
// the examined prefix.
func DenseMaster(p *decomp.Partial, maxRatio float64) (int, error) {
	m := p.Matrix()
	open := p.OpenConss()
	if len(open) < 2 {
		return 0, nil
	}

	slices.SortStableFunc(open, func(a, b int) int {
		return m.NNonzerosOfCons(b) - m.NNonzerosOfCons(a)
	})

	lastIndex := int(maxRatio * float64(m.NConss()))
	if lastIndex < 1 {
		lastIndex = 1
	}
	if lastIndex > len(open)-1 {
		lastIndex = len(open) - 1
	}

	bestDrop, bestAt := 0, -1
	for i := 0; i < lastIndex; i++ {
		drop := m.NNonzerosOfCons(open[i]) - m.NNonzerosOfCons(open[i+1])
		if drop > bestDrop {
			bestDrop, bestAt = drop, i
		}
	}
	if bestAt < 0 {
		return 0, nil
	}

	for i := 0; i <= bestAt; i++ {
		if err := p.SetConsToMaster(open[i]); err != nil {
			return i, err
		}
	}
	return bestAt + 1, p.Consistent()
}

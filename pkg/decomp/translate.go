package decomp

import (
	"slices"

	"github.com/structmine/structmine/pkg/mip"
)

// Translation is the result of translating decompositions from one matrix
// into another: the new decompositions plus the rows and columns of the
// source matrix for which no correspondence could be established. Missing
// elements are diagnostic only; they are never force-assigned.
type Translation struct {
	Decomps     []*Partial
	MissingRows []int // source constraint indices without a counterpart
	MissingCols []int // source variable indices without a counterpart
}

// Translate maps decompositions owned by m into the index space of target,
// which represents the same model before or after a transformation such as
// presolving.
//
// Row correspondence is established per row by transformed-constraint
// identity where the host exposes it ([mip.Constraint].Origin, in either
// direction), falling back to exact name equality. Column correspondence uses
// transformed-variable identity followed by resolution to the representative
// variable (aggregation-aware), with the same name fallback. Rows and columns
// with no correspondence are recorded as missing and left unassigned.
//
// Only constraint assignments and block-structure metadata carry over;
// variable assignments are not translated, since aggregation can change
// cardinalities. Detector-chain provenance is copied verbatim plus one new
// "translation" entry. The new decompositions are owned by target but not
// added to any of its pools.
func (m *Matrix) Translate(target *Matrix, decomps []*Partial) (*Translation, error) {
	rowMap := m.rowCorrespondence(target)
	colMap := m.colCorrespondence(target)

	result := &Translation{}
	for c, t := range rowMap {
		if t < 0 {
			result.MissingRows = append(result.MissingRows, c)
		}
	}
	for v, t := range colMap {
		if t < 0 {
			result.MissingCols = append(result.MissingCols, v)
		}
	}

	for _, src := range decomps {
		if src.m != m {
			return nil, ErrForeignDecomp
		}
		dst := newPartial(target)
		if err := dst.EnsureBlocks(src.nBlocks); err != nil {
			return nil, err
		}
		for c, cat := range src.consCat {
			t := rowMap[c]
			if t < 0 || cat == catOpen {
				continue // unmapped rows are omitted, never guessed
			}
			if cat == catMaster {
				if err := dst.SetConsToMaster(t); err != nil {
					return nil, err
				}
				continue
			}
			if err := dst.SetConsToBlock(t, cat); err != nil {
				return nil, err
			}
		}
		dst.chain = slices.Clone(src.chain)
		dst.AppendStep(Step{Detector: "translation"})
		dst.ancestors = append(slices.Clone(src.ancestors), src.id)
		dst.translatedFrom = src.id
		result.Decomps = append(result.Decomps, dst)
	}
	return result, nil
}

// rowCorrespondence maps each constraint index of m to a constraint index of
// target, or -1. Identity matching is tried in both directions before the
// name fallback; names inside one matrix are unique by construction.
func (m *Matrix) rowCorrespondence(target *Matrix) []int {
	rowMap := make([]int, m.NConss())
	for i := range rowMap {
		rowMap[i] = -1
	}
	matched := make([]bool, target.NConss())

	// Target rows that know their origin in m's provider.
	for t := 0; t < target.NConss(); t++ {
		o := target.provider.Cons(target.consOf[t]).Origin
		if o == mip.None {
			continue
		}
		if c := m.ConsIndexAt(o); c >= 0 && rowMap[c] < 0 {
			rowMap[c] = t
			matched[t] = true
		}
	}
	// Source rows that know their counterpart in target's provider.
	for c := 0; c < m.NConss(); c++ {
		if rowMap[c] >= 0 {
			continue
		}
		o := m.provider.Cons(m.consOf[c]).Origin
		if o == mip.None {
			continue
		}
		if t := target.ConsIndexAt(o); t >= 0 && !matched[t] {
			rowMap[c] = t
			matched[t] = true
		}
	}
	// Name fallback for whatever identity could not resolve.
	byName := make(map[string]int, target.NConss())
	for t := 0; t < target.NConss(); t++ {
		if !matched[t] {
			byName[target.ConsName(t)] = t
		}
	}
	for c := 0; c < m.NConss(); c++ {
		if rowMap[c] >= 0 {
			continue
		}
		if t, ok := byName[m.ConsName(c)]; ok && !matched[t] {
			rowMap[c] = t
			matched[t] = true
		}
	}
	return rowMap
}

// colCorrespondence maps each variable index of m to a variable index of
// target, or -1, resolving aggregation chains to representative variables.
func (m *Matrix) colCorrespondence(target *Matrix) []int {
	colMap := make([]int, m.NVars())
	for i := range colMap {
		colMap[i] = -1
	}
	matched := make([]bool, target.NVars())

	resolveTarget := func(providerPos int) int {
		return target.VarIndexAt(mip.Resolve(target.provider, providerPos))
	}

	for t := 0; t < target.NVars(); t++ {
		o := target.provider.Var(target.varOf[t]).Origin
		if o == mip.None {
			continue
		}
		if v := m.VarIndexAt(o); v >= 0 && colMap[v] < 0 {
			colMap[v] = t
			matched[t] = true
		}
	}
	for v := 0; v < m.NVars(); v++ {
		if colMap[v] >= 0 {
			continue
		}
		o := m.provider.Var(m.varOf[v]).Origin
		if o == mip.None {
			continue
		}
		if t := resolveTarget(o); t >= 0 && !matched[t] {
			colMap[v] = t
			matched[t] = true
		}
	}
	byName := make(map[string]int, target.NVars())
	for t := 0; t < target.NVars(); t++ {
		if !matched[t] {
			byName[target.VarName(t)] = t
		}
	}
	for v := 0; v < m.NVars(); v++ {
		if colMap[v] >= 0 {
			continue
		}
		if t, ok := byName[m.VarName(v)]; ok && !matched[t] {
			colMap[v] = t
			matched[t] = true
		}
	}
	return colMap
}

package decomp

import "slices"

// Equal reports whether two decompositions are structurally equal: after
// canonical sorting of per-block element lists, every block's constraint and
// variable sets match one-to-one under some block permutation, and the
// master, linking and open sets match exactly. Used for pool deduplication
// and duplicate-of-finished queries.
func Equal(a, b *Partial) bool {
	if a == b {
		return true
	}
	if a.m != b.m || a.nBlocks != b.nBlocks {
		return false
	}
	if a.nOpenConss != b.nOpenConss || a.nOpenVars != b.nOpenVars {
		return false
	}
	if !slices.Equal(a.Masterconss(), b.Masterconss()) {
		return false
	}
	if !slices.Equal(a.Mastervars(), b.Mastervars()) {
		return false
	}
	if !slices.Equal(a.Linkingvars(), b.Linkingvars()) {
		return false
	}
	if !slices.Equal(a.OpenConss(), b.OpenConss()) {
		return false
	}
	if !slices.Equal(a.OpenVars(), b.OpenVars()) {
		return false
	}

	ca, cb := canonicalBlocks(a), canonicalBlocks(b)
	for i := range ca {
		if !slices.Equal(ca[i].conss, cb[i].conss) || !slices.Equal(ca[i].vars, cb[i].vars) {
			return false
		}
		if !slices.Equal(ca[i].stairs, cb[i].stairs) {
			return false
		}
	}
	return true
}

// blockShape is the canonical form of one block: its sorted constraint and
// variable lists plus the stairlinking variables anchored at it (lower end).
type blockShape struct {
	conss  []int
	vars   []int
	stairs []int
}

// canonicalBlocks returns the blocks sorted lexicographically by constraint
// list, then variable list. Blocks with identical element lists are
// interchangeable, so the order is a true canonical form.
func canonicalBlocks(p *Partial) []blockShape {
	shapes := make([]blockShape, p.nBlocks)
	for b := 0; b < p.nBlocks; b++ {
		shapes[b] = blockShape{
			conss:  p.ConssForBlock(b),
			vars:   p.VarsForBlock(b),
			stairs: p.Stairlinkingvars(b),
		}
	}
	slices.SortFunc(shapes, func(x, y blockShape) int {
		if c := slices.Compare(x.conss, y.conss); c != 0 {
			return c
		}
		if c := slices.Compare(x.vars, y.vars); c != 0 {
			return c
		}
		return slices.Compare(x.stairs, y.stairs)
	})
	return shapes
}

package complete

import (
	"slices"

	"github.com/structmine/structmine/pkg/decomp"
)

// Greedily assigns all remaining open elements with a deterministic local
// heuristic. The policy, chosen to minimize newly introduced border
// elements at each step, is:
//
// Open constraints are visited in ascending index order. A constraint whose
// already-assigned variables all live in one block (stairlinking variables
// count for both of their blocks) and which contains no master variable is
// assigned to that block; every other constraint goes to master.
//
// Open variables are then classified by the distinct blocks their
// constraints were assigned to: exactly one block puts the variable in that
// block, two adjacent blocks make it stairlinking, any other combination of
// two or more makes it linking, and a variable touching no block goes to
// master. On return the decomposition is complete.
func Greedily(p *decomp.Partial) error {
	m := p.Matrix()

	for _, c := range p.OpenConss() {
		// allowed is the set of blocks compatible with every assigned
		// variable seen so far in this row; nil means unconstrained.
		var allowed []int
		toMaster := false
		for _, v := range m.VarsForCons(c) {
			cat, b := p.VarAssignment(v)
			switch cat {
			case decomp.Master:
				toMaster = true
			case decomp.Block:
				allowed = intersectBlocks(allowed, b)
			case decomp.Stairlinking:
				// Touches blocks b and b+1; compatible with either.
				allowed = intersectBlocks(allowed, b, b+1)
			}
			if toMaster || (allowed != nil && len(allowed) == 0) {
				toMaster = true
				break
			}
		}
		var err error
		if toMaster || len(allowed) != 1 {
			err = p.SetConsToMaster(c)
		} else {
			err = p.SetConsToBlock(c, allowed[0])
		}
		if err != nil {
			return err
		}
	}

	for _, v := range p.OpenVars() {
		blocks := p.BlocksForVar(v)
		var err error
		switch {
		case len(blocks) == 0:
			err = p.SetVarToMaster(v)
		case len(blocks) == 1:
			err = p.SetVarToBlock(v, blocks[0])
		case len(blocks) == 2 && blocks[1] == blocks[0]+1:
			err = p.SetVarToStairlinking(v, blocks[0])
		default:
			err = p.SetVarToLinking(v)
		}
		if err != nil {
			return err
		}
	}

	return p.Consistent()
}

// intersectBlocks narrows a candidate-block set to the blocks in next.
// A nil set is unconstrained and adopts next; an empty result marks a
// conflict.
func intersectBlocks(allowed []int, next ...int) []int {
	if allowed == nil {
		return next
	}
	out := allowed[:0]
	for _, b := range allowed {
		if slices.Contains(next, b) {
			out = append(out, b)
		}
	}
	return out
}

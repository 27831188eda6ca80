package complete

import (
	"fmt"

	"github.com/structmine/structmine/pkg/decomp"
)

// Postprocess shrinks the border of a complete decomposition: every master
// constraint whose non-master, non-stairlinking variables touch exactly one
// block, and which contains no static master or stairlinking variable, is
// reassigned into that block. Constraints touching zero or two-plus blocks,
// or containing a master/stairlinking variable, are locked and left alone.
//
// Reports whether at least one constraint was moved; a false result signals
// "did not find" to the pipeline. Applying Postprocess to its own output
// makes no further change for a fixed block assignment, since decisions
// depend only on variable assignments.
func Postprocess(p *decomp.Partial) (bool, error) {
	if !p.IsComplete() {
		return false, fmt.Errorf("postprocess: %w", decomp.ErrIncomplete)
	}
	m := p.Matrix()

	moved := false
	for _, c := range p.Masterconss() {
		target := -1
		locked := false
		for _, v := range m.VarsForCons(c) {
			cat, b := p.VarAssignment(v)
			switch cat {
			case decomp.Master, decomp.Stairlinking:
				locked = true
			case decomp.Block:
				if target < 0 {
					target = b
				} else if target != b {
					locked = true
				}
			}
			if locked {
				break
			}
		}
		if locked || target < 0 {
			continue
		}
		if err := p.SetConsToBlock(c, target); err != nil {
			return moved, err
		}
		moved = true
	}

	if err := p.Consistent(); err != nil {
		return moved, err
	}
	return moved, nil
}

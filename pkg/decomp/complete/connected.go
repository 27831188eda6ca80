package complete

import "github.com/structmine/structmine/pkg/decomp"

// ByConnected assigns every open constraint and variable by connected
// component. Open constraints and open variables form an implicit bipartite
// graph (edge = nonzero); variables already marked linking terminate
// expansion, since by definition they must not anchor a single block.
//
// Components are discovered in increasing index order of the open
// constraints and each component becomes a freshly allocated block. Open
// variables touching no surviving open constraint are assigned to block 0 if
// at least one block exists, otherwise to master. On return both open counts
// are zero.
func ByConnected(p *decomp.Partial) error {
	m := p.Matrix()

	visitedCons := make([]bool, m.NConss())
	visitedVar := make([]bool, m.NVars())

	for start := 0; start < m.NConss(); start++ {
		if visitedCons[start] {
			continue
		}
		if cat, _ := p.ConsAssignment(start); cat != decomp.Open {
			continue
		}

		comp := bfsComponent(p, start, visitedCons, visitedVar)

		block, err := p.AddBlock()
		if err != nil {
			return err
		}
		for _, c := range comp.conss {
			if err := p.SetConsToBlock(c, block); err != nil {
				return err
			}
		}
		for _, v := range comp.vars {
			if err := p.SetVarToBlock(v, block); err != nil {
				return err
			}
		}
	}

	// Leftover open variables touch no surviving open constraint.
	for _, v := range p.OpenVars() {
		var err error
		if p.NBlocks() > 0 {
			err = p.SetVarToBlock(v, 0)
		} else {
			err = p.SetVarToMaster(v)
		}
		if err != nil {
			return err
		}
	}

	return p.Consistent()
}

// component collects the members of one connected component.
type component struct {
	conss []int
	vars  []int
}

// bfsComponent runs an explicit-queue breadth-first search alternating
// constraint → variable → constraint from the given open constraint.
func bfsComponent(p *decomp.Partial, start int, visitedCons, visitedVar []bool) component {
	m := p.Matrix()
	var comp component

	queue := []int{start}
	visitedCons[start] = true

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		comp.conss = append(comp.conss, c)

		for _, v := range m.VarsForCons(c) {
			if visitedVar[v] {
				continue
			}
			visitedVar[v] = true
			if cat, _ := p.VarAssignment(v); cat != decomp.Open {
				continue // linking and assigned variables do not propagate
			}
			comp.vars = append(comp.vars, v)

			for _, other := range m.ConssForVar(v) {
				if visitedCons[other] {
					continue
				}
				if cat, _ := p.ConsAssignment(other); cat != decomp.Open {
					continue
				}
				visitedCons[other] = true
				queue = append(queue, other)
			}
		}
	}

	return comp
}

package complete

import (
	"github.com/structmine/structmine/pkg/decomp"
	"github.com/structmine/structmine/pkg/mip"
)

// SetPackingToMaster fixes every open set-packing constraint to master.
// Returns the number of constraints fixed. Type rules never touch variables
// and never create blocks.
func SetPackingToMaster(p *decomp.Partial) (int, error) {
	return fixOpenByType(p, func(t mip.ConsType) bool { return t == mip.TypeSetPacking })
}

// SetPartitioningToMaster fixes every open set-partitioning constraint to
// master. Returns the number of constraints fixed.
func SetPartitioningToMaster(p *decomp.Partial) (int, error) {
	return fixOpenByType(p, func(t mip.ConsType) bool { return t == mip.TypeSetPartitioning })
}

// SetCoveringToMaster fixes every open set-covering (or logical-OR)
// constraint to master. Returns the number of constraints fixed.
func SetCoveringToMaster(p *decomp.Partial) (int, error) {
	return fixOpenByType(p, func(t mip.ConsType) bool { return t == mip.TypeSetCovering })
}

func fixOpenByType(p *decomp.Partial, match func(mip.ConsType) bool) (int, error) {
	m := p.Matrix()
	fixed := 0
	for _, c := range p.OpenConss() {
		if !match(m.ConsType(c)) {
			continue
		}
		if err := p.SetConsToMaster(c); err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, p.Consistent()
}

// GeneralSetpackToMaster fixes every open constraint satisfying the combined
// master rule: any set-type (partitioning, packing, covering, logical-OR)
// constraint, or an inequality a·x ≤ b with finite non-negative b, all
// coefficients exactly 1.0 and all variables integral or binary.
// Returns the number of constraints fixed.
func GeneralSetpackToMaster(p *decomp.Partial) (int, error) {
	m := p.Matrix()
	prov := m.Provider()
	fixed := 0
	for _, c := range p.OpenConss() {
		if !mip.MasterRulePredicate(prov, m.ConsModelPos(c)) {
			continue
		}
		if err := p.SetConsToMaster(c); err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, p.Consistent()
}

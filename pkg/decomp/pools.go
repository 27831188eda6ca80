package decomp

import "slices"

// AddToOpen inserts a decomposition into the open pool. Insertion is rejected
// (false, nil) when a structurally equal decomposition is already present.
func (m *Matrix) AddToOpen(p *Partial) (bool, error) {
	if p.m != m {
		return false, ErrForeignDecomp
	}
	for _, other := range m.open {
		if Equal(p, other) {
			return false, nil
		}
	}
	m.open = append(m.open, p)
	return true, nil
}

// AddToFinished inserts a complete decomposition into the finished pool and
// freezes it. Returns ErrIncomplete for decompositions with open elements and
// (false, nil) when a structurally equal decomposition is already finished.
func (m *Matrix) AddToFinished(p *Partial) (bool, error) {
	if p.m != m {
		return false, ErrForeignDecomp
	}
	if !p.IsComplete() {
		return false, ErrIncomplete
	}
	for _, other := range m.finished {
		if Equal(p, other) {
			return false, nil
		}
	}
	p.freeze()
	m.finished = append(m.finished, p)
	return true, nil
}

// AddToAncestors records a decomposition as historical. Ancestors are kept
// for lineage queries only and are never handed to detectors again.
func (m *Matrix) AddToAncestors(p *Partial) {
	if p.m != m {
		return
	}
	m.ancestors = append(m.ancestors, p)
}

// RemoveFromOpen evicts a decomposition from the open pool.
// Reports whether it was present.
func (m *Matrix) RemoveFromOpen(p *Partial) bool {
	for i, other := range m.open {
		if other == p {
			m.open = slices.Delete(m.open, i, i+1)
			return true
		}
	}
	return false
}

// OpenDecomps returns the open pool. The returned slice is a copy; the
// decompositions are shared.
func (m *Matrix) OpenDecomps() []*Partial { return slices.Clone(m.open) }

// FinishedDecomps returns the finished pool as a copy.
func (m *Matrix) FinishedDecomps() []*Partial { return slices.Clone(m.finished) }

// AncestorDecomps returns the ancestor pool as a copy.
func (m *Matrix) AncestorDecomps() []*Partial { return slices.Clone(m.ancestors) }

// HasEqualFinished reports whether a structurally equal decomposition is
// already in the finished pool.
func (m *Matrix) HasEqualFinished(p *Partial) bool {
	for _, other := range m.finished {
		if Equal(p, other) {
			return true
		}
	}
	return false
}

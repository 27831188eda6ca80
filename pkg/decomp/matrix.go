package decomp

import (
	"fmt"
	"slices"

	"github.com/structmine/structmine/pkg/mip"
)

// DefaultAdjacencyThreshold is the constraint-count limit below which
// [Matrix.BuildConssAdjacency] builds the constraint adjacency cache.
// The cache is quadratic-ish in row density and too expensive on big models.
const DefaultAdjacencyThreshold = 20000

// nzKey addresses one nonzero entry of the sparse coefficient map.
type nzKey struct{ cons, v int }

// Matrix is the incidence structure of one model: dense indices for all
// relevant constraints and variables, the bipartite nonzero relation with its
// derived adjacency caches, named partitions, block-number candidates, and
// the three decomposition pools.
//
// A Matrix is read-only after [Build] except for the lazily built adjacency
// cache, partitions, candidates and pools. It exclusively owns every
// [Partial] reachable through its pools.
type Matrix struct {
	provider mip.Provider

	consOf []int // matrix index -> provider position
	varOf  []int
	consAt []int // provider position -> matrix index, -1 if not indexed
	varAt  []int

	varsForCons [][]int     // ordered by coefficient insertion order
	valsForCons [][]float64 // parallel to varsForCons
	conssForVar [][]int
	coefs       map[nzKey]float64
	nNonzeros   int

	consAdjacency [][]int // nil until BuildConssAdjacency
	consTypes     []mip.ConsType

	consPartitions []*Partition
	varPartitions  []*Partition

	candidates []BlockCandidate

	open      []*Partial
	finished  []*Partial
	ancestors []*Partial
}

// Build indexes all non-excluded constraints and variables of the provider
// and populates the nonzero relation in one pass per constraint row, skipping
// zero-valued coefficients and excluded variables. Runs in O(total nonzeros).
//
// Build fails only on an inconsistent host model: a duplicate constraint or
// variable name among the indexed elements (identity matching during
// translation requires unique names).
func Build(p mip.Provider) (*Matrix, error) {
	m := &Matrix{
		provider: p,
		consAt:   make([]int, p.NConss()),
		varAt:    make([]int, p.NVars()),
		coefs:    make(map[nzKey]float64),
	}

	seenCons := make(map[string]bool)
	for pos := 0; pos < p.NConss(); pos++ {
		c := p.Cons(pos)
		if c.Excluded {
			m.consAt[pos] = -1
			continue
		}
		if seenCons[c.Name] {
			return nil, fmt.Errorf("%w: constraint %q", ErrDuplicateName, c.Name)
		}
		seenCons[c.Name] = true
		m.consAt[pos] = len(m.consOf)
		m.consOf = append(m.consOf, pos)
	}

	seenVar := make(map[string]bool)
	for pos := 0; pos < p.NVars(); pos++ {
		v := p.Var(pos)
		if v.Excluded {
			m.varAt[pos] = -1
			continue
		}
		if seenVar[v.Name] {
			return nil, fmt.Errorf("%w: variable %q", ErrDuplicateName, v.Name)
		}
		seenVar[v.Name] = true
		m.varAt[pos] = len(m.varOf)
		m.varOf = append(m.varOf, pos)
	}

	m.varsForCons = make([][]int, len(m.consOf))
	m.valsForCons = make([][]float64, len(m.consOf))
	m.conssForVar = make([][]int, len(m.varOf))
	m.consTypes = make([]mip.ConsType, len(m.consOf))

	for ci, pos := range m.consOf {
		row := p.Cons(pos)
		for _, e := range row.Coefs {
			if e.Value == 0 {
				continue
			}
			vi := m.varAt[e.Var]
			if vi < 0 {
				continue
			}
			m.varsForCons[ci] = append(m.varsForCons[ci], vi)
			m.valsForCons[ci] = append(m.valsForCons[ci], e.Value)
			m.conssForVar[vi] = append(m.conssForVar[vi], ci)
			m.coefs[nzKey{ci, vi}] = e.Value
			m.nNonzeros++
		}
		m.consTypes[ci] = mip.Classify(p, pos)
	}

	return m, nil
}

// Name returns the model name of the underlying provider.
func (m *Matrix) Name() string { return m.provider.Name() }

// Provider returns the underlying model provider.
func (m *Matrix) Provider() mip.Provider { return m.provider }

// NConss returns the number of indexed constraints.
func (m *Matrix) NConss() int { return len(m.consOf) }

// NVars returns the number of indexed variables.
func (m *Matrix) NVars() int { return len(m.varOf) }

// NNonzeros returns the number of nonzero entries.
func (m *Matrix) NNonzeros() int { return m.nNonzeros }

// VarsForCons returns the variable indices of constraint c in coefficient
// insertion order. The returned slice is a read-only view.
func (m *Matrix) VarsForCons(c int) []int { return m.varsForCons[c] }

// ValsForCons returns the coefficient values parallel to VarsForCons(c).
// The returned slice is a read-only view.
func (m *Matrix) ValsForCons(c int) []float64 { return m.valsForCons[c] }

// ConssForVar returns the constraint indices containing variable v.
// The returned slice is a read-only view.
func (m *Matrix) ConssForVar(v int) []int { return m.conssForVar[v] }

// Coefficient returns the value of the nonzero (c, v), or 0 if absent.
func (m *Matrix) Coefficient(c, v int) float64 { return m.coefs[nzKey{c, v}] }

// NNonzerosOfCons returns the number of nonzeros in constraint c.
func (m *Matrix) NNonzerosOfCons(c int) int { return len(m.varsForCons[c]) }

// ConsType returns the cached structural class of constraint c.
func (m *Matrix) ConsType(c int) mip.ConsType { return m.consTypes[c] }

// ConsName returns the host name of constraint c.
func (m *Matrix) ConsName(c int) string { return m.provider.Cons(m.consOf[c]).Name }

// VarName returns the host name of variable v.
func (m *Matrix) VarName(v int) string { return m.provider.Var(m.varOf[v]).Name }

// ConsModelPos returns the provider position of constraint c.
func (m *Matrix) ConsModelPos(c int) int { return m.consOf[c] }

// VarModelPos returns the provider position of variable v.
func (m *Matrix) VarModelPos(v int) int { return m.varOf[v] }

// ConsIndexAt returns the matrix index of the constraint at the given
// provider position, or -1 if that row is not indexed.
func (m *Matrix) ConsIndexAt(providerPos int) int {
	if providerPos < 0 || providerPos >= len(m.consAt) {
		return -1
	}
	return m.consAt[providerPos]
}

// VarIndexAt returns the matrix index of the variable at the given provider
// position, or -1 if that column is not indexed.
func (m *Matrix) VarIndexAt(providerPos int) int {
	if providerPos < 0 || providerPos >= len(m.varAt) {
		return -1
	}
	return m.varAt[providerPos]
}

// BuildConssAdjacency builds the constraint adjacency cache: for each
// constraint, the sorted set of other constraints sharing at least one
// variable. The cache is built at most once and only when NConss() is at or
// below threshold; pass [DefaultAdjacencyThreshold] unless configured
// otherwise. Reports whether the cache is available afterwards.
func (m *Matrix) BuildConssAdjacency(threshold int) bool {
	if m.consAdjacency != nil {
		return true
	}
	if m.NConss() > threshold {
		return false
	}
	m.consAdjacency = make([][]int, m.NConss())
	for c := range m.consAdjacency {
		seen := map[int]bool{c: true}
		var adj []int
		for _, v := range m.varsForCons[c] {
			for _, other := range m.conssForVar[v] {
				if !seen[other] {
					seen[other] = true
					adj = append(adj, other)
				}
			}
		}
		slices.Sort(adj)
		m.consAdjacency[c] = adj
	}
	return true
}

// ConssAdjacency returns the adjacency of constraint c, or nil if the cache
// has not been built.
func (m *Matrix) ConssAdjacency(c int) []int {
	if m.consAdjacency == nil {
		return nil
	}
	return m.consAdjacency[c]
}

// HasConssAdjacency reports whether the adjacency cache is available.
func (m *Matrix) HasConssAdjacency() bool { return m.consAdjacency != nil }

// NewPartial creates a fresh all-open decomposition owned by this matrix.
// The caller is responsible for adding it to a pool.
func (m *Matrix) NewPartial() *Partial { return newPartial(m) }

package mip

import "math"

// ConsType is the structural class of a constraint row. Classification looks
// only at the row shape (sense, sides, coefficient values) and the types of
// the referenced variables; it never inspects bounds beyond integrality.
type ConsType byte

const (
	// TypeGeneral is any row not matching a more specific class.
	TypeGeneral ConsType = iota
	// TypeEmpty is a row with no nonzero coefficients.
	TypeEmpty
	// TypeSetPartitioning is Σ x_i = 1 over binaries with unit coefficients.
	TypeSetPartitioning
	// TypeSetPacking is Σ x_i ≤ 1 over binaries with unit coefficients.
	TypeSetPacking
	// TypeSetCovering is Σ x_i ≥ 1 over binaries with unit coefficients.
	// Logical-OR clauses have this shape and classify identically.
	TypeSetCovering
	// TypeCardinality is Σ x_i = b with integer b ≥ 2 over binaries.
	TypeCardinality
	// TypeInvariantKnapsack is Σ x_i ≤ b with integer b ≥ 2 over binaries.
	TypeInvariantKnapsack
	// TypeEquation is a general equality row.
	TypeEquation
	// TypeRanged is a general two-sided row.
	TypeRanged
)

// String returns the class name.
func (t ConsType) String() string {
	switch t {
	case TypeEmpty:
		return "empty"
	case TypeSetPartitioning:
		return "setpartitioning"
	case TypeSetPacking:
		return "setpacking"
	case TypeSetCovering:
		return "setcovering"
	case TypeCardinality:
		return "cardinality"
	case TypeInvariantKnapsack:
		return "invariantknapsack"
	case TypeEquation:
		return "equation"
	case TypeRanged:
		return "ranged"
	default:
		return "general"
	}
}

// IsSetType reports whether the class is one of the set-constraint shapes
// (partitioning, packing, covering). Logical-OR clauses are covered by
// TypeSetCovering.
func (t ConsType) IsSetType() bool {
	return t == TypeSetPartitioning || t == TypeSetPacking || t == TypeSetCovering
}

// Classify determines the structural class of the row at position i.
func Classify(p Provider, i int) ConsType {
	c := p.Cons(i)
	if len(c.Coefs) == 0 {
		return TypeEmpty
	}

	unitBinary := true
	for _, e := range c.Coefs {
		if e.Value != 1.0 || p.Var(e.Var).Type != VarBinary {
			unitBinary = false
			break
		}
	}

	if unitBinary {
		switch c.Sense() {
		case SenseEQ:
			if c.RHS == 1.0 {
				return TypeSetPartitioning
			}
			if c.RHS >= 2.0 && c.RHS == math.Trunc(c.RHS) {
				return TypeCardinality
			}
		case SenseLE:
			if c.RHS == 1.0 {
				return TypeSetPacking
			}
			if c.RHS >= 2.0 && c.RHS == math.Trunc(c.RHS) {
				return TypeInvariantKnapsack
			}
		case SenseGE:
			if c.LHS == 1.0 {
				return TypeSetCovering
			}
		}
	}

	switch c.Sense() {
	case SenseEQ:
		return TypeEquation
	case SenseRange:
		return TypeRanged
	default:
		return TypeGeneral
	}
}

// MasterRulePredicate reports whether the row at position i satisfies the
// master-fixing rule used by type-rule completion: either a set-type (or
// logical-OR) row, or an inequality a·x ≤ b with b finite and non-negative,
// every coefficient exactly 1.0 and every referenced variable integral.
func MasterRulePredicate(p Provider, i int) bool {
	if Classify(p, i).IsSetType() {
		return true
	}
	c := p.Cons(i)
	if len(c.Coefs) == 0 {
		return false
	}
	if c.Sense() != SenseLE || math.IsInf(c.RHS, 1) || c.RHS < 0 {
		return false
	}
	for _, e := range c.Coefs {
		if e.Value != 1.0 || !p.Var(e.Var).Type.Integral() {
			return false
		}
	}
	return true
}

// Package mip holds the in-memory model of a mixed-integer program as seen by
// the decomposition engine: named constraints and variables, per-constraint
// coefficient rows, and structural classification of constraints.
//
// The engine never solves the model and never reads numeric data beyond the
// nonzero pattern and the shapes needed for classification. Models are
// typically read from MPS files (see [ReadMPS]) or constructed directly by a
// host solver implementing [Provider].
package mip

import (
	"math"

	"github.com/structmine/structmine/pkg/errors"
)

// Sense describes the relational form of a constraint row.
type Sense byte

const (
	// SenseLE is an inequality a·x ≤ rhs (lhs = -inf).
	SenseLE Sense = iota
	// SenseGE is an inequality a·x ≥ lhs (rhs = +inf).
	SenseGE
	// SenseEQ is an equation a·x = rhs (lhs = rhs).
	SenseEQ
	// SenseRange is a two-sided row lhs ≤ a·x ≤ rhs with lhs < rhs, both finite.
	SenseRange
	// SenseFree is a non-binding row (both sides infinite).
	SenseFree
)

// String returns the MPS-style letter for the sense.
func (s Sense) String() string {
	switch s {
	case SenseLE:
		return "L"
	case SenseGE:
		return "G"
	case SenseEQ:
		return "E"
	case SenseRange:
		return "R"
	default:
		return "N"
	}
}

// VarType describes the domain of a variable.
type VarType byte

const (
	// VarContinuous is a real-valued variable.
	VarContinuous VarType = iota
	// VarBinary is an integer variable with bounds {0,1}.
	VarBinary
	// VarInteger is a general integer variable.
	VarInteger
)

// String returns a short name for the variable type.
func (t VarType) String() string {
	switch t {
	case VarBinary:
		return "binary"
	case VarInteger:
		return "integer"
	default:
		return "continuous"
	}
}

// Integral reports whether the variable type is binary or integer.
func (t VarType) Integral() bool {
	return t == VarBinary || t == VarInteger
}

// None marks an absent cross-model identity (no transformed counterpart,
// no aggregation representative).
const None = -1

// Coef is one nonzero entry of a constraint row, referencing a variable by
// its position in the owning model.
type Coef struct {
	Var   int     // variable position in the model
	Value float64 // coefficient value, never 0 in a well-formed row
}

// Constraint is one row of the model. LHS/RHS are the activity bounds; an
// inequality a·x ≤ b has LHS = -inf, RHS = b.
type Constraint struct {
	Name  string
	LHS   float64
	RHS   float64
	Coefs []Coef

	// Excluded marks rows the host has deleted or made obsolete. Excluded
	// rows are never indexed by the incidence matrix.
	Excluded bool

	// Origin is the position of this row's counterpart in the model this one
	// was transformed from (e.g. the original problem before presolving), or
	// None if the host does not expose that identity.
	Origin int
}

// Sense derives the relational form from the activity bounds.
func (c *Constraint) Sense() Sense {
	lInf := math.IsInf(c.LHS, -1)
	rInf := math.IsInf(c.RHS, 1)
	switch {
	case lInf && rInf:
		return SenseFree
	case lInf:
		return SenseLE
	case rInf:
		return SenseGE
	case c.LHS == c.RHS:
		return SenseEQ
	default:
		return SenseRange
	}
}

// NewConstraint creates a row with no cross-model identity.
func NewConstraint(name string, lhs, rhs float64) *Constraint {
	return &Constraint{Name: name, LHS: lhs, RHS: rhs, Origin: None}
}

// Variable is one column of the model.
type Variable struct {
	Name string
	Type VarType
	LB   float64
	UB   float64

	// Excluded marks columns the host has deleted, aggregated away, or fixed
	// to zero. Excluded columns are never indexed by the incidence matrix.
	Excluded bool

	// Origin is the position of this column's counterpart in the model this
	// one was transformed from, or None.
	Origin int

	// Representative is the position (in the same model) of the variable this
	// one was aggregated into, or None if the variable represents itself.
	// Translation resolves columns through this chain.
	Representative int
}

// NewVariable creates a column with no cross-model identity.
func NewVariable(name string, t VarType, lb, ub float64) *Variable {
	return &Variable{Name: name, Type: t, LB: lb, UB: ub, Origin: None, Representative: None}
}

// Provider is the read-only surface the decomposition engine consumes.
// A host solver exposes its constraint/variable universe through this
// interface; [Model] is the self-contained implementation used by the CLI.
//
// Implementations must return stable pointers: the engine keys classification
// caches on constraint positions and re-reads rows during completion.
type Provider interface {
	// Name identifies the model (diagnostics and cache keys).
	Name() string
	// NConss returns the total number of rows, including excluded ones.
	NConss() int
	// NVars returns the total number of columns, including excluded ones.
	NVars() int
	// Cons returns the row at position i, 0 ≤ i < NConss().
	Cons(i int) *Constraint
	// Var returns the column at position j, 0 ≤ j < NVars().
	Var(j int) *Variable
}

// Model is an in-memory Provider implementation.
// The zero value is usable; use AddVariable/AddConstraint to populate it.
type Model struct {
	ModelName string
	Conss     []*Constraint
	Vars      []*Variable

	varIndex map[string]int
}

// NewModel creates an empty model with the given name.
func NewModel(name string) *Model {
	return &Model{ModelName: name, varIndex: make(map[string]int)}
}

// Name returns the model name.
func (m *Model) Name() string { return m.ModelName }

// NConss returns the number of rows.
func (m *Model) NConss() int { return len(m.Conss) }

// NVars returns the number of columns.
func (m *Model) NVars() int { return len(m.Vars) }

// Cons returns the row at position i.
func (m *Model) Cons(i int) *Constraint { return m.Conss[i] }

// Var returns the column at position j.
func (m *Model) Var(j int) *Variable { return m.Vars[j] }

// AddVariable appends a column and returns its position.
// Returns an error if a column with the same name already exists.
func (m *Model) AddVariable(v *Variable) (int, error) {
	if m.varIndex == nil {
		m.varIndex = make(map[string]int)
	}
	if _, exists := m.varIndex[v.Name]; exists {
		return 0, errors.New(errors.ErrCodeModelInconsistent, "duplicate variable name: %s", v.Name)
	}
	pos := len(m.Vars)
	m.Vars = append(m.Vars, v)
	m.varIndex[v.Name] = pos
	return pos, nil
}

// AddConstraint appends a row and returns its position.
func (m *Model) AddConstraint(c *Constraint) int {
	pos := len(m.Conss)
	m.Conss = append(m.Conss, c)
	return pos
}

// VarByName returns the position of the named column, or None.
func (m *Model) VarByName(name string) int {
	if pos, ok := m.varIndex[name]; ok {
		return pos
	}
	return None
}

// Resolve follows aggregation chains to the representative column position.
// Positions without a representative resolve to themselves.
func Resolve(p Provider, j int) int {
	for {
		v := p.Var(j)
		if v.Representative == None || v.Representative == j {
			return j
		}
		j = v.Representative
	}
}

var _ Provider = (*Model)(nil)

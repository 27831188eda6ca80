package decomp

import "fmt"

// Partition is a named classification assigning each element of one index
// space (constraints or variables) a class id. Class -1 means unclassified.
type Partition struct {
	name    string
	classes []string
	of      []int
}

// NewPartition creates a partition over n elements, all unclassified.
func NewPartition(name string, n int) *Partition {
	p := &Partition{name: name, of: make([]int, n)}
	for i := range p.of {
		p.of[i] = -1
	}
	return p
}

// Name returns the partition name.
func (p *Partition) Name() string { return p.name }

// AddClass registers a class name and returns its id.
func (p *Partition) AddClass(name string) int {
	p.classes = append(p.classes, name)
	return len(p.classes) - 1
}

// NClasses returns the number of registered classes.
func (p *Partition) NClasses() int { return len(p.classes) }

// ClassName returns the name of a class id.
func (p *Partition) ClassName(class int) string { return p.classes[class] }

// Assign puts element i into the given class.
func (p *Partition) Assign(i, class int) error {
	if i < 0 || i >= len(p.of) {
		return fmt.Errorf("%w: element %d", ErrIndexRange, i)
	}
	if class < -1 || class >= len(p.classes) {
		return fmt.Errorf("partition %s: class %d of %d", p.name, class, len(p.classes))
	}
	p.of[i] = class
	return nil
}

// ClassOf returns the class id of element i, -1 if unclassified.
func (p *Partition) ClassOf(i int) int { return p.of[i] }

// Members returns the elements assigned to the given class, in index order.
func (p *Partition) Members(class int) []int {
	var out []int
	for i, c := range p.of {
		if c == class {
			out = append(out, i)
		}
	}
	return out
}

// AddConsPartition registers a constraint classification with the matrix.
// The partition must cover exactly NConss() elements.
func (m *Matrix) AddConsPartition(p *Partition) error {
	if len(p.of) != m.NConss() {
		return fmt.Errorf("%w: partition %s covers %d of %d constraints", ErrIndexRange, p.name, len(p.of), m.NConss())
	}
	m.consPartitions = append(m.consPartitions, p)
	return nil
}

// AddVarPartition registers a variable classification with the matrix.
// The partition must cover exactly NVars() elements.
func (m *Matrix) AddVarPartition(p *Partition) error {
	if len(p.of) != m.NVars() {
		return fmt.Errorf("%w: partition %s covers %d of %d variables", ErrIndexRange, p.name, len(p.of), m.NVars())
	}
	m.varPartitions = append(m.varPartitions, p)
	return nil
}

// ConsPartitions returns the registered constraint classifications.
func (m *Matrix) ConsPartitions() []*Partition { return m.consPartitions }

// VarPartitions returns the registered variable classifications.
func (m *Matrix) VarPartitions() []*Partition { return m.varPartitions }

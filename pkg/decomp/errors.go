package decomp

import "errors"

var (
	// ErrIncomplete is returned by [Matrix.AddToFinished] when the
	// decomposition still has open constraints or variables.
	ErrIncomplete = errors.New("decomposition is not complete")

	// ErrFrozen is returned by Partial mutators after the decomposition has
	// been moved into the finished pool. Finished decompositions are
	// immutable; only scoring reads them.
	ErrFrozen = errors.New("decomposition is finished and immutable")

	// ErrBlockRange is returned when a block index is negative or not below
	// the current block count.
	ErrBlockRange = errors.New("block index out of range")

	// ErrIndexRange is returned when a constraint or variable index is
	// outside [0, n).
	ErrIndexRange = errors.New("element index out of range")

	// ErrForeignDecomp is returned by pool operations when the decomposition
	// belongs to a different matrix.
	ErrForeignDecomp = errors.New("decomposition owned by another matrix")

	// ErrInconsistent is wrapped by [Partial.Consistent] when a decomposition
	// violates a structural invariant (uncategorized element, bad block
	// reference, ill-placed linking or stairlinking variable). This indicates
	// a defective detector implementation and aborts the detection run.
	ErrInconsistent = errors.New("inconsistent decomposition")

	// ErrDuplicateName is wrapped when name-based row or column matching
	// during translation hits a name used more than once.
	ErrDuplicateName = errors.New("duplicate element name")
)

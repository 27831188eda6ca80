// Package decomp implements the structural decomposition core: the incidence
// matrix of a mixed-integer program and the partial decompositions built on
// top of it.
//
// A [Matrix] indexes the relevant constraints and variables of a model with
// dense integer indices and owns the bipartite nonzero relation, derived
// adjacency caches, named partitions, block-number candidates, and the three
// decomposition pools (open, finished, ancestor). A [Partial] assigns every
// constraint to {open, master, block} and every variable to {open, master,
// linking, block, stairlinking}; it is advanced toward completeness by the
// algorithms in the complete subpackage, orchestrated by the detect package.
//
// The package is not safe for concurrent mutation; detectors run strictly
// sequentially and exactly one of them may mutate a given Partial at a time.
package decomp

// Package complete provides the completion algorithms that resolve the open
// sets of a partial decomposition: connectivity search, constraint-type
// master rules, density-gap master fixing, greedy completion, and the
// border-reduction postprocessing step.
//
// All algorithms operate only on open elements (postprocessing excepted,
// which requires a complete decomposition) and leave the decomposition
// consistent on return. They are deterministic: elements are visited in
// increasing index order and never chosen randomly.
package complete

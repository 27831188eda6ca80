// Package detect orchestrates structure detectors over the open pool of
// partial decompositions.
//
// A detector is polymorphic over three capabilities: Propagate (advance an
// incomplete decomposition, possibly producing successors), Finish (force a
// complete decomposition) and Postprocess (improve an already complete one).
// Detectors carry static metadata (name, single-character tag, priority) and
// are driven round-by-round by a [Pipeline] holding an explicit [Registry];
// there is no global detector state.
//
// Detection is strictly sequential. Within a round the pipeline hands each
// open decomposition to each eligible detector exactly once and moves results
// between the matrix-owned open and finished pools between calls.
package detect

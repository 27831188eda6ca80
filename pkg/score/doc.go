// Package score rates complete decompositions on a [0,1] scale.
//
// Every score is a pure function of the incidence matrix and one
// decomposition; scores never mutate their input. [Evaluate] caches each
// value on the decomposition per score name, so repeated ranking passes pay
// for a score once.
package score

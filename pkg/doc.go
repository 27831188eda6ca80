// Package pkg provides the core libraries for Structmine structure detection.
//
// # Overview
//
// Structmine analyzes the incidence matrix of a mixed-integer program and
// detects bordered block-diagonal structure suitable for Dantzig-Wolfe
// reformulation. The pkg directory is organized into four main areas:
//
//  1. [mip] / [decomp] - Domain logic (models, incidence matrix, decompositions)
//  2. [detect] / [score] - Detection rounds and decomposition quality scores
//  3. [cache] / [store] - Infrastructure (detection cache, run history)
//  4. [pipeline] - Orchestration (parse → detect → score)
//
// # Architecture
//
// The typical data flow through Structmine:
//
//	MPS file
//	     ↓
//	[mip] package (parse model, classify constraints)
//	     ↓
//	[decomp] package (incidence matrix + partial decompositions)
//	     ↓
//	[detect] package (detector rounds over the open pool)
//	     ↓
//	[score] package (rank finished decompositions)
//	     ↓
//	[render] package (DOT/SVG/PNG output)
//
// # Quick Start
//
// Detect structure and render the best decomposition:
//
//	import (
//	    "context"
//	    "github.com/structmine/structmine/pkg/pipeline"
//	    "github.com/structmine/structmine/pkg/render"
//	)
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, _ := runner.Execute(context.Background(), pipeline.Options{
//	    Path: "model.mps",
//	})
//	dot := render.ToDOT(result.Best, render.Options{})
//
// # Main Packages
//
// ## Domain Logic
//
// [mip] - MIP model types, MPS parsing, and constraint classification
// (set-partitioning, set-packing, set-covering, cardinality, knapsack).
//
// [decomp] - The incidence matrix, partial decompositions with their
// assignment invariants, decomposition pools, and equality.
//
// [decomp/complete] - Completion algorithms that turn partial decompositions
// into complete ones: connected components, constraint-type rules, dense
// master rows, border postprocessing, and the greedy fallback.
//
// ## Detection
//
// [detect] - Detector interfaces, per-detector configuration, the registry,
// and the round-based detection pipeline.
//
// [score] - Decomposition quality scores (classic, bender,
// maxforeseeingwhite, set-partitioning aware) and ranking.
//
// ## Infrastructure
//
// [cache] - Detection cache with file, Redis, and null backends plus content
// hashing and key derivation.
//
// [store] - Run history persistence with memory, file, and MongoDB backends.
//
// [observability] - Process-wide hooks for pipeline and cache events.
//
// ## Orchestration
//
// [pipeline] - Complete detection pipeline (parse → detect → score) used by
// CLI and API. Ensures consistent behavior across all entry points.
//
// [render] - Graphviz rendering of decompositions as bipartite
// constraint-variable graphs with block clusters.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...             # All tests
//	go test ./pkg/decomp/...      # Specific package
//
// [mip]: https://pkg.go.dev/github.com/structmine/structmine/pkg/mip
// [decomp]: https://pkg.go.dev/github.com/structmine/structmine/pkg/decomp
// [decomp/complete]: https://pkg.go.dev/github.com/structmine/structmine/pkg/decomp/complete
// [detect]: https://pkg.go.dev/github.com/structmine/structmine/pkg/detect
// [score]: https://pkg.go.dev/github.com/structmine/structmine/pkg/score
// [cache]: https://pkg.go.dev/github.com/structmine/structmine/pkg/cache
// [store]: https://pkg.go.dev/github.com/structmine/structmine/pkg/store
// [observability]: https://pkg.go.dev/github.com/structmine/structmine/pkg/observability
// [pipeline]: https://pkg.go.dev/github.com/structmine/structmine/pkg/pipeline
// [render]: https://pkg.go.dev/github.com/structmine/structmine/pkg/render
package pkg

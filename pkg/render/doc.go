// Package render visualizes the block structure of a decomposition.
//
// # Overview
//
// [ToDOT] converts a complete decomposition into Graphviz DOT: one cluster
// per block, a cluster for the master problem, and free-standing linking and
// stairlinking variable nodes connecting the blocks they touch. Every
// nonzero of the incidence matrix becomes one edge.
//
// # Rendering
//
// The DOT string is rendered in-process through Graphviz:
//
//	dot := render.ToDOT(p, render.Options{ShowNames: true})
//	svg, err := render.SVG(dot)
//	png, err := render.PNG(dot)
package render

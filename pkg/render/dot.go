package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/structmine/structmine/pkg/decomp"
)

// Options configures DOT generation.
type Options struct {
	// ShowNames labels nodes with model names instead of positional ids.
	ShowNames bool
}

// ToDOT converts a decomposition to Graphviz DOT. Blocks become clusters,
// master constraints and variables share a border cluster, and linking and
// stairlinking variables stand between the blocks they couple. One edge is
// drawn per nonzero of the incidence matrix.
//
// Works on partial decompositions too; open elements are drawn dashed.
func ToDOT(p *decomp.Partial, opts Options) string {
	m := p.Matrix()
	var buf bytes.Buffer
	buf.WriteString("graph decomposition {\n")
	buf.WriteString("  layout=fdp;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontsize=10, margin=\"0.1,0.05\"];\n")
	buf.WriteString("  edge [color=grey60];\n")

	consLabel := func(c int) string {
		if opts.ShowNames {
			return m.ConsName(c)
		}
		return fmt.Sprintf("c%d", c)
	}
	varLabel := func(v int) string {
		if opts.ShowNames {
			return m.VarName(v)
		}
		return fmt.Sprintf("v%d", v)
	}
	consNode := func(c int, style string) {
		fmt.Fprintf(&buf, "    c%d [label=%q, shape=box%s];\n", c, consLabel(c), style)
	}
	varNode := func(v int, style string) {
		fmt.Fprintf(&buf, "    v%d [label=%q, shape=ellipse%s];\n", v, varLabel(v), style)
	}

	for b := 0; b < p.NBlocks(); b++ {
		fmt.Fprintf(&buf, "  subgraph cluster_block%d {\n", b)
		fmt.Fprintf(&buf, "    label=\"block %d\";\n", b)
		buf.WriteString("    color=grey40;\n")
		for _, c := range p.ConssForBlock(b) {
			consNode(c, ", fillcolor=lightblue, style=filled")
		}
		for _, v := range p.VarsForBlock(b) {
			varNode(v, "")
		}
		buf.WriteString("  }\n")
	}

	master := p.Masterconss()
	mastervars := p.Mastervars()
	if len(master)+len(mastervars) > 0 {
		buf.WriteString("  subgraph cluster_master {\n")
		buf.WriteString("    label=\"master\";\n")
		buf.WriteString("    color=grey40;\n")
		for _, c := range master {
			consNode(c, ", fillcolor=lightsalmon, style=filled")
		}
		for _, v := range mastervars {
			varNode(v, ", fillcolor=lightsalmon, style=filled")
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("  {\n")
	for _, v := range p.Linkingvars() {
		varNode(v, ", fillcolor=indianred1, style=filled")
	}
	for b := 0; b+1 < p.NBlocks(); b++ {
		for _, v := range p.Stairlinkingvars(b) {
			varNode(v, ", fillcolor=orange, style=filled")
		}
	}
	for _, c := range p.OpenConss() {
		consNode(c, ", style=dashed")
	}
	for _, v := range p.OpenVars() {
		varNode(v, ", style=dashed")
	}
	buf.WriteString("  }\n\n")

	for c := 0; c < m.NConss(); c++ {
		for _, v := range m.VarsForCons(c) {
			fmt.Fprintf(&buf, "  c%d -- v%d;\n", c, v)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// SVG renders a DOT graph to SVG using Graphviz.
func SVG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.SVG, normalizeViewBox)
}

// PNG renders a DOT graph to PNG using Graphviz.
func PNG(dot string) ([]byte, error) {
	return renderFormat(dot, graphviz.PNG, nil)
}

func renderFormat(dot string, format graphviz.Format, post func([]byte) []byte) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	out := buf.Bytes()
	if post != nil {
		out = post(out)
	}
	return out, nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the svg element so the image scales to its
// container regardless of the point size Graphviz chose.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

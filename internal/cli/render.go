package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/structmine/structmine/pkg/pipeline"
	"github.com/structmine/structmine/pkg/render"
)

// Supported render formats.
const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPNG = "png"
)

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		noCache    bool
		showNames  bool
		rank       int
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "render <model.mps>",
		Short: "Render a detected decomposition",
		Long: `Render a detected decomposition.

The render command runs detection (served from the cache when possible),
takes the best-ranked decomposition, and renders its block structure as a
bipartite constraint-variable graph. Blocks become clusters, master rows
and linking columns sit on the border.

Examples:
  structmine render model.mps
  structmine render model.mps -f svg,png -o model
  structmine render model.mps --rank 2 --names`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			formats := parseFormats(formatsStr)
			if err := validateFormats(formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), opts, formats, output, showNames, rank, noCache)
		},
	}

	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, dot (comma-separated)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().BoolVar(&showNames, "names", false, "label nodes with constraint and variable names")
	cmd.Flags().IntVar(&rank, "rank", 1, "which decomposition to render, best first")
	cmd.Flags().StringVarP(&opts.Score, "score", "s", "", "ranking score")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runRender executes detection and writes the rendered artifacts.
func (c *CLI) runRender(ctx context.Context, opts pipeline.Options, formats []string, output string, showNames bool, rank int, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.apply(&opts); err != nil {
		return err
	}

	runner, err := c.newRunner(cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		return err
	}
	if len(result.Decomps) == 0 {
		return fmt.Errorf("no decompositions found for %s", opts.Path)
	}
	if rank < 1 || rank > len(result.Decomps) {
		return fmt.Errorf("rank %d out of range, have %d decompositions", rank, len(result.Decomps))
	}
	chosen := result.Decomps[rank-1]

	spinner := newSpinnerWithContext(ctx, "Rendering decomposition...")
	spinner.Start()

	dot := render.ToDOT(chosen.Decomp, render.Options{ShowNames: showNames})
	artifacts := make(map[string][]byte, len(formats))
	for _, format := range formats {
		data, err := renderArtifact(dot, format)
		if err != nil {
			spinner.StopWithError("Rendering failed")
			return fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	spinner.Stop()

	printSuccess("Rendered decomposition %d (score %.4f, %d blocks)",
		rank, chosen.Value, chosen.Decomp.NBlocks())
	return writeArtifacts(artifacts, formats, opts.Path, output)
}

// renderArtifact converts DOT source into the requested format.
func renderArtifact(dot, format string) ([]byte, error) {
	switch format {
	case formatDOT:
		return []byte(dot), nil
	case formatSVG:
		return render.SVG(dot)
	case formatPNG:
		return render.PNG(dot)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

// writeArtifacts writes one file per format. With a single format the output
// path is used verbatim; with several it acts as a base path.
func writeArtifacts(artifacts map[string][]byte, formats []string, input, output string) error {
	base := output
	if base == "" {
		base = strings.TrimSuffix(input, filepath.Ext(input))
	}
	for _, format := range formats {
		path := base + "." + format
		if output != "" && len(formats) == 1 {
			path = output
		}
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{formatSVG}
	}
	return strings.Split(s, ",")
}

// validateFormats checks that every requested format is supported.
func validateFormats(formats []string) error {
	for _, f := range formats {
		switch f {
		case formatDOT, formatSVG, formatPNG:
		default:
			return fmt.Errorf("unknown format: %s (supported: dot, svg, png)", f)
		}
	}
	return nil
}

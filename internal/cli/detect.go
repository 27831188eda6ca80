package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/structmine/structmine/pkg/decomp"
	"github.com/structmine/structmine/pkg/pipeline"
	"github.com/structmine/structmine/pkg/store"
)

// maxTableRows limits how many decompositions the result table shows.
const maxTableRows = 10

// detectCommand creates the detect command.
func (c *CLI) detectCommand() *cobra.Command {
	var (
		detectorsStr string
		noCache      bool
		noRecord     bool
		output       string
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "detect <model.mps>",
		Short: "Detect block structure in an MPS model",
		Long: `Detect block structure in an MPS model.

The detect command parses the model, runs the detector rounds over its
incidence matrix, and ranks the finished decompositions by the selected
score. Results are cached locally so repeated runs on the same model are
instant.

Examples:
  structmine detect model.mps
  structmine detect model.mps --score bender --max-rounds 3
  structmine detect model.mps --detectors settypes,connected --blocks 4,8`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			if detectorsStr != "" {
				opts.Detectors = strings.Split(detectorsStr, ",")
			}
			return c.runDetect(cmd.Context(), opts, noCache, noRecord, output)
		},
	}

	cmd.Flags().StringVarP(&opts.Score, "score", "s", "", "ranking score: classic (default), bender, maxforeseeingwhite")
	cmd.Flags().IntVar(&opts.MaxRounds, "max-rounds", 0, "detector rounds to run")
	cmd.Flags().StringVar(&detectorsStr, "detectors", "", "detectors to enable (comma-separated)")
	cmd.Flags().IntSliceVar(&opts.BlockCandidates, "blocks", nil, "block-count candidates to vote for")
	cmd.Flags().BoolVar(&opts.UseConssAdjacency, "adjacency", false, "build the constraint adjacency structure")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "bypass the detection cache")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "do not record the run in the local history")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the run summary as JSON to a file")

	return cmd
}

// runDetect executes the pipeline and presents the ranked decompositions.
func (c *CLI) runDetect(ctx context.Context, opts pipeline.Options, noCache, noRecord bool, output string) error {
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
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Detecting structure in %s...", opts.Path))
	spinner.Start()

	start := time.Now()
	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Detection failed")
		return err
	}
	duration := time.Since(start)
	spinner.Stop()

	printSuccess("Found %d decompositions", len(result.Decomps))
	printMatrixStats(result.Stats.NConss, result.Stats.NVars, result.Stats.NNonzeros, result.CacheInfo.DetectionHit)
	printNewline()
	printDecompTable(result, maxTableRows)
	printNewline()
	printNextStep("Render the best decomposition", fmt.Sprintf("structmine render %s", opts.Path))

	rec := newRunRecord(&opts, result, duration)
	if !noRecord {
		if err := c.recordRun(ctx, rec); err != nil {
			c.Logger.Warnf("Could not record run: %v", err)
		}
	}
	if output != "" {
		if err := writeSummary(rec, output); err != nil {
			return err
		}
		printFile(output)
	}
	return nil
}

// recordRun appends the run to the local file-backed history.
func (c *CLI) recordRun(ctx context.Context, rec *store.RunRecord) error {
	st, err := newRunStore()
	if err != nil {
		return err
	}
	defer st.Close(ctx)
	return st.SaveRun(ctx, rec)
}

// newRunRecord summarizes a pipeline result for persistence.
func newRunRecord(opts *pipeline.Options, result *pipeline.Result, duration time.Duration) *store.RunRecord {
	rec := &store.RunRecord{
		ID:        uuid.NewString(),
		Model:     result.Model.Name(),
		ModelHash: result.ModelHash,
		NConss:    result.Stats.NConss,
		NVars:     result.Stats.NVars,
		NNonzeros: result.Stats.NNonzeros,
		NDecomps:  len(result.Decomps),
		Detectors: opts.EnabledDetectors(),
		Duration:  duration,
		CreatedAt: time.Now().UTC(),
	}
	if result.Best != nil {
		rec.Best = store.BestDecomp{
			NBlocks:    result.Best.NBlocks(),
			NMaster:    len(result.Best.Masterconss()),
			NLinking:   len(result.Best.Linkingvars()),
			Score:      opts.Score,
			ScoreValue: result.BestValue,
		}
	}
	return rec
}

// writeSummary writes the record as indented JSON.
func writeSummary(rec *store.RunRecord, path string) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// printDecompTable renders the ranked decompositions as a table.
func printDecompTable(result *pipeline.Result, limit int) {
	rows := [][]string{}
	for i, ranked := range result.Decomps {
		if i >= limit {
			break
		}
		p := ranked.Decomp
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.4f", ranked.Value),
			fmt.Sprintf("%d", p.NBlocks()),
			fmt.Sprintf("%d", len(p.Masterconss())),
			fmt.Sprintf("%d", len(p.Linkingvars())),
			chainString(p),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Score", "Blocks", "Master", "Linking", "Detectors").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row == 0 {
				return lipgloss.NewStyle().Foreground(colorGreen)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
	fmt.Println(t.Render())

	if len(result.Decomps) > limit {
		printDetail("and %d more", len(result.Decomps)-limit)
	}
}

// chainString formats a decomposition's provenance as detector names.
func chainString(p *decomp.Partial) string {
	chain := p.Chain()
	names := make([]string, 0, len(chain))
	for _, step := range chain {
		names = append(names, step.Detector)
	}
	if len(names) == 0 {
		return "—"
	}
	return strings.Join(names, " ")
}

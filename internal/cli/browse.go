package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/structmine/structmine/pkg/pipeline"
)

// browseCommand creates the browse command for interactive result inspection.
func (c *CLI) browseCommand() *cobra.Command {
	var noCache bool
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "browse <model.mps>",
		Short: "Browse detection results interactively",
		Long: `Browse detection results interactively.

The browse command runs detection and opens a terminal UI listing every
finished decomposition. Selecting a row shows block sizes, all score
values, and the detector chain that produced it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]

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

			result, err := runner.Execute(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if len(result.Decomps) == 0 {
				return fmt.Errorf("no decompositions found for %s", opts.Path)
			}

			model := NewDecompListModel(result)
			_, err = tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.Score, "score", "s", "", "ranking score")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/structmine/structmine/pkg/store"
)

// runsCommand creates the runs command for inspecting the local run history.
func (c *CLI) runsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded detection runs",
	}

	cmd.AddCommand(c.runsListCommand())
	cmd.AddCommand(c.runsShowCommand())

	return cmd
}

// runsListCommand creates the "runs list" subcommand.
func (c *CLI) runsListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded detection runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newRunStore()
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			recs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				printInfo("No recorded runs")
				return nil
			}
			printRunTable(recs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list")
	return cmd
}

// runsShowCommand creates the "runs show" subcommand.
func (c *CLI) runsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newRunStore()
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			rec, err := findRun(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			printRun(rec)
			return nil
		},
	}
}

// printRunTable renders run records as a table.
func printRunTable(recs []*store.RunRecord) {
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, []string{
			shortID(rec.ID),
			rec.Model,
			fmt.Sprintf("%dx%d", rec.NConss, rec.NVars),
			fmt.Sprintf("%d", rec.NDecomps),
			fmt.Sprintf("%.4f", rec.Best.ScoreValue),
			fmt.Sprintf("%d", rec.Best.NBlocks),
			formatRelativeTime(rec.CreatedAt),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Model", "Size", "Decomps", "Best", "Blocks", "When").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
	fmt.Println(t.Render())
}

// printRun shows a single run record as key-value lines.
func printRun(rec *store.RunRecord) {
	fmt.Println(StyleTitle.Render(rec.Model))
	printKeyValue("ID", rec.ID)
	printKeyValue("Hash", rec.ModelHash)
	printKeyValue("Size", fmt.Sprintf("%d conss, %d vars, %d nonzeros", rec.NConss, rec.NVars, rec.NNonzeros))
	printKeyValue("Decomps", fmt.Sprintf("%d", rec.NDecomps))
	printKeyValue("Best", fmt.Sprintf("%.4f (%s)", rec.Best.ScoreValue, rec.Best.Score))
	printKeyValue("Blocks", fmt.Sprintf("%d", rec.Best.NBlocks))
	printKeyValue("Master", fmt.Sprintf("%d conss", rec.Best.NMaster))
	printKeyValue("Linking", fmt.Sprintf("%d vars", rec.Best.NLinking))
	printKeyValue("Detectors", fmt.Sprintf("%v", rec.Detectors))
	printKeyValue("Duration", rec.Duration.Round(time.Millisecond).String())
	printKeyValue("Created", rec.CreatedAt.Local().Format(time.RFC1123))
}

// shortID abbreviates a UUID for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatRelativeTime renders t relative to now for table display.
func formatRelativeTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

// findRun resolves an ID or unique ID prefix to a record.
func findRun(ctx context.Context, st store.Store, id string) (*store.RunRecord, error) {
	if rec, err := st.GetRun(ctx, id); err == nil {
		return rec, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	recs, err := st.ListRuns(ctx, 0)
	if err != nil {
		return nil, err
	}
	var match *store.RunRecord
	for _, rec := range recs {
		if strings.HasPrefix(rec.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("run ID prefix %q is ambiguous", id)
			}
			match = rec
		}
	}
	if match == nil {
		return nil, fmt.Errorf("run %q: %w", id, store.ErrNotFound)
	}
	return match, nil
}

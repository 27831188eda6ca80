package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/structmine/structmine/pkg/pipeline"
	"github.com/structmine/structmine/pkg/score"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// DecompListModel - Interactive decomposition browser
// =============================================================================

// DecompListModel is the bubbletea model for browsing ranked decompositions.
type DecompListModel struct {
	Result  *pipeline.Result
	Cursor  int
	Height  int
	Offset  int
	Details bool
}

// NewDecompListModel creates a new decomposition list model.
func NewDecompListModel(result *pipeline.Result) DecompListModel {
	return DecompListModel{
		Result: result,
		Height: 15,
	}
}

func (m DecompListModel) Init() tea.Cmd {
	return nil
}

func (m DecompListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Result.Decomps)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter", " ":
			m.Details = !m.Details
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m DecompListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Decompositions of %s", m.Result.Model.Name())))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ details  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Result.Decomps) {
		end = len(m.Result.Decomps)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		ranked := m.Result.Decomps[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.4f", ranked.Value),
			fmt.Sprintf("%d", ranked.Decomp.NBlocks()),
			fmt.Sprintf("%d", len(ranked.Decomp.Masterconss())),
			fmt.Sprintf("%d", len(ranked.Decomp.Linkingvars())),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "#", "Score", "Blocks", "Master", "Linking").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
	b.WriteString(t.Render())
	b.WriteString("\n")

	if m.Details && m.Cursor < len(m.Result.Decomps) {
		b.WriteString("\n")
		b.WriteString(m.detailView(m.Result.Decomps[m.Cursor]))
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Result.Decomps))))

	return b.String()
}

// detailView renders block sizes and scores for the selected decomposition.
func (m DecompListModel) detailView(ranked score.Ranked) string {
	p := ranked.Decomp
	var b strings.Builder

	b.WriteString(StyleDim.Render("  blocks: "))
	sizes := make([]string, 0, p.NBlocks())
	for i := 0; i < p.NBlocks(); i++ {
		sizes = append(sizes, fmt.Sprintf("%dx%d", len(p.ConssForBlock(i)), len(p.VarsForBlock(i))))
	}
	b.WriteString(StyleValue.Render(strings.Join(sizes, " ")))
	b.WriteString("\n")

	b.WriteString(StyleDim.Render("  scores: "))
	parts := make([]string, 0, 4)
	for _, s := range score.All() {
		if val, err := score.Evaluate(s, p); err == nil {
			parts = append(parts, fmt.Sprintf("%s=%.4f", s.Name(), val))
		}
	}
	b.WriteString(StyleValue.Render(strings.Join(parts, "  ")))
	b.WriteString("\n")

	b.WriteString(StyleDim.Render("  chain:  "))
	b.WriteString(StyleValue.Render(chainString(p)))
	b.WriteString("\n")

	return b.String()
}

package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mail-triage/internal/model"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"})
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"})
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	actionStyles = map[model.ActionType]lipgloss.Style{
		model.ActionFlag:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}),
		model.ActionMove:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}),
		model.ActionTrash:   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}),
		model.ActionArchive: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}),
		model.ActionNone:    dimStyle,
	}
)

// styledAction renders an action name in its color.
func styledAction(a model.ActionType) string {
	if style, ok := actionStyles[a]; ok {
		return style.Render(string(a))
	}
	return string(a)
}

// truncate cuts s to at most n characters for column display.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

// printTable renders rows under a header line with space-padded columns.
// Styled cells are padded by their visible width.
func printTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var line strings.Builder
	for i, h := range headers {
		line.WriteString(pad(headerStyle.Render(h), widths[i]))
		line.WriteString("  ")
	}
	fmt.Println(strings.TrimRight(line.String(), " "))

	for _, row := range rows {
		line.Reset()
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			line.WriteString(pad(cell, widths[i]))
			line.WriteString("  ")
		}
		fmt.Println(strings.TrimRight(line.String(), " "))
	}
}

func pad(s string, width int) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

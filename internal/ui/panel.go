package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderPanel draws a fixed-size character display: each row padded to
// columns, framed by a rounded border with an optional caption line.
func RenderPanel(rows []string, columns int, caption string) string {
	padded := make([]string, len(rows))
	for i, row := range rows {
		r := []rune(row)
		if len(r) > columns {
			r = r[:columns]
		}
		padded[i] = PanelTextStyle.Render(string(r) + strings.Repeat(" ", columns-len(r)))
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Padding(0, 1).
		Render(strings.Join(padded, "\n"))

	if caption == "" {
		return panel
	}
	return lipgloss.JoinVertical(lipgloss.Left, panel, HintStyle.Render(caption))
}

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func renderReport(r *Report) string {
	rows := []struct {
		key, value string
	}{
		{"run", r.RunID},
		{"mode", r.Mode},
		{"rounds", fmt.Sprintf("%d", r.Rounds)},
		{"failures", fmt.Sprintf("%d", r.Failures)},
		{"elapsed", r.Elapsed.String()},
		{"size", fmt.Sprintf("%d bytes", r.Size)},
		{"size_used", fmt.Sprintf("%d bytes", r.SizeUsed)},
		{"nodes", fmt.Sprintf("%d / %d", r.Nodes, r.MaxNodes)},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("memkit run report"))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(keyStyle.Render(row.key))
		b.WriteString(": ")
		b.WriteString(row.value)
		b.WriteString("\n")
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

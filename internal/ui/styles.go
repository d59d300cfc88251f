// Package ui provides consistent styling for the modebridge CLI
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/modebridge/internal/display"
)

// Color palette - consistent across the application
var (
	ColorPrimary = lipgloss.Color("39")  // Bright blue
	ColorSuccess = lipgloss.Color("82")  // Green
	ColorWarning = lipgloss.Color("214") // Orange
	ColorError   = lipgloss.Color("196") // Red

	ColorText   = lipgloss.Color("252") // Light gray
	ColorSubtle = lipgloss.Color("241") // Medium gray

	ColorActive = ColorSuccess
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorPrimary)

	TableRowStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	ActiveRowStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorActive)
)

const (
	IconActive   = "●"
	IconInactive = "○"
	IconError    = "✗"
)

// FormatError renders a one-line error message.
func FormatError(code, message string) string {
	return ErrorStyle.Render(IconError+" "+code) + " " + message
}

// RenderModes renders modes as an aligned table with the active mode marked.
func RenderModes(title string, modes []display.Mode, active display.Mode) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(title))
	b.WriteString("\n")

	if len(modes) == 0 {
		b.WriteString(SubtleStyle.Render("  no modes reported"))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([][3]string, len(modes))
	widths := [3]int{len("ID"), len("RESOLUTION"), len("REFRESH")}
	for i, m := range modes {
		rows[i] = [3]string{
			fmt.Sprintf("%d", m.ID),
			fmt.Sprintf("%dx%d", m.Width, m.Height),
			fmt.Sprintf("%.3f Hz", m.RefreshRate),
		}
		for col, cell := range rows[i] {
			widths[col] = max(widths[col], len(cell))
		}
	}

	b.WriteString("  ")
	b.WriteString(TableHeaderStyle.Render(formatRow([3]string{"ID", "RESOLUTION", "REFRESH"}, widths)))
	b.WriteString("\n")

	for i, m := range modes {
		line := formatRow(rows[i], widths)
		if m == active {
			b.WriteString(ActiveRowStyle.Render(IconActive + " " + line))
		} else {
			b.WriteString("  " + TableRowStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatRow(cells [3]string, widths [3]int) string {
	return fmt.Sprintf("%-*s  %-*s  %*s", widths[0], cells[0], widths[1], cells[1], widths[2], cells[2])
}

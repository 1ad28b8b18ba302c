package report

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorSecondary = lipgloss.Color("#10B981")
	colorError     = lipgloss.Color("#EF4444")
	colorMuted     = lipgloss.Color("#6B7280")
)

// styles binds the report styles to one renderer so color output follows the
// destination writer
type styles struct {
	title    lipgloss.Style
	subtitle lipgloss.Style
	header   lipgloss.Style
	cell     lipgloss.Style
	ok       lipgloss.Style
	failed   lipgloss.Style
	border   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title: r.NewStyle().
			Bold(true).
			Foreground(colorPrimary),
		subtitle: r.NewStyle().
			Foreground(colorMuted).
			Italic(true),
		header: r.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Padding(0, 1),
		cell: r.NewStyle().
			Padding(0, 1),
		ok: r.NewStyle().
			Foreground(colorSecondary).
			Padding(0, 1),
		failed: r.NewStyle().
			Foreground(colorError).
			Padding(0, 1),
		border: r.NewStyle().
			Foreground(colorMuted),
	}
}

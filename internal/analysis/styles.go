package analysis

import (
	"strings"

	"github.com/Veraticus/spice-rules/internal/cli"
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the styling used for anomaly reports.
type Styles struct {
	Title    lipgloss.Style
	Subtle   lipgloss.Style
	Normal   lipgloss.Style
	Box      lipgloss.Style
	Critical lipgloss.Style
	Warning  lipgloss.Style
	Info     lipgloss.Style
	Bar      lipgloss.Style
}

// NewStyles creates report styles based on the CLI palette.
func NewStyles() *Styles {
	return &Styles{
		Title:  cli.TitleStyle,
		Subtle: cli.SubtleStyle,
		Normal: lipgloss.NewStyle(),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cli.GrayColor).
			Padding(0, 1),
		Critical: lipgloss.NewStyle().
			Bold(true).
			Foreground(cli.SpiceColor).
			Background(lipgloss.Color("#2D0000")),
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(cli.AmberColor),
		Info: lipgloss.NewStyle().
			Foreground(cli.MintColor),
		Bar: lipgloss.NewStyle().
			Foreground(cli.SpiceColor),
	}
}

// WithWidth returns a copy whose box fits a terminal of the given width.
func (s *Styles) WithWidth(width int) *Styles {
	out := *s
	if width > 0 && width < 100 {
		out.Box = s.Box.Width(width - 4)
	}
	return &out
}

// ForSeverity returns the style for a severity.
func (s *Styles) ForSeverity(sev Severity) lipgloss.Style {
	switch sev {
	case SeverityCritical:
		return s.Critical
	case SeverityWarning:
		return s.Warning
	case SeverityInfo:
		return s.Info
	default:
		return s.Normal
	}
}

// ShareBar draws a fixed-width bar filled to share (0..1).
func ShareBar(share float64, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := min(max(int(float64(width)*share), 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

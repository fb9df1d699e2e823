// Package cli renders rules, classification results and traces for the terminal.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	SpiceColor = lipgloss.Color("#FF6B6B")
	TealColor  = lipgloss.Color("#4ECDC4")
	AmberColor = lipgloss.Color("#FFE66D")
	MintColor  = lipgloss.Color("#95E1D3")
	GrayColor  = lipgloss.Color("#666666")
)

// Styles shared by every renderer. Matches are teal, misses and stops are
// red, review flags are amber.
var (
	TitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(SpiceColor)
	HeaderStyle = lipgloss.NewStyle().Bold(true)
	MatchStyle  = lipgloss.NewStyle().Foreground(TealColor)
	MissStyle   = lipgloss.NewStyle().Foreground(SpiceColor)
	ReviewStyle = lipgloss.NewStyle().Foreground(AmberColor)
	NoteStyle   = lipgloss.NewStyle().Foreground(MintColor)
	SubtleStyle = lipgloss.NewStyle().Foreground(GrayColor)
	TagStyle    = lipgloss.NewStyle().Foreground(MintColor).Bold(true)
)

// Icons.
const (
	MatchIcon  = "✓"
	MissIcon   = "✗"
	ReviewIcon = "⚠️"
	NoteIcon   = "ℹ️"
	SpiceIcon  = "🌶️"
	StopIcon   = "■"
)

func iconLine(style lipgloss.Style, icon, message string) string {
	return style.Render(icon + " " + message)
}

// FormatSuccess renders a completed operation.
func FormatSuccess(message string) string {
	return iconLine(MatchStyle, MatchIcon, message)
}

// FormatWarning renders something the user should look at.
func FormatWarning(message string) string {
	return iconLine(ReviewStyle, ReviewIcon, message)
}

// FormatInfo renders a neutral notice.
func FormatInfo(message string) string {
	return iconLine(NoteStyle, NoteIcon, message)
}

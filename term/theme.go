package term

import "github.com/charmbracelet/lipgloss"

// Theme holds the colors and pre-built styles for run output.
type Theme struct {
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Danger  lipgloss.Color
	Warning lipgloss.Color
	Success lipgloss.Color
	Muted   lipgloss.Color
	Text    lipgloss.Color

	TitleStyle     lipgloss.Style
	IterationStyle lipgloss.Style
	ToolStyle      lipgloss.Style
	OutputStyle    lipgloss.Style
	SuccessStyle   lipgloss.Style
	WarningStyle   lipgloss.Style
	ErrorStyle     lipgloss.Style
	MutedStyle     lipgloss.Style
	BoxStyle       lipgloss.Style
}

// DefaultTheme is the standard dark palette.
func DefaultTheme() Theme {
	t := Theme{
		Primary: lipgloss.Color("#7C3AED"),
		Accent:  lipgloss.Color("#06B6D4"),
		Danger:  lipgloss.Color("#EF4444"),
		Warning: lipgloss.Color("#F59E0B"),
		Success: lipgloss.Color("#10B981"),
		Muted:   lipgloss.Color("#6B7280"),
		Text:    lipgloss.Color("#E5E7EB"),
	}

	t.TitleStyle = lipgloss.NewStyle().
		Foreground(t.Primary).
		Bold(true)

	t.IterationStyle = lipgloss.NewStyle().
		Foreground(t.Accent).
		Bold(true)

	t.ToolStyle = lipgloss.NewStyle().
		Foreground(t.Accent)

	t.OutputStyle = lipgloss.NewStyle().
		Foreground(t.Muted)

	t.SuccessStyle = lipgloss.NewStyle().
		Foreground(t.Success)

	t.WarningStyle = lipgloss.NewStyle().
		Foreground(t.Warning)

	t.ErrorStyle = lipgloss.NewStyle().
		Foreground(t.Danger).
		Bold(true)

	t.MutedStyle = lipgloss.NewStyle().
		Foreground(t.Muted)

	t.BoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(0, 1)

	return t
}

package tui

import "github.com/charmbracelet/lipgloss"

// Colors defines the color palette for the monitor.
var Colors = struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Error   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Text    lipgloss.Color
	LEDOff  lipgloss.Color
}{
	Primary: lipgloss.Color("#6C5CE7"), // Purple
	Muted:   lipgloss.Color("#636E72"), // Gray
	Error:   lipgloss.Color("#D63031"), // Red
	Success: lipgloss.Color("#00B894"), // Green
	Warning: lipgloss.Color("#FDCB6E"), // Yellow
	Text:    lipgloss.Color("#DFE6E9"), // Light gray
	LEDOff:  lipgloss.Color("#2D3436"), // Dark gray
}

// Styles holds the lipgloss styles used by the view.
type Styles struct {
	Title    lipgloss.Style
	Section  lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Muted    lipgloss.Style
	Pass     lipgloss.Style
	Fail     lipgloss.Style
	Warn     lipgloss.Style
	LEDOn    lipgloss.Style
	LEDOff   lipgloss.Style
	Event    lipgloss.Style
	EventErr lipgloss.Style
	Footer   lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(Colors.Primary).
			Padding(0, 1),
		Section: lipgloss.NewStyle().
			Bold(true).
			Foreground(Colors.Primary).
			MarginTop(1),
		Label:    lipgloss.NewStyle().Foreground(Colors.Muted),
		Value:    lipgloss.NewStyle().Foreground(Colors.Text),
		Muted:    lipgloss.NewStyle().Foreground(Colors.Muted),
		Pass:     lipgloss.NewStyle().Bold(true).Foreground(Colors.Success),
		Fail:     lipgloss.NewStyle().Bold(true).Foreground(Colors.Error),
		Warn:     lipgloss.NewStyle().Foreground(Colors.Warning),
		LEDOn:    lipgloss.NewStyle().Foreground(Colors.Success),
		LEDOff:   lipgloss.NewStyle().Foreground(Colors.LEDOff),
		Event:    lipgloss.NewStyle().Foreground(Colors.Text),
		EventErr: lipgloss.NewStyle().Foreground(Colors.Error),
		Footer:   lipgloss.NewStyle().MarginTop(1),
	}
}

package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the monitor.
type KeyMap struct {
	Logs  key.Binding // Toggle the event pane
	Tasks key.Binding // Toggle the task table
	Help  key.Binding // Show full help
	Quit  key.Binding // Stop the run and exit
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Logs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "events"),
		),
		Tasks: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "tasks"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Logs, k.Tasks, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Logs, k.Tasks},
		{k.Help, k.Quit},
	}
}

// Package tui provides the live monitor for a self-test run.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runoshun/rtcheck/internal/domain"
)

// DefaultRefresh is how often the monitor samples the run.
const DefaultRefresh = 100 * time.Millisecond

// eventLines is how many log entries the event pane shows.
const eventLines = 8

// ReportSource provides the state of a running self-test.
type ReportSource interface {
	Report() *domain.Report
}

// EventSource provides recent log entries.
type EventSource interface {
	Recent(n int) []string
}

// Model is the bubbletea model of the monitor.
// Fields are ordered to minimize memory padding.
type Model struct {
	source   ReportSource
	events   EventSource
	err      error
	report   *domain.Report
	final    *domain.Report
	styles   Styles
	spinner  spinner.Model
	help     help.Model
	keys     KeyMap
	ptyPath  string
	refresh  time.Duration
	width    int
	height   int
	showLogs bool
	hideTask bool
	quitting bool
}

// Options configures a Model.
type Options struct {
	PTYPath string        // Serial line shown in the header; optional
	Refresh time.Duration // Sample interval (0 = DefaultRefresh)
}

// New creates a new Model. events may be nil.
func New(source ReportSource, events EventSource, opts Options) *Model {
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	styles := DefaultStyles()
	s.Style = styles.Pass

	return &Model{
		source:   source,
		events:   events,
		styles:   styles,
		spinner:  s,
		help:     help.New(),
		keys:     DefaultKeyMap(),
		ptyPath:  opts.PTYPath,
		refresh:  opts.Refresh,
		showLogs: events != nil,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Final returns the report delivered by DoneMsg, or nil while running.
func (m *Model) Final() *domain.Report {
	return m.final
}

// Err returns the run error delivered by DoneMsg.
func (m *Model) Err() error {
	return m.err
}

// current returns the report to display.
func (m *Model) current() *domain.Report {
	if m.final != nil {
		return m.final
	}
	return m.report
}

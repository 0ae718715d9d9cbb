package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/rtcheck/internal/domain"
)

type fakeSource struct {
	report *domain.Report
	calls  int
}

func (f *fakeSource) Report() *domain.Report {
	f.calls++
	return f.report
}

type fakeEvents []string

func (f fakeEvents) Recent(n int) []string {
	if n > len(f) {
		n = len(f)
	}
	return f[len(f)-n:]
}

func sampleReport() *domain.Report {
	return &domain.Report{
		RunID:      "0123456789abcdef",
		Backend:    domain.BackendLoopback,
		Duration:   1500 * time.Millisecond,
		Preemptive: true,
		Health: domain.HealthSnapshot{
			Cycles: 3,
			Period: 5000,
			Results: []domain.CheckResult{
				{Name: "churn", Healthy: true},
				{Name: "pollq", Healthy: true},
			},
		},
		LEDs: []domain.LEDState{
			{Bank: "parallel", LED: 0, On: true},
			{Bank: "parallel", LED: 1},
			{Bank: "onboard", LED: 0, On: true},
		},
		Tasks: []domain.TaskInfo{
			{ID: 2, Name: "QConsNB", Priority: 2, State: domain.TaskRunning},
			{ID: 1, Name: "LEDx", Priority: 1, State: domain.TaskRunning},
		},
		Math: []uint64{4, 5},
	}
}

func TestModel_TickRefreshesReport(t *testing.T) {
	// Setup
	src := &fakeSource{report: sampleReport()}
	m := New(src, nil, Options{})

	// Execute
	_, cmd := m.Update(tickMsg(time.Now()))

	// Assert
	assert.Equal(t, 1, src.calls)
	assert.NotNil(t, cmd, "refresh is rescheduled")
	assert.Same(t, src.report, m.current())
}

func TestModel_DoneStopsRefreshing(t *testing.T) {
	// Setup
	src := &fakeSource{report: sampleReport()}
	m := New(src, nil, Options{})
	final := sampleReport()
	final.Health.Latched = true

	// Execute
	m.Update(DoneMsg{Report: final, Err: errors.New("shutdown kernel: timeout")})
	_, cmd := m.Update(tickMsg(time.Now()))

	// Assert
	assert.Nil(t, cmd)
	assert.Zero(t, src.calls)
	assert.Same(t, final, m.Final())
	assert.EqualError(t, m.Err(), "shutdown kernel: timeout")
	assert.Contains(t, m.View(), "error: shutdown kernel: timeout")
}

func TestModel_Keys(t *testing.T) {
	tests := []struct {
		check func(t *testing.T, m *Model)
		name  string
		key   string
	}{
		{name: "toggle events", key: "l", check: func(t *testing.T, m *Model) { assert.False(t, m.showLogs) }},
		{name: "toggle tasks", key: "t", check: func(t *testing.T, m *Model) { assert.True(t, m.hideTask) }},
		{name: "full help", key: "?", check: func(t *testing.T, m *Model) { assert.True(t, m.help.ShowAll) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(&fakeSource{}, fakeEvents{"a"}, Options{})

			_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.key)})

			assert.Nil(t, cmd)
			tt.check(t, m)
		})
	}
}

func TestModel_QuitKey(t *testing.T) {
	m := New(&fakeSource{}, nil, Options{})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestModel_ViewBeforeFirstSample(t *testing.T) {
	m := New(&fakeSource{}, nil, Options{})

	assert.Contains(t, m.View(), "starting...")
}

func TestModel_View(t *testing.T) {
	// Setup
	r := sampleReport()
	r.Health.Latched = true
	r.Health.FirstFailure = "pollq"
	r.Health.Results[1].Healthy = false
	m := New(&fakeSource{report: r}, fakeEvents{"[ERROR] [global] [check] pollq failed"}, Options{PTYPath: "/dev/pts/7"})
	m.Update(tickMsg(time.Now()))

	// Execute
	out := m.View()

	// Assert
	assert.Contains(t, out, "run 01234567")
	assert.Contains(t, out, "/dev/pts/7")
	assert.Contains(t, out, "LATCHED")
	assert.Contains(t, out, "first failure: pollq")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, ledOn+ledOff)
	assert.Contains(t, out, "Tasks (2)")
	assert.Less(t, strings.Index(out, "LEDx"), strings.Index(out, "QConsNB"), "tasks sorted by id")
	assert.Contains(t, out, "4 5")
	assert.Contains(t, out, "pollq failed")
}

func TestModel_ClipToWidth(t *testing.T) {
	long := strings.Repeat("x", 200)
	m := New(&fakeSource{report: sampleReport()}, fakeEvents{long}, Options{})
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 30})
	m.Update(tickMsg(time.Now()))

	out := m.View()

	assert.NotContains(t, out, long)
	assert.Contains(t, out, strings.Repeat("x", 37)+"…")
}

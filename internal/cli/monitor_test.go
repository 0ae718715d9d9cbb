package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/runoshun/rtcheck/internal/app"
	"github.com/runoshun/rtcheck/internal/domain"
	"github.com/runoshun/rtcheck/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockMonitor replaces the terminal check and the TUI for one test.
func mockMonitor(t *testing.T, terminal bool, launch func(context.Context, *app.Harness, time.Duration) (*domain.Report, error)) {
	t.Helper()
	origTerminal, origLaunch := isTerminalFunc, launchMonitorFunc
	t.Cleanup(func() {
		isTerminalFunc, launchMonitorFunc = origTerminal, origLaunch
	})
	isTerminalFunc = func() bool { return terminal }
	launchMonitorFunc = launch
}

func TestMonitorCommand_RequiresTerminal(t *testing.T) {
	called := false
	mockMonitor(t, false, func(context.Context, *app.Harness, time.Duration) (*domain.Report, error) {
		called = true
		return nil, nil
	})
	root := NewRootCommand(newTestContainer(t), "dev")
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"monitor"})

	err := root.Execute()

	assert.ErrorIs(t, err, errNoTerminal)
	assert.False(t, called)
}

func TestMonitorCommand_PrintsFinalReport(t *testing.T) {
	// Setup: run the harness headless in place of the dashboard.
	var gotDuration time.Duration
	mockMonitor(t, true, func(ctx context.Context, h *app.Harness, d time.Duration) (*domain.Report, error) {
		gotDuration = d
		return h.UseCase.Execute(ctx, usecase.RunSelfTestInput{Duration: d})
	})
	path := writeConfig(t, fastConfigTOML)
	root := NewRootCommand(newTestContainer(t), "dev")
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "monitor", "--duration", "250ms"})

	// Execute
	err := root.Execute()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, gotDuration)
	assert.Contains(t, stdout.String(), "PASS run ")
}

func TestMonitorCommand_LaunchError(t *testing.T) {
	mockMonitor(t, true, func(context.Context, *app.Harness, time.Duration) (*domain.Report, error) {
		return nil, assert.AnError
	})
	root := NewRootCommand(newTestContainer(t), "dev")
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"monitor"})

	err := root.Execute()

	assert.ErrorIs(t, err, assert.AnError)
}

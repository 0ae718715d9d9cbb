package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/runoshun/rtcheck/internal/app"
	"github.com/runoshun/rtcheck/internal/domain"
	"github.com/runoshun/rtcheck/internal/infra/report"
	"github.com/runoshun/rtcheck/internal/tui"
	"github.com/runoshun/rtcheck/internal/usecase"
)

// errNoTerminal is returned when the monitor is started without a terminal.
var errNoTerminal = errors.New("monitor needs an interactive terminal; use 'rtcheck run' instead")

// Function variables allowing the terminal check and the TUI to be mocked in tests.
var (
	isTerminalFunc    = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
	launchMonitorFunc = launchMonitor
)

// newMonitorCommand creates the monitor command for the live dashboard.
func newMonitorCommand(c *app.Container) *cobra.Command {
	var duration time.Duration
	var backend string

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the self-test with a live dashboard",
		Long: `Run the self-test and show checks, LEDs, counters, tasks and recent log
entries while it runs. Press q to stop; the final report is printed after
the dashboard closes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isTerminalFunc() {
				return errNoTerminal
			}
			cfg, err := loadRunConfig(c, backend)
			if err != nil {
				return err
			}

			// Entries stay in memory for the event pane unless log.dir is set.
			h, err := c.RunSelfTestUseCase(cfg, nil)
			if err != nil {
				return err
			}
			defer func() { _ = h.Close() }()

			r, err := launchMonitorFunc(cmd.Context(), h, duration)
			if err != nil {
				return err
			}
			if err := report.Write(cmd.OutOrStdout(), r, report.FormatText); err != nil {
				return err
			}
			return verdictError(r)
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "How long to run (0 = until quit)")
	cmd.Flags().StringVar(&backend, "uart", "", "Serial backend: loopback or pty (overrides serial.backend)")

	return cmd
}

type runResult struct {
	report *domain.Report
	err    error
}

// launchMonitor runs the harness in the background while the dashboard is
// open. Quitting the dashboard stops the run.
func launchMonitor(ctx context.Context, h *app.Harness, duration time.Duration) (*domain.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.New(h.UseCase, h.Logger, tui.Options{PTYPath: h.PTYPath})
	p := tea.NewProgram(model, tea.WithAltScreen())

	done := make(chan runResult, 1)
	go func() {
		r, err := h.UseCase.Execute(ctx, usecase.RunSelfTestInput{Duration: duration})
		done <- runResult{report: r, err: err}
		p.Send(tui.DoneMsg{Report: r, Err: err})
	}()

	_, runErr := p.Run()
	cancel()
	res := <-done
	if runErr != nil {
		return nil, fmt.Errorf("run monitor: %w", runErr)
	}
	return res.report, res.err
}

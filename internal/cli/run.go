package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/runoshun/rtcheck/internal/app"
	"github.com/runoshun/rtcheck/internal/domain"
	"github.com/runoshun/rtcheck/internal/infra/report"
	"github.com/runoshun/rtcheck/internal/usecase"
	"github.com/spf13/cobra"
)

// ErrSelfTestFailed is returned when a run ends with a latched fault.
var ErrSelfTestFailed = errors.New("self-test failed")

// newRunCommand creates the run command.
func newRunCommand(c *app.Container) *cobra.Command {
	var duration time.Duration
	var format, backend string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the self-test and print a report",
		Long: `Run every self-test task until the duration elapses or the process is
interrupted, then shut the scheduler down and print the final report.

Log entries go to stderr (or to rtcheck.log when log.dir is set); the report
goes to stdout. The command fails if a fault was latched.

Examples:
  rtcheck run --duration 30s
  rtcheck run --duration 1m --format json > report.json
  rtcheck run --uart pty --format yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := loadRunConfig(c, backend)
			if err != nil {
				return err
			}

			h, err := c.RunSelfTestUseCase(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = h.Close() }()
			if h.PTYPath != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Serial line: %s\n", h.PTYPath)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r, err := h.UseCase.Execute(ctx, usecase.RunSelfTestInput{Duration: duration})
			if err != nil {
				return err
			}
			if err := report.Write(cmd.OutOrStdout(), r, f); err != nil {
				return err
			}
			return verdictError(r)
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "How long to run (0 = until interrupted)")
	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatText), "Report format: "+formatNames())
	cmd.Flags().StringVar(&backend, "uart", "", "Serial backend: loopback or pty (overrides serial.backend)")

	return cmd
}

// loadRunConfig loads the effective config and applies the --uart override.
func loadRunConfig(c *app.Container, backend string) (*domain.Config, error) {
	cfg, err := c.ConfigLoader.Load()
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Serial.Backend = backend
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// verdictError converts a latched fault into a command error.
func verdictError(r *domain.Report) error {
	if r.Passed() {
		return nil
	}
	return fmt.Errorf("%w: first failure %s", ErrSelfTestFailed, r.Health.FirstFailure)
}

func formatNames() string {
	names := make([]string, 0, len(report.Formats()))
	for _, f := range report.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

package tui

import (
	"time"

	"github.com/runoshun/rtcheck/internal/domain"
)

// Messages for the monitor.

// tickMsg triggers a refresh of the displayed report.
type tickMsg time.Time

// DoneMsg is sent when the run has finished and the kernel is shut down.
type DoneMsg struct {
	Report *domain.Report
	Err    error
}

package usecase

import (
	"fmt"
	"strings"

	"github.com/runoshun/rtcheck/internal/domain"
)

const checkCategory = "check"

// OnBoardLED is the LED the aggregator toggles once per cycle.
const OnBoardLED = 0

// HealthAggregator periodically polls every health check and latches the
// first failure for good. The latch shortens the poll period, which makes
// the on-board LED flash faster.
type HealthAggregator struct {
	sched  domain.Scheduler
	led    domain.LEDBank
	logger domain.Logger
	clock  domain.Clock
	checks []domain.HealthCheck
	cfg    domain.CheckConfig

	// Guarded by the critical section.
	latched  bool
	snapshot domain.HealthSnapshot
}

// NewHealthAggregator creates a new HealthAggregator.
func NewHealthAggregator(sched domain.Scheduler, led domain.LEDBank, logger domain.Logger, clock domain.Clock, cfg domain.CheckConfig, checks ...domain.HealthCheck) *HealthAggregator {
	return &HealthAggregator{
		sched:    sched,
		led:      led,
		logger:   logger,
		clock:    clock,
		checks:   checks,
		cfg:      cfg,
		snapshot: domain.HealthSnapshot{Period: cfg.HealthyPeriod},
	}
}

// Start creates the check task.
func (a *HealthAggregator) Start() error {
	names := make([]string, len(a.checks))
	for i, c := range a.checks {
		names[i] = c.Name()
	}
	_, err := a.sched.CreateTask(domain.TaskSpec{
		Entry:    a.run,
		Name:     "CHECK",
		Priority: a.cfg.Priority,
	})
	if err != nil {
		return fmt.Errorf("start health aggregator: %w", err)
	}
	a.logger.Info(0, checkCategory, "polling "+strings.Join(names, ", "))
	return nil
}

func (a *HealthAggregator) run(t domain.Task) {
	for {
		t.Delay(a.Period())
		a.Poll(t)
	}
}

// Poll runs one aggregator cycle on behalf of task t: poll every check,
// latch any failure and toggle the on-board LED.
func (a *HealthAggregator) Poll(t domain.Task) domain.HealthSnapshot {
	results := make([]domain.CheckResult, len(a.checks))
	failed := false
	for i, c := range a.checks {
		results[i] = domain.CheckResult{Name: c.Name(), Healthy: c.Healthy()}
		failed = failed || !results[i].Healthy
	}

	var ledErr error
	t.EnterCritical()
	newlyLatched := failed && !a.latched
	if failed {
		a.latched = true
	}
	ledErr = a.led.Toggle(OnBoardLED)
	ledOn, _ := a.led.State(OnBoardLED)

	s := &a.snapshot
	s.Results = results
	s.LastPoll = a.clock.Now()
	s.Cycles++
	s.Latched = a.latched
	s.LEDOn = ledOn
	if newlyLatched {
		s.FaultSince = s.LastPoll
		s.FirstFailure = strings.Join(failedNames(results), ", ")
	}
	if a.latched {
		s.Period = a.cfg.FaultPeriod
	}
	snapshot := *s
	t.ExitCritical()

	if ledErr != nil {
		a.logger.Error(t.ID(), checkCategory, fmt.Sprintf("toggle on-board LED: %v", ledErr))
	}
	if newlyLatched {
		a.logger.Error(t.ID(), checkCategory, "fault latched: "+snapshot.FirstFailure)
	} else {
		a.logger.Debug(t.ID(), checkCategory, fmt.Sprintf("cycle %d latched=%t", snapshot.Cycles, snapshot.Latched))
	}
	return snapshot
}

// Period returns the current poll period.
func (a *HealthAggregator) Period() domain.Ticks {
	if a.Latched() {
		return a.cfg.FaultPeriod
	}
	return a.cfg.HealthyPeriod
}

// Latched reports whether a failure has ever been seen.
func (a *HealthAggregator) Latched() bool {
	var latched bool
	a.sched.Critical(func() {
		latched = a.latched
	})
	return latched
}

// Snapshot returns the state after the most recent cycle.
func (a *HealthAggregator) Snapshot() domain.HealthSnapshot {
	var s domain.HealthSnapshot
	a.sched.Critical(func() {
		s = a.snapshot
	})
	return s
}

func failedNames(results []domain.CheckResult) []string {
	return domain.HealthSnapshot{Results: results}.Failed()
}

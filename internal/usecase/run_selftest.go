package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/runoshun/rtcheck/internal/domain"
)

const runCategory = "run"

// shutdownTimeout bounds how long the kernel may take to unwind every task.
const shutdownTimeout = 5 * time.Second

// SerialChannel is the duplex channel the com test runs over.
type SerialChannel interface {
	domain.SerialPort
	Stats() domain.SerialStats
	Close() error
}

// UARTStatsSource reports counters of the simulated UART.
type UARTStatsSource interface {
	Stats() domain.UARTStats
}

// SelfTestDeps holds everything a self-test run is built from.
// Fields are ordered to minimize memory padding.
type SelfTestDeps struct {
	Sched   domain.Scheduler
	Port    SerialChannel
	UART    UARTStatsSource // optional
	LEDs    domain.LEDBank  // parallel port LEDs used by the flash tasks
	OnBoard domain.LEDBank  // LED toggled by the health aggregator
	Logger  domain.Logger
	Clock   domain.Clock
	Config  *domain.Config
	NewID   func() string
}

// RunSelfTestInput contains the parameters for a self-test run.
type RunSelfTestInput struct {
	Duration time.Duration // How long to run (0 = until ctx is done)
}

// RunSelfTest is the use case for running the whole self-test harness.
type RunSelfTest struct {
	deps    SelfTestDeps
	started time.Time
	runID   string

	mu      sync.Mutex // protects the components below
	running bool
	flash   *LEDFlash
	pollq   *PollQueue
	math    *MathCheck
	com     *ComTest
	check   *HealthAggregator
	churn   *ChurnSupervisor
}

// NewRunSelfTest creates a new RunSelfTest use case.
func NewRunSelfTest(deps SelfTestDeps) *RunSelfTest {
	if deps.Clock == nil {
		deps.Clock = domain.RealClock{}
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return "" }
	}
	return &RunSelfTest{deps: deps}
}

// Start creates every component: flash, poll queue, math (preemptive
// kernels only), com test, aggregator and finally churn, so that the churn
// baseline counts every other task.
func (uc *RunSelfTest) Start() error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.running {
		return errors.New("self-test already running")
	}
	cfg := uc.deps.Config
	sched := uc.deps.Sched
	logger := uc.deps.Logger

	uc.runID = uc.deps.NewID()
	uc.started = uc.deps.Clock.Now()
	logger.Info(0, runCategory, fmt.Sprintf("run %s starting (preemptive=%t)", uc.runID, sched.Preemptive()))

	var checks []domain.HealthCheck

	uc.flash = NewLEDFlash(sched, uc.deps.LEDs, logger, cfg.Flash)
	if err := uc.flash.Start(); err != nil {
		return err
	}

	pollq, err := NewPollQueue(sched, logger, cfg.PollQ, cfg.Faults)
	if err != nil {
		return err
	}
	if err := pollq.Start(); err != nil {
		return err
	}
	uc.pollq = pollq
	checks = append(checks, pollq)

	if sched.Preemptive() {
		uc.math = NewMathCheck(sched, logger, cfg.Math)
		if err := uc.math.Start(); err != nil {
			return err
		}
		checks = append(checks, uc.math)
	}

	if cfg.ComTest.Enabled {
		uc.com = NewComTest(sched, uc.deps.Port, logger, cfg.ComTest)
		if err := uc.com.Start(); err != nil {
			return err
		}
		checks = append(checks, uc.com)
	}

	uc.churn = NewChurnSupervisor(sched, logger, cfg.Churn, cfg.Faults)
	checks = append([]domain.HealthCheck{uc.churn}, checks...)

	uc.check = NewHealthAggregator(sched, uc.deps.OnBoard, logger, uc.deps.Clock, cfg.Check, checks...)
	if err := uc.check.Start(); err != nil {
		return err
	}
	if err := uc.churn.Start(); err != nil {
		return err
	}

	uc.running = true
	return nil
}

// Execute starts the harness, runs it for in.Duration or until ctx is done,
// shuts the kernel down and returns the final report. A latched fault is
// reported, not returned as an error.
func (uc *RunSelfTest) Execute(ctx context.Context, in RunSelfTestInput) (*domain.Report, error) {
	if err := uc.Start(); err != nil {
		_ = uc.stop()
		return nil, fmt.Errorf("start self-test: %w", err)
	}

	if in.Duration > 0 {
		timer := time.NewTimer(in.Duration)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	} else {
		<-ctx.Done()
	}

	report := uc.Report()
	if err := uc.stop(); err != nil {
		return report, err
	}
	report.Kernel = uc.deps.Sched.Stats()

	if report.Passed() {
		uc.deps.Logger.Info(0, runCategory, fmt.Sprintf("run %s passed after %s", report.RunID, report.Duration))
	} else {
		uc.deps.Logger.Error(0, runCategory, fmt.Sprintf("run %s failed: first failure %s", report.RunID, report.Health.FirstFailure))
	}
	return report, nil
}

// stop deletes every task and closes the serial port.
func (uc *RunSelfTest) stop() error {
	uc.mu.Lock()
	uc.running = false
	uc.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := uc.deps.Sched.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown kernel: %w", err))
	}
	if uc.deps.Port != nil {
		if err := uc.deps.Port.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Snapshot returns the aggregator state after its most recent cycle.
func (uc *RunSelfTest) Snapshot() domain.HealthSnapshot {
	uc.mu.Lock()
	check := uc.check
	uc.mu.Unlock()

	if check == nil {
		return domain.HealthSnapshot{}
	}
	return check.Snapshot()
}

// Report returns the current state of the run.
func (uc *RunSelfTest) Report() *domain.Report {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	now := uc.deps.Clock.Now()
	r := &domain.Report{
		RunID:      uc.runID,
		Backend:    uc.deps.Config.Serial.Backend,
		Started:    uc.started,
		Finished:   now,
		Duration:   now.Sub(uc.started),
		Preemptive: uc.deps.Sched.Preemptive(),
		Kernel:     uc.deps.Sched.Stats(),
		Tasks:      uc.deps.Sched.Tasks(),
		LEDs:       append(ledStates("parallel", uc.deps.LEDs), ledStates("onboard", uc.deps.OnBoard)...),
	}
	if uc.check != nil {
		r.Health = uc.check.Snapshot()
	}
	if uc.churn != nil {
		r.Churn = uc.churn.Stats()
	}
	if uc.pollq != nil {
		r.PollQ = uc.pollq.Stats()
	}
	if uc.math != nil {
		r.Math = uc.math.Counts()
	}
	if uc.com != nil {
		r.ComTest = uc.com.Stats()
	}
	if uc.deps.Port != nil {
		r.Serial = uc.deps.Port.Stats()
	}
	if uc.deps.UART != nil {
		r.UART = uc.deps.UART.Stats()
	}
	return r
}

func ledStates(bank string, leds domain.LEDBank) []domain.LEDState {
	if leds == nil {
		return nil
	}
	states := make([]domain.LEDState, 0, leds.Count())
	for n := 0; n < leds.Count(); n++ {
		on, _ := leds.State(n)
		toggles, _ := leds.Toggles(n)
		states = append(states, domain.LEDState{Bank: bank, LED: n, On: on, Toggles: toggles})
	}
	return states
}

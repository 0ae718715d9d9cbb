package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/runoshun/rtcheck/internal/domain"
	"github.com/runoshun/rtcheck/internal/infra/indicator"
	"github.com/runoshun/rtcheck/internal/infra/logging"
	"github.com/runoshun/rtcheck/internal/infra/serial"
	"github.com/runoshun/rtcheck/internal/infra/uart"
	"github.com/runoshun/rtcheck/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig scales every period down so a run completes several
// aggregator cycles in well under a second with a 1ms tick.
func fastConfig() *domain.Config {
	cfg := domain.NewDefaultConfig()
	cfg.Churn.Period = 20
	cfg.Churn.WorkerDelay = 8
	cfg.PollQ.Delay = 5
	cfg.Serial.Baud = 9600
	cfg.ComTest.Block = 20
	cfg.Math.Pause = 2
	cfg.Flash.RateBase = 20
	cfg.Check.HealthyPeriod = 100
	cfg.Check.FaultPeriod = 10
	return cfg
}

func newSelfTest(t *testing.T, cfg *domain.Config) *RunSelfTest {
	t.Helper()
	k := testutil.NewKernel(t, time.Millisecond)
	hw := uart.NewLoopback(cfg.Serial.ClockHz)
	port, err := serial.Open(k, hw, logging.Nop(), cfg.Serial.Baud, cfg.Serial.Depth)
	require.NoError(t, err)

	return NewRunSelfTest(SelfTestDeps{
		Sched:   k,
		Port:    port,
		UART:    hw,
		LEDs:    indicator.NewParallel(),
		OnBoard: indicator.NewOnBoard(),
		Logger:  logging.Nop(),
		Config:  cfg,
		NewID:   func() string { return "run-1" },
	})
}

func TestRunSelfTest_Execute_Passes(t *testing.T) {
	// Setup
	uc := newSelfTest(t, fastConfig())

	// Execute
	report, err := uc.Execute(context.Background(), RunSelfTestInput{Duration: 550 * time.Millisecond})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, report.Passed(), "failed: %s", report.Health.FirstFailure)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, domain.BackendLoopback, report.Backend)
	assert.GreaterOrEqual(t, report.Health.Cycles, uint64(4))
	assert.Len(t, report.Health.Results, 4)
	assert.Equal(t, "churn", report.Health.Results[0].Name)

	assert.NotZero(t, report.Churn.Activity)
	assert.NotZero(t, report.PollQ.Consumed)
	assert.NotZero(t, report.ComTest.Strings)
	assert.Len(t, report.Math, 8)
	assert.NotZero(t, report.Serial.BytesRead)
	assert.NotZero(t, report.UART.Transmitted)
	assert.NotEmpty(t, report.Tasks)

	assert.Zero(t, report.Kernel.TaskCount, "every task deleted at shutdown")
	assert.Zero(t, report.Kernel.HeapInUse, "every stack returned")

	require.Len(t, report.LEDs, 9)
	onboard := report.LEDs[8]
	assert.Equal(t, "onboard", onboard.Bank)
	assert.InDelta(t, float64(report.Health.Cycles), float64(onboard.Toggles), 1, "one toggle per cycle")
}

func TestRunSelfTest_Execute_LeakLatches(t *testing.T) {
	// Setup
	cfg := fastConfig()
	cfg.Faults.SkipSiblingDelete = true
	uc := newSelfTest(t, cfg)

	// Execute
	report, err := uc.Execute(context.Background(), RunSelfTestInput{Duration: 600 * time.Millisecond})

	// Assert
	require.NoError(t, err)
	assert.False(t, report.Passed())
	assert.True(t, strings.Contains(report.Health.FirstFailure, "churn"), report.Health.FirstFailure)
	assert.Equal(t, cfg.Check.FaultPeriod, report.Health.Period)
	assert.Greater(t, report.Churn.Population, report.Churn.Bound)
}

func TestRunSelfTest_Execute_StopsOnCancel(t *testing.T) {
	uc := newSelfTest(t, fastConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	report, err := uc.Execute(ctx, RunSelfTestInput{})

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, report.Kernel.TaskCount)
}

func TestRunSelfTest_CooperativeSkipsMath(t *testing.T) {
	cfg := fastConfig()
	cfg.ComTest.Enabled = false
	k := testutil.NewKernel(t, time.Millisecond)
	uc := NewRunSelfTest(SelfTestDeps{
		Sched:   &cooperative{Scheduler: k},
		LEDs:    testutil.NewMockLEDBank(8),
		OnBoard: testutil.NewMockLEDBank(1),
		Logger:  logging.Nop(),
		Config:  cfg,
	})

	require.NoError(t, uc.Start())

	report := uc.Report()
	assert.Nil(t, report.Math)
	assert.False(t, report.Preemptive)
	assert.Error(t, uc.Start(), "already running")
	assert.Zero(t, uc.Snapshot().Cycles)
}

func TestRunSelfTest_StartFailure(t *testing.T) {
	cfg := fastConfig()
	cfg.Flash.LEDs = 8
	k := testutil.NewKernel(t, time.Millisecond)
	uc := NewRunSelfTest(SelfTestDeps{
		Sched:   k,
		LEDs:    testutil.NewMockLEDBank(2),
		OnBoard: testutil.NewMockLEDBank(1),
		Logger:  logging.Nop(),
		Config:  cfg,
	})

	_, err := uc.Execute(context.Background(), RunSelfTestInput{Duration: time.Millisecond})

	assert.ErrorIs(t, err, domain.ErrInvalidLED)
}

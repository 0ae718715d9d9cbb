package usecase

import (
	"math"
	"testing"
	"time"

	"github.com/runoshun/rtcheck/internal/domain"
	"github.com/runoshun/rtcheck/internal/infra/logging"
	"github.com/runoshun/rtcheck/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allAbove(counts []uint64, min uint64) bool {
	for _, c := range counts {
		if c <= min {
			return false
		}
	}
	return true
}

func TestMathCalculations_MatchTheirAnswers(t *testing.T) {
	for i, calc := range mathCalculations {
		got, want := calc()
		assert.InDelta(t, want, got, 0.001, "calculation %d", i)
	}
}

func TestMathCalculations_DetectWrongOperands(t *testing.T) {
	tests := []struct {
		operands *[3]float64
		calc     calculation
		name     string
	}{
		{name: "sum product", operands: &sumOperands, calc: sumProduct},
		{name: "quotient product", operands: &quotientOperands, calc: quotientProduct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			saved := *tt.operands
			t.Cleanup(func() { *tt.operands = saved })
			tt.operands[2] *= 2

			// Execute
			got, want := tt.calc()

			// Assert
			assert.Greater(t, math.Abs(got-want), 0.001)
		})
	}
}

func TestMathCheck_AllTasksAdvance(t *testing.T) {
	// Setup
	k := testutil.NewKernel(t, time.Millisecond)
	m := NewMathCheck(k, logging.Nop(), domain.MathConfig{Pause: 1})

	// Execute
	require.NoError(t, m.Start())

	// Assert
	assert.Equal(t, 8, k.TaskCount())
	require.Eventually(t, func() bool { return allAbove(m.Counts(), 0) }, 2*time.Second, time.Millisecond)
	assert.True(t, m.Healthy())

	last := m.Counts()
	require.Eventually(t, func() bool {
		for i, c := range m.Counts() {
			if c <= last[i] {
				return false
			}
		}
		return true
	}, 2*time.Second, time.Millisecond)
	assert.True(t, m.Healthy())
}

func TestMathCheck_WrongAnswerStopsCounter(t *testing.T) {
	// Setup
	k := testutil.NewKernel(t, time.Millisecond)
	logger := &testutil.MockLogger{}
	m := NewMathCheck(k, logger, domain.MathConfig{Pause: 1})
	m.calcs[5] = func() (float64, float64) { return 1, 2 }

	// Execute
	require.NoError(t, m.Start())
	require.Eventually(t, func() bool { return m.failed[5].Load() }, 2*time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return allAbove(m.Counts()[:5], 0) }, 2*time.Second, time.Millisecond)

	// Assert
	assert.Zero(t, m.Counts()[5])
	assert.False(t, m.Healthy())
	assert.Equal(t, 1, logger.Count("ERROR"), "the wrong answer is logged once")
}

func TestMathCheck_CooperativeKernelYields(t *testing.T) {
	k := testutil.NewKernel(t, time.Millisecond)
	coop := &cooperative{Scheduler: k}
	m := NewMathCheck(coop, logging.Nop(), domain.MathConfig{Pause: 1})

	require.NoError(t, m.Start())

	require.Eventually(t, func() bool { return allAbove(m.Counts(), 0) }, 2*time.Second, time.Millisecond)
	assert.Equal(t, "math", m.Name())
}

// cooperative reports a non-preemptive scheduler.
type cooperative struct {
	domain.Scheduler
}

func (cooperative) Preemptive() bool { return false }

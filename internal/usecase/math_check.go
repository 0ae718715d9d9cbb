package usecase

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/runoshun/rtcheck/internal/domain"
)

const mathCategory = "math"

// Ensure MathCheck implements domain.HealthCheck.
var _ domain.HealthCheck = (*MathCheck)(nil)

// calculation computes a value and the answer it should produce.
type calculation func() (got, want float64)

// Operands are variables so the products are worked out at run time and
// compared against answers fixed at compile time.
var (
	sumOperands      = [3]float64{123.4567, 2345.6789, -918.222}
	quotientOperands = [3]float64{-389.38, 32498.2, -2.0001}
)

const (
	sumAnswer      = (123.4567 + 2345.6789) * -918.222
	quotientAnswer = (-389.38 / 32498.2) * -2.0001
)

func sumProduct() (got, want float64) {
	d := sumOperands
	return (d[0] + d[1]) * d[2], sumAnswer
}

func quotientProduct() (got, want float64) {
	d := quotientOperands
	return (d[0] / d[1]) * d[2], quotientAnswer
}

// arrayTotal fills an array while keeping a running total, then adds the
// array up again.
func arrayTotal(value func(i int) float64) calculation {
	return func() (got, want float64) {
		var arr [10]float64
		for i := range arr {
			arr[i] = value(i)
			want += value(i)
		}
		for _, v := range arr {
			got += v
		}
		return got, want
	}
}

var mathCalculations = []calculation{
	sumProduct,
	quotientProduct,
	arrayTotal(func(i int) float64 { return float64(i) + 5.5 }),
	arrayTotal(func(i int) float64 { return float64(i) * 12.123 }),
}

// MathCheck runs each calculation on two competing tasks. A task that gets a
// wrong answer stops incrementing its counter.
type MathCheck struct {
	sched  domain.Scheduler
	logger domain.Logger
	calcs  []calculation
	counts []atomic.Uint64
	failed []atomic.Bool
	cfg    domain.MathConfig

	mu   sync.Mutex // protects last
	last []uint64
}

// NewMathCheck creates a new MathCheck.
func NewMathCheck(sched domain.Scheduler, logger domain.Logger, cfg domain.MathConfig) *MathCheck {
	n := 2 * len(mathCalculations)
	calcs := make([]calculation, 0, n)
	calcs = append(calcs, mathCalculations...)
	calcs = append(calcs, mathCalculations...)
	return &MathCheck{
		sched:  sched,
		logger: logger,
		calcs:  calcs,
		counts: make([]atomic.Uint64, n),
		failed: make([]atomic.Bool, n),
		last:   make([]uint64, n),
		cfg:    cfg,
	}
}

// Name returns "math".
func (m *MathCheck) Name() string {
	return mathCategory
}

// Start creates one task per calculation slot.
func (m *MathCheck) Start() error {
	for i := range m.calcs {
		_, err := m.sched.CreateTask(domain.TaskSpec{
			Entry:    m.run,
			Param:    i,
			Name:     fmt.Sprintf("Math%d", i+1),
			Priority: m.cfg.Priority,
		})
		if err != nil {
			return fmt.Errorf("start math check: %w", err)
		}
	}
	return nil
}

func (m *MathCheck) run(t domain.Task) {
	slot := t.Param().(int)
	calc := m.calcs[slot]
	cooperative := !m.sched.Preemptive()

	for {
		got, want := calc()
		if cooperative {
			t.Yield()
		}

		if math.Abs(got-want) > 0.001 && !m.failed[slot].Swap(true) {
			m.logger.Error(t.ID(), mathCategory, fmt.Sprintf("%s: got %f, want %f", t.Name(), got, want))
		}
		if !m.failed[slot].Load() {
			m.counts[slot].Add(1)
		}

		t.Delay(m.cfg.Pause)
	}
}

// Healthy reports whether every task's counter advanced since the previous call.
func (m *MathCheck) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	healthy := true
	for i := range m.counts {
		n := m.counts[i].Load()
		if n == m.last[i] {
			m.logger.Warn(0, mathCategory, fmt.Sprintf("Math%d stalled at %d", i+1, n))
			healthy = false
		}
		m.last[i] = n
	}
	return healthy
}

// Counts returns the counter of every task.
func (m *MathCheck) Counts() []uint64 {
	counts := make([]uint64, len(m.counts))
	for i := range m.counts {
		counts[i] = m.counts[i].Load()
	}
	return counts
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/runoshun/rtcheck/internal/domain"
)

const comCategory = "comtest"

// Ensure ComTest implements domain.HealthCheck.
var _ domain.HealthCheck = (*ComTest)(nil)

// The tx task sends the letters comFirst..comLast over and over.
const (
	comFirst byte = 'A'
	comLast  byte = 'X'
)

// ComTest writes a fixed character sequence to a serial port and reads it
// back, expecting the port to be looped back.
type ComTest struct {
	sched  domain.Scheduler
	port   domain.SerialPort
	logger domain.Logger
	cfg    domain.ComTestConfig

	mu           sync.Mutex // protects the poll state below
	lastReceived uint64
	lastErrors   uint64

	sent        atomic.Uint64
	received    atomic.Uint64
	strings     atomic.Uint64
	txErrors    atomic.Uint64
	orderErrors atomic.Uint64
	timeouts    atomic.Uint64
}

// NewComTest creates a new ComTest.
func NewComTest(sched domain.Scheduler, port domain.SerialPort, logger domain.Logger, cfg domain.ComTestConfig) *ComTest {
	return &ComTest{
		sched:  sched,
		port:   port,
		logger: logger,
		cfg:    cfg,
	}
}

// Name returns "comtest".
func (c *ComTest) Name() string {
	return comCategory
}

// Start creates the rx and tx tasks.
func (c *ComTest) Start() error {
	for _, spec := range []domain.TaskSpec{
		{Entry: c.receive, Name: "COMRx", Priority: c.cfg.Priority},
		{Entry: c.transmit, Name: "COMTx", Priority: c.cfg.Priority},
	} {
		if _, err := c.sched.CreateTask(spec); err != nil {
			return fmt.Errorf("start com test: %w", err)
		}
	}
	return nil
}

func (c *ComTest) transmit(t domain.Task) {
	for {
		for b := comFirst; b <= comLast; b++ {
			if err := c.port.Write(t.Context(), b, c.cfg.Block); err != nil {
				c.txErrors.Add(1)
				c.logger.Warn(t.ID(), comCategory, fmt.Sprintf("write %q: %v", b, err))
				continue
			}
			c.sent.Add(1)
		}
		t.Delay(c.cfg.Block)
	}
}

func (c *ComTest) receive(t domain.Task) {
	expected := comFirst
	for {
		b, err := c.port.Read(t.Context(), c.cfg.Block)
		if errors.Is(err, domain.ErrNoData) {
			c.timeouts.Add(1)
			continue
		}
		if errors.Is(err, context.Canceled) {
			t.DeleteSelf()
		}
		if err != nil {
			c.logger.Error(t.ID(), comCategory, fmt.Sprintf("read: %v", err))
			t.DeleteSelf()
		}

		c.received.Add(1)
		if b != expected {
			c.orderErrors.Add(1)
			c.logger.Warn(t.ID(), comCategory, fmt.Sprintf("expected %q, received %q", expected, b))
		}
		if b == comLast {
			c.strings.Add(1)
			expected = comFirst
		} else {
			expected = b + 1
		}
	}
}

// Healthy reports whether characters were received since the previous call
// without any write failure or out-of-order character.
func (c *ComTest) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	received := c.received.Load()
	errs := c.txErrors.Load() + c.orderErrors.Load()
	healthy := received != c.lastReceived && errs == c.lastErrors
	if !healthy {
		c.logger.Warn(0, comCategory, fmt.Sprintf("received %d (was %d), errors %d (was %d)", received, c.lastReceived, errs, c.lastErrors))
	}
	c.lastReceived, c.lastErrors = received, errs
	return healthy
}

// Stats returns a snapshot of the counters.
func (c *ComTest) Stats() domain.ComTestStats {
	return domain.ComTestStats{
		Sent:        c.sent.Load(),
		Received:    c.received.Load(),
		Strings:     c.strings.Load(),
		TxErrors:    c.txErrors.Load(),
		OrderErrors: c.orderErrors.Load(),
		Timeouts:    c.timeouts.Load(),
	}
}

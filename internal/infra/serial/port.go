// Package serial implements the interrupt-driven duplex character channel.
//
// Received bytes are pushed onto the receive queue by the interrupt handler.
// Bytes to send go straight to the hardware while the transmitter is idle,
// otherwise onto the transmit queue, which the handler drains one byte per
// transmit-complete interrupt. The idle flag and the hardware registers are
// only touched inside the scheduler's critical section.
package serial

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/runoshun/rtcheck/internal/domain"
	"github.com/runoshun/rtcheck/internal/infra/queue"
)

const logCategory = "serial"

// Ensure Port implements domain.SerialPort.
var _ domain.SerialPort = (*Port)(nil)

// Port is an open duplex channel.
type Port struct {
	sched  domain.Scheduler
	hw     domain.SerialHardware
	logger domain.Logger
	rx     *queue.Queue[byte]
	tx     *queue.Queue[byte]
	baud   domain.BaudSetting
	mu     sync.Mutex // serializes Close
	txIdle bool       // guarded by the scheduler critical section
	closed atomic.Bool

	written      atomic.Uint64
	read         atomic.Uint64
	direct       atomic.Uint64
	writeFails   atomic.Uint64
	readTimeouts atomic.Uint64
	rxDropped    atomic.Uint64
	isrYields    atomic.Uint64
	isrCalls     atomic.Uint64
}

// Open configures hw for baud, creates receive and transmit queues of depth
// bytes and arms the interrupt handler.
func Open(sched domain.Scheduler, hw domain.SerialHardware, logger domain.Logger, baud, depth int) (*Port, error) {
	rx, err := queue.New[byte](depth, sched.TickDuration())
	if err != nil {
		return nil, fmt.Errorf("open serial rx queue: %w", err)
	}
	tx, err := queue.New[byte](depth, sched.TickDuration())
	if err != nil {
		return nil, fmt.Errorf("open serial tx queue: %w", err)
	}

	p := &Port{
		sched:  sched,
		hw:     hw,
		logger: logger,
		rx:     rx,
		tx:     tx,
	}

	var cfgErr error
	sched.Critical(func() {
		p.txIdle = true
		p.baud, cfgErr = hw.Configure(baud)
	})
	if cfgErr != nil {
		return nil, fmt.Errorf("open serial at %d baud: %w", baud, cfgErr)
	}

	hw.EnableInterrupts(p.handleInterrupt)
	logger.Info(0, logCategory, fmt.Sprintf("opened at %d baud (reload %d, actual %.0f), depth %d",
		baud, p.baud.Reload, p.baud.Actual, depth))
	return p, nil
}

// Write sends b, waiting up to block ticks for room in the transmit queue.
// With a zero block time a full queue fails immediately with
// domain.ErrQueueFull.
func (p *Port) Write(ctx context.Context, b byte, block domain.Ticks) error {
	if p.closed.Load() {
		return domain.ErrPortClosed
	}

	queued := false
	p.sched.Critical(func() {
		if p.txIdle {
			p.hw.Transmit(b)
			p.txIdle = false
			p.direct.Add(1)
			queued = true
			return
		}
		queued, _ = p.tx.SendFromISR(b)
	})
	if queued {
		p.written.Add(1)
		return nil
	}
	if block == 0 {
		p.writeFails.Add(1)
		return fmt.Errorf("write %q: %w", b, domain.ErrQueueFull)
	}

	// The section cannot be held while blocking: the interrupt handler that
	// frees space needs it.
	if err := p.tx.Send(ctx, b, block); err != nil {
		p.writeFails.Add(1)
		return fmt.Errorf("write %q: %w", b, err)
	}
	p.written.Add(1)
	p.kick()
	return nil
}

// kick restarts an idle transmitter. The transmitter may have drained the
// queue and gone idle between a blocked send's wake-up and its enqueue.
func (p *Port) kick() {
	p.sched.Critical(func() {
		if !p.txIdle {
			return
		}
		if b, ok, _ := p.tx.ReceiveFromISR(); ok {
			p.hw.Transmit(b)
			p.txIdle = false
		}
	})
}

// Read returns the next received byte, waiting up to block ticks. It
// returns domain.ErrNoData on timeout.
func (p *Port) Read(ctx context.Context, block domain.Ticks) (byte, error) {
	if p.closed.Load() {
		return 0, domain.ErrPortClosed
	}
	b, err := p.rx.Receive(ctx, block)
	if err != nil {
		if errors.Is(err, domain.ErrQueueEmpty) {
			p.readTimeouts.Add(1)
			return 0, domain.ErrNoData
		}
		return 0, err
	}
	p.read.Add(1)
	return b, nil
}

// handleInterrupt is the UART interrupt service routine.
func (p *Port) handleInterrupt() {
	p.isrCalls.Add(1)
	wake := false

	p.sched.Critical(func() {
		flags := p.hw.Flags()
		if flags.RxReady {
			b := p.hw.Receive()
			p.hw.ClearRx()
			ok, woken := p.rx.SendFromISR(b)
			if !ok {
				p.rxDropped.Add(1)
			}
			wake = wake || woken
		}

		if flags.TxReady {
			if b, ok, woken := p.tx.ReceiveFromISR(); ok {
				p.hw.Transmit(b)
				wake = wake || woken
			} else {
				p.txIdle = true
			}
			p.hw.ClearTx()
		}
	})

	if wake {
		p.isrYields.Add(1)
		p.sched.YieldFromISR()
	}
}

// Baud returns the configured baud setting.
func (p *Port) Baud() domain.BaudSetting {
	return p.baud
}

// Stats returns channel counters.
func (p *Port) Stats() domain.SerialStats {
	var idle bool
	p.sched.Critical(func() { idle = p.txIdle })
	return domain.SerialStats{
		BytesWritten:   p.written.Load(),
		BytesRead:      p.read.Load(),
		DirectWrites:   p.direct.Load(),
		WriteFailures:  p.writeFails.Load(),
		ReadTimeouts:   p.readTimeouts.Load(),
		RxDropped:      p.rxDropped.Load(),
		ISRYields:      p.isrYields.Load(),
		InterruptCalls: p.isrCalls.Load(),
		BaudReload:     p.baud.Reload,
		BaudActual:     int(p.baud.Actual + 0.5),
		BaudRequested:  p.baud.Requested,
		TxIdle:         idle,
		RxQueued:       p.rx.Len(),
		TxQueued:       p.tx.Len(),
		QueueDepth:     p.rx.Cap(),
	}
}

// Close stops the hardware. Further reads and writes fail with
// domain.ErrPortClosed.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Swap(true) {
		return nil
	}
	if err := p.hw.Close(); err != nil {
		return fmt.Errorf("close serial hardware: %w", err)
	}
	p.logger.Info(0, logCategory, "closed")
	return nil
}

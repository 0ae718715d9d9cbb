// Package uart simulates the UART used by the duplex serial channel.
//
// Both backends share the same register model: a receive register with its
// RI flag, a TI flag raised when the transmit shift register finishes a byte,
// and a level-triggered interrupt line serviced by a single dispatcher
// goroutine, so the handler never runs concurrently with itself.
package uart

import (
	"sync"
	"sync/atomic"

	"github.com/runoshun/rtcheck/internal/domain"
)

// registers is the register file and interrupt line.
type registers struct {
	handler func()
	irq     chan struct{}
	rxFree  chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	rx      byte
	ri      bool
	ti      bool
	busy    bool // a byte is in the transmit shift register
	closed  bool

	transmitted atomic.Uint64
	received    atomic.Uint64
	overruns    atomic.Uint64
	collisions  atomic.Uint64
	interrupts  atomic.Uint64
}

func newRegisters() *registers {
	return &registers{
		irq:    make(chan struct{}, 1),
		rxFree: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Receive reads the receive register.
func (r *registers) Receive() byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rx
}

// Flags returns the pending interrupt bits.
func (r *registers) Flags() domain.InterruptFlags {
	ri, ti := r.flags()
	return domain.InterruptFlags{RxReady: ri, TxReady: ti}
}

func (r *registers) flags() (ri, ti bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ri, r.ti
}

// ClearRx clears RI.
func (r *registers) ClearRx() {
	r.mu.Lock()
	r.ri = false
	r.mu.Unlock()

	select {
	case r.rxFree <- struct{}{}:
	default:
	}
}

// ClearTx clears TI.
func (r *registers) ClearTx() {
	r.mu.Lock()
	r.ti = false
	r.mu.Unlock()
}

// EnableInterrupts starts the dispatcher. Subsequent calls are ignored.
func (r *registers) EnableInterrupts(handler func()) {
	r.mu.Lock()
	if r.handler != nil || r.closed {
		r.mu.Unlock()
		return
	}
	r.handler = handler
	pending := r.ri || r.ti
	r.mu.Unlock()

	r.wg.Add(1)
	go r.dispatch()
	if pending {
		r.raise()
	}
}

// dispatch services the interrupt line until close.
func (r *registers) dispatch() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		case <-r.irq:
		}
		// Level triggered: keep servicing while a flag is pending.
		for {
			ri, ti := r.flags()
			if !ri && !ti {
				break
			}
			select {
			case <-r.done:
				return
			default:
			}
			r.interrupts.Add(1)
			r.handler()
		}
	}
}

// raise signals the interrupt line.
func (r *registers) raise() {
	select {
	case r.irq <- struct{}{}:
	default:
	}
}

// startTx loads the transmit shift register. It returns false if a byte is
// already shifting out, in which case b is lost.
func (r *registers) startTx() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	if r.busy {
		r.collisions.Add(1)
		return false
	}
	r.busy = true
	return true
}

// finishTx marks the shift register empty and raises TI.
func (r *registers) finishTx() {
	r.mu.Lock()
	r.busy = false
	r.ti = true
	closed := r.closed
	r.mu.Unlock()

	r.transmitted.Add(1)
	if !closed {
		r.raise()
	}
}

// deliver places b in the receive register and raises RI. A byte arriving
// while RI is still set overwrites the unread one.
func (r *registers) deliver(b byte) {
	r.mu.Lock()
	if r.ri {
		r.overruns.Add(1)
	}
	r.rx = b
	r.ri = true
	closed := r.closed
	r.mu.Unlock()

	r.received.Add(1)
	if !closed {
		r.raise()
	}
}

// waitRxFree blocks until RI is clear. It returns false on close.
func (r *registers) waitRxFree() bool {
	for {
		r.mu.Lock()
		pending := r.ri
		r.mu.Unlock()
		if !pending {
			return true
		}
		select {
		case <-r.rxFree:
		case <-r.done:
			return false
		}
	}
}

// shutdown stops the dispatcher. It reports false if already closed.
func (r *registers) shutdown() bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.closed = true
	r.mu.Unlock()

	close(r.done)
	r.wg.Wait()
	return true
}

// Stats returns the counters.
func (r *registers) Stats() domain.UARTStats {
	return domain.UARTStats{
		Transmitted: r.transmitted.Load(),
		Received:    r.received.Load(),
		Overruns:    r.overruns.Load(),
		Collisions:  r.collisions.Load(),
		Interrupts:  r.interrupts.Load(),
	}
}

package uart

import (
	"sync"
	"time"

	"github.com/runoshun/rtcheck/internal/domain"
)

// Ensure Loopback implements domain.SerialHardware interface.
var _ domain.SerialHardware = (*Loopback)(nil)

// Loopback is a UART whose transmit line is wired to its receive line.
// Every transmitted byte arrives in the receive register one character time
// later, together with the transmit-complete flag.
type Loopback struct {
	*registers
	timers   sync.WaitGroup
	clockHz  int
	charTime time.Duration
}

// NewLoopback creates a loopback UART clocked at clockHz.
func NewLoopback(clockHz int) *Loopback {
	return &Loopback{registers: newRegisters(), clockHz: clockHz}
}

// Configure programs the baud rate timer.
func (l *Loopback) Configure(baud int) (domain.BaudSetting, error) {
	s, err := ComputeBaud(l.clockHz, baud)
	if err != nil {
		return s, err
	}
	l.mu.Lock()
	l.charTime = CharTime(s)
	l.mu.Unlock()
	return s, nil
}

// Transmit starts shifting b out.
func (l *Loopback) Transmit(b byte) {
	if !l.startTx() {
		return
	}
	l.mu.Lock()
	d := l.charTime
	l.mu.Unlock()

	l.timers.Add(1)
	time.AfterFunc(d, func() {
		defer l.timers.Done()
		l.deliver(b)
		l.finishTx()
	})
}

// Close stops the interrupt dispatcher and waits for in-flight bytes.
func (l *Loopback) Close() error {
	l.shutdown()
	l.timers.Wait()
	return nil
}

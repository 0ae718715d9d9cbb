// Package indicator drives the simulated indicator LEDs.
//
// A Bank models an 8-bit output port with active-low LEDs: a cleared bit
// lights its LED. The LED-to-bit wiring is not linear, so LEDs are addressed
// by number and mapped to their port bit.
package indicator

import (
	"fmt"
	"sync"

	"github.com/runoshun/rtcheck/internal/domain"
)

// Ensure Bank implements domain.LEDBank interface.
var _ domain.LEDBank = (*Bank)(nil)

// ParallelWiring is the bit of each parallel-port LED, LED 0 first.
var ParallelWiring = []uint8{0x02, 0x08, 0x20, 0x01, 0x04, 0x10, 0x40, 0x80}

// OnBoardWiring is the single on-board LED.
var OnBoardWiring = []uint8{0x40}

// Bank is a set of LEDs on one output port.
// Fields are ordered to minimize memory padding.
type Bank struct {
	onChange func(n int, on bool)
	wiring   []uint8
	toggles  []uint64
	name     string
	mu       sync.Mutex
	port     uint8
}

// NewBank creates a bank with all LEDs off. name identifies the bank to
// onChange observers.
func NewBank(name string, wiring []uint8) *Bank {
	return &Bank{
		name:    name,
		wiring:  wiring,
		toggles: make([]uint64, len(wiring)),
		port:    0xff,
	}
}

// NewParallel returns the eight-LED parallel port bank.
func NewParallel() *Bank {
	return NewBank("parallel", ParallelWiring)
}

// NewOnBoard returns the on-board LED.
func NewOnBoard() *Bank {
	return NewBank("onboard", OnBoardWiring)
}

// Name returns the bank name.
func (b *Bank) Name() string {
	return b.name
}

// OnChange registers fn to be called after every LED change. It is called
// without the bank lock held.
func (b *Bank) OnChange(fn func(n int, on bool)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

func (b *Bank) bit(n int) (uint8, error) {
	if n < 0 || n >= len(b.wiring) {
		return 0, fmt.Errorf("%s led %d: %w", b.name, n, domain.ErrInvalidLED)
	}
	return b.wiring[n], nil
}

// Toggle inverts LED n.
func (b *Bank) Toggle(n int) error {
	bit, err := b.bit(n)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.port ^= bit
	b.toggles[n]++
	on := b.port&bit == 0
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(n, on)
	}
	return nil
}

// Set switches LED n on or off.
func (b *Bank) Set(n int, on bool) error {
	bit, err := b.bit(n)
	if err != nil {
		return err
	}

	b.mu.Lock()
	was := b.port&bit == 0
	if on {
		b.port &^= bit
	} else {
		b.port |= bit
	}
	changed := was != on
	if changed {
		b.toggles[n]++
	}
	fn := b.onChange
	b.mu.Unlock()

	if changed && fn != nil {
		fn(n, on)
	}
	return nil
}

// State reports whether LED n is lit.
func (b *Bank) State(n int) (bool, error) {
	bit, err := b.bit(n)
	if err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.port&bit == 0, nil
}

// Toggles returns how many times LED n changed state.
func (b *Bank) Toggles(n int) (uint64, error) {
	if _, err := b.bit(n); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.toggles[n], nil
}

// Count returns the number of LEDs.
func (b *Bank) Count() int {
	return len(b.wiring)
}

// Port returns the raw port register.
func (b *Bank) Port() uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.port
}

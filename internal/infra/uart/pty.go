package uart

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"

	"github.com/runoshun/rtcheck/internal/domain"
)

// Ensure PTY implements domain.SerialHardware interface.
var _ domain.SerialHardware = (*PTY)(nil)

// PTY is a UART whose line is a pseudo-terminal. Transmitted bytes appear on
// the terminal at Path and bytes written there are received. With echo
// enabled the terminal side sends everything back, which turns the pty into
// a loopback cable.
type PTY struct {
	*registers
	master   *os.File
	slave    *os.File
	workers  sync.WaitGroup
	clockHz  int
	charTime time.Duration
}

// OpenPTY allocates a pseudo-terminal in raw mode.
func OpenPTY(clockHz int, echo bool) (*PTY, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("open pty: %w", err)
	}
	if _, err := term.MakeRaw(int(slave.Fd())); err != nil {
		_ = master.Close()
		_ = slave.Close()
		return nil, fmt.Errorf("set pty raw mode: %w", err)
	}

	// Fd leaves the files in blocking mode; hand fresh non-blocking
	// descriptors to the runtime poller so Close can wake the readers.
	if master, err = pollable(master); err != nil {
		_ = slave.Close()
		return nil, fmt.Errorf("open pty: %w", err)
	}
	if slave, err = pollable(slave); err != nil {
		_ = master.Close()
		return nil, fmt.Errorf("open pty: %w", err)
	}

	p := &PTY{
		registers: newRegisters(),
		master:    master,
		slave:     slave,
		clockHz:   clockHz,
	}

	p.workers.Add(1)
	go p.readLine()
	if echo {
		p.workers.Add(1)
		go p.echo()
	}
	return p, nil
}

// pollable replaces f with a non-blocking duplicate of its descriptor.
// f is closed either way.
func pollable(f *os.File) (*os.File, error) {
	fd, err := syscall.Dup(int(f.Fd()))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("dup %s: %w", f.Name(), err)
	}
	name := f.Name()
	_ = f.Close()
	if err := syscall.SetNonblock(fd, true); err != nil {
		_ = syscall.Close(fd)
		return nil, fmt.Errorf("set %s non-blocking: %w", name, err)
	}
	return os.NewFile(uintptr(fd), name), nil
}

// Path returns the terminal device name external programs can open.
func (p *PTY) Path() string {
	return p.slave.Name()
}

// Configure programs the baud rate timer.
func (p *PTY) Configure(baud int) (domain.BaudSetting, error) {
	s, err := ComputeBaud(p.clockHz, baud)
	if err != nil {
		return s, err
	}
	p.mu.Lock()
	p.charTime = CharTime(s)
	p.mu.Unlock()
	return s, nil
}

// Transmit writes b to the terminal.
func (p *PTY) Transmit(b byte) {
	if !p.startTx() {
		return
	}
	p.mu.Lock()
	d := p.charTime
	p.mu.Unlock()

	p.workers.Add(1)
	go func() {
		defer p.workers.Done()
		_, _ = p.master.Write([]byte{b})
		time.Sleep(d)
		p.finishTx()
	}()
}

// readLine feeds terminal input into the receive register one byte at a
// time, holding each byte until the previous one has been read.
func (p *PTY) readLine() {
	defer p.workers.Done()
	buf := make([]byte, 64)
	for {
		n, err := p.master.Read(buf)
		for _, b := range buf[:n] {
			if !p.waitRxFree() {
				return
			}
			p.deliver(b)
		}
		if err != nil {
			return
		}
	}
}

// echo writes everything the terminal side receives straight back.
func (p *PTY) echo() {
	defer p.workers.Done()
	buf := make([]byte, 64)
	for {
		n, err := p.slave.Read(buf)
		if n > 0 {
			if _, werr := p.slave.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Close releases the terminal.
func (p *PTY) Close() error {
	if !p.shutdown() {
		return nil
	}
	err := p.master.Close()
	if serr := p.slave.Close(); err == nil {
		err = serr
	}
	p.workers.Wait()
	return err
}

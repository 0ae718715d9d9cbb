package serial

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/runoshun/rtcheck/internal/domain"
	"github.com/runoshun/rtcheck/internal/infra/kernel"
	"github.com/runoshun/rtcheck/internal/infra/uart"
	"github.com/runoshun/rtcheck/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClock = 22118400

func newKernel(t *testing.T) *kernel.Kernel {
	t.Helper()
	k := kernel.New(kernel.Options{Tick: 100 * time.Microsecond})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = k.Shutdown(ctx)
	})
	return k
}

func openMock(t *testing.T, depth int) (*Port, *testutil.MockSerialHardware) {
	t.Helper()
	hw := &testutil.MockSerialHardware{}
	p, err := Open(newKernel(t), hw, &testutil.MockLogger{}, 115200, depth)
	require.NoError(t, err)
	return p, hw
}

func TestOpen_Errors(t *testing.T) {
	k := newKernel(t)

	_, err := Open(k, &testutil.MockSerialHardware{}, &testutil.MockLogger{}, 115200, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidCapacity)

	_, err = Open(k, uart.NewLoopback(testClock), &testutil.MockLogger{}, 50, 4)
	assert.ErrorIs(t, err, domain.ErrInvalidBaud)
}

func TestWrite_IdleTransmitterWritesDirectly(t *testing.T) {
	p, hw := openMock(t, 4)
	ctx := context.Background()

	require.NoError(t, p.Write(ctx, 'a', 0))
	assert.Equal(t, []byte("a"), hw.Transmitted())
	assert.False(t, p.Stats().TxIdle)

	// Busy: the next bytes wait in the queue until transmit-complete.
	require.NoError(t, p.Write(ctx, 'b', 0))
	require.NoError(t, p.Write(ctx, 'c', 0))
	assert.Equal(t, []byte("a"), hw.Transmitted())
	assert.Equal(t, 2, p.Stats().TxQueued)

	hw.CompleteTx()
	assert.Equal(t, []byte("ab"), hw.Transmitted())
	hw.CompleteTx()
	assert.Equal(t, []byte("abc"), hw.Transmitted())

	// Drained: the next interrupt marks the transmitter idle.
	hw.CompleteTx()
	stats := p.Stats()
	assert.True(t, stats.TxIdle)
	assert.Equal(t, uint64(1), stats.DirectWrites)

	require.NoError(t, p.Write(ctx, 'd', 0))
	assert.Equal(t, []byte("abcd"), hw.Transmitted())
	assert.Equal(t, uint64(2), p.Stats().DirectWrites)
}

func TestWrite_FullQueue(t *testing.T) {
	tests := []struct {
		name  string
		block domain.Ticks
	}{
		{name: "zero block time fails immediately", block: 0},
		{name: "block time expires", block: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			p, _ := openMock(t, 2)
			ctx := context.Background()
			require.NoError(t, p.Write(ctx, '1', 0)) // direct
			require.NoError(t, p.Write(ctx, '2', 0))
			require.NoError(t, p.Write(ctx, '3', 0))

			// Execute
			err := p.Write(ctx, '4', tt.block)

			// Assert
			assert.ErrorIs(t, err, domain.ErrQueueFull)
			assert.Equal(t, uint64(1), p.Stats().WriteFailures)
			assert.Equal(t, uint64(3), p.Stats().BytesWritten)
		})
	}
}

func TestWrite_BlockedWriterResumesWhenTransmitterDrains(t *testing.T) {
	p, hw := openMock(t, 1)
	ctx := context.Background()
	require.NoError(t, p.Write(ctx, 'x', 0))
	require.NoError(t, p.Write(ctx, 'y', 0))

	done := make(chan error, 1)
	go func() { done <- p.Write(ctx, 'z', domain.BlockForever) }()

	// Drain everything, including the byte the blocked writer queues late.
	require.Eventually(t, func() bool {
		hw.CompleteTx()
		return string(hw.Transmitted()) == "xyz"
	}, time.Second, time.Millisecond)
	require.NoError(t, <-done)
}

func TestRead(t *testing.T) {
	p, hw := openMock(t, 2)
	ctx := context.Background()

	_, err := p.Read(ctx, 5)
	assert.ErrorIs(t, err, domain.ErrNoData)

	hw.ReceiveByte('h')
	hw.ReceiveByte('i')
	hw.ReceiveByte('!') // queue full: dropped
	assert.False(t, hw.Flags().RxReady)

	for _, want := range []byte("hi") {
		b, err := p.Read(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, want, b)
	}

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.RxDropped)
	assert.Equal(t, uint64(2), stats.BytesRead)
	assert.Equal(t, uint64(1), stats.ReadTimeouts)
}

func TestRead_BlockedReaderWokenByInterrupt(t *testing.T) {
	p, hw := openMock(t, 2)

	got := make(chan byte, 1)
	go func() {
		if b, err := p.Read(context.Background(), domain.BlockForever); err == nil {
			got <- b
		}
	}()

	// Deliver only once the reader is blocked.
	require.Eventually(t, func() bool { return p.rx.Len() == 0 && waiting(p) }, time.Second, 100*time.Microsecond)
	hw.ReceiveByte('w')

	select {
	case b := <-got:
		assert.Equal(t, byte('w'), b)
	case <-time.After(time.Second):
		t.Fatal("reader not woken")
	}
	assert.Equal(t, uint64(1), p.Stats().ISRYields)
}

func waiting(p *Port) bool {
	_, receivers := p.rx.Waiting()
	return receivers == 1
}

func TestClose(t *testing.T) {
	p, hw := openMock(t, 2)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, hw.Closed)

	assert.ErrorIs(t, p.Write(context.Background(), 'a', 0), domain.ErrPortClosed)
	_, err := p.Read(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrPortClosed)
}

func TestLoopback_RoundTripPreservesOrder(t *testing.T) {
	k := newKernel(t)

	for depth := 1; depth <= 16; depth++ {
		t.Run(fmt.Sprintf("depth %d", depth), func(t *testing.T) {
			hw := uart.NewLoopback(testClock)
			p, err := Open(k, hw, &testutil.MockLogger{}, 9600, depth)
			require.NoError(t, err)
			t.Cleanup(func() { _ = p.Close() })

			ctx := context.Background()
			n := 2*depth + 3
			want := make([]byte, n)
			for i := range want {
				want[i] = byte('A' + i%24)
			}

			errs := make(chan error, 1)
			go func() {
				for _, b := range want {
					if err := p.Write(ctx, b, domain.BlockForever); err != nil {
						errs <- err
						return
					}
				}
				errs <- nil
			}()

			got := make([]byte, 0, n)
			for len(got) < n {
				b, err := p.Read(ctx, 10000)
				require.NoError(t, err)
				got = append(got, b)
			}
			require.NoError(t, <-errs)

			assert.Equal(t, want, got)
			assert.Zero(t, p.Stats().RxDropped)
			require.Eventually(t, func() bool { return p.Stats().TxIdle }, time.Second, time.Millisecond)
		})
	}
}

package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/runoshun/rtcheck/internal/domain"
	"github.com/runoshun/rtcheck/internal/infra/logging"
	"github.com/runoshun/rtcheck/internal/infra/serial"
	"github.com/runoshun/rtcheck/internal/infra/uart"
	"github.com/runoshun/rtcheck/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPort replays a fixed receive sequence and accepts every write
// unless writeErr is set.
type scriptedPort struct {
	writeErr error
	readErr  error
	rx       []byte
	mu       sync.Mutex
}

func (p *scriptedPort) Write(_ context.Context, _ byte, _ domain.Ticks) error {
	return p.writeErr
}

func (p *scriptedPort) Read(_ context.Context, _ domain.Ticks) (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return 0, p.readErr
	}
	if len(p.rx) == 0 {
		time.Sleep(time.Millisecond)
		return 0, domain.ErrNoData
	}
	b := p.rx[0]
	p.rx = p.rx[1:]
	return b, nil
}

func comConfig() domain.ComTestConfig {
	return domain.ComTestConfig{Enabled: true, Priority: 2, Block: 20}
}

func TestComTest_LoopbackStaysInOrder(t *testing.T) {
	// Setup
	k := testutil.NewKernel(t, time.Millisecond)
	hw := uart.NewLoopback(22118400)
	port, err := serial.Open(k, hw, logging.Nop(), 9600, 16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = port.Close() })
	c := NewComTest(k, port, logging.Nop(), comConfig())

	// Execute
	require.NoError(t, c.Start())
	require.Eventually(t, func() bool { return c.Stats().Strings >= 1 }, 5*time.Second, time.Millisecond)
	assert.True(t, c.Healthy())
	before := c.Stats().Strings
	require.Eventually(t, func() bool { return c.Stats().Strings > before }, 5*time.Second, time.Millisecond)

	// Assert
	assert.True(t, c.Healthy())
	stats := c.Stats()
	assert.Zero(t, stats.OrderErrors)
	assert.Zero(t, stats.TxErrors)
}

func TestComTest_Faults(t *testing.T) {
	tests := []struct {
		name  string
		port  *scriptedPort
		check func(t *testing.T, s domain.ComTestStats)
	}{
		{
			name: "out of order",
			port: &scriptedPort{rx: []byte("ABDE")},
			check: func(t *testing.T, s domain.ComTestStats) {
				assert.Equal(t, uint64(1), s.OrderErrors)
			},
		},
		{
			name: "write failure",
			port: &scriptedPort{rx: []byte("ABC"), writeErr: domain.ErrQueueFull},
			check: func(t *testing.T, s domain.ComTestStats) {
				assert.NotZero(t, s.TxErrors)
				assert.Zero(t, s.Sent)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			k := testutil.NewKernel(t, time.Millisecond)
			c := NewComTest(k, tt.port, logging.Nop(), comConfig())

			// Execute
			require.NoError(t, c.Start())
			require.Eventually(t, func() bool { return c.Stats().Timeouts > 0 }, 2*time.Second, time.Millisecond)

			// Assert
			assert.False(t, c.Healthy())
			tt.check(t, c.Stats())
		})
	}
}

func TestComTest_NothingReceived(t *testing.T) {
	k := testutil.NewKernel(t, time.Millisecond)
	c := NewComTest(k, &scriptedPort{}, logging.Nop(), comConfig())
	require.NoError(t, c.Start())

	assert.False(t, c.Healthy())
	assert.Equal(t, "comtest", c.Name())
}

func TestComTest_ReadErrorDeletesReceiver(t *testing.T) {
	tests := []struct {
		name       string
		readErr    error
		wantErrors int
	}{
		{name: "task deleted", readErr: context.Canceled, wantErrors: 0},
		{name: "line fault", readErr: errors.New("line fault"), wantErrors: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			k := testutil.NewKernel(t, time.Millisecond)
			logger := &testutil.MockLogger{}
			c := NewComTest(k, &scriptedPort{readErr: tt.readErr}, logger, comConfig())

			// Execute
			require.NoError(t, c.Start())
			require.Eventually(t, func() bool { return k.TaskCount() == 1 }, 2*time.Second, time.Millisecond)

			// Assert
			assert.Equal(t, tt.wantErrors, logger.Count("ERROR"))
			assert.Zero(t, c.Stats().Received)
		})
	}
}

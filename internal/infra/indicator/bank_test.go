package indicator

import (
	"testing"

	"github.com/runoshun/rtcheck/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBank_StartsOff(t *testing.T) {
	b := NewParallel()

	assert.Equal(t, 8, b.Count())
	assert.Equal(t, uint8(0xff), b.Port())
	for n := 0; n < b.Count(); n++ {
		on, err := b.State(n)
		require.NoError(t, err)
		assert.False(t, on)
	}
}

func TestBank_ToggleClearsWiredBit(t *testing.T) {
	tests := []struct {
		led      int
		wantPort uint8
	}{
		{0, 0xfd},
		{1, 0xf7},
		{3, 0xfe},
		{7, 0x7f},
	}

	for _, tt := range tests {
		b := NewParallel()
		require.NoError(t, b.Toggle(tt.led))
		assert.Equal(t, tt.wantPort, b.Port(), "led %d", tt.led)

		on, err := b.State(tt.led)
		require.NoError(t, err)
		assert.True(t, on)
	}
}

func TestBank_InvalidLED(t *testing.T) {
	b := NewParallel()

	for _, n := range []int{-1, 8, 200} {
		assert.ErrorIs(t, b.Toggle(n), domain.ErrInvalidLED)
		assert.ErrorIs(t, b.Set(n, true), domain.ErrInvalidLED)
		_, err := b.State(n)
		assert.ErrorIs(t, err, domain.ErrInvalidLED)
		_, err = b.Toggles(n)
		assert.ErrorIs(t, err, domain.ErrInvalidLED)
	}
	assert.Equal(t, uint8(0xff), b.Port())
}

func TestBank_SetCountsOnlyChanges(t *testing.T) {
	b := NewOnBoard()

	require.NoError(t, b.Set(0, true))
	require.NoError(t, b.Set(0, true))
	require.NoError(t, b.Set(0, false))

	n, err := b.Toggles(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	assert.Equal(t, "onboard", b.Name())
}

func TestBank_OnChange(t *testing.T) {
	b := NewParallel()
	type change struct {
		n  int
		on bool
	}
	var got []change
	b.OnChange(func(n int, on bool) { got = append(got, change{n, on}) })

	require.NoError(t, b.Toggle(2))
	require.NoError(t, b.Toggle(2))
	require.NoError(t, b.Set(5, false)) // no change

	assert.Equal(t, []change{{2, true}, {2, false}}, got)
}

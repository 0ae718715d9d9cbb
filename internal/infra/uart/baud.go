package uart

import (
	"fmt"
	"time"

	"github.com/runoshun/rtcheck/internal/domain"
)

// bitsPerChar is start + 8 data + stop.
const bitsPerChar = 10

// ComputeBaud returns the timer reload value that generates baud from a
// clock of clockHz, using an 8-bit auto-reload timer with the baud doubler
// enabled. The result is rejected if the reload does not fit the timer.
func ComputeBaud(clockHz, baud int) (domain.BaudSetting, error) {
	if clockHz <= 0 || baud <= 0 {
		return domain.BaudSetting{}, fmt.Errorf("baud %d at %d Hz: %w", baud, clockHz, domain.ErrInvalidBaud)
	}

	divisor := float64(clockHz) * 2 / float64(32*baud)
	reload := int(256 - divisor + 0.5)
	if reload < 1 || reload > 255 {
		return domain.BaudSetting{}, fmt.Errorf("baud %d at %d Hz needs reload %d: %w", baud, clockHz, reload, domain.ErrInvalidBaud)
	}

	return domain.BaudSetting{
		Requested: baud,
		Actual:    float64(clockHz) * 2 / float64(32*(256-reload)),
		Reload:    uint8(reload),
	}, nil
}

// CharTime returns how long one character takes on the wire.
func CharTime(s domain.BaudSetting) time.Duration {
	if s.Actual <= 0 {
		return 0
	}
	return time.Duration(float64(bitsPerChar) / s.Actual * float64(time.Second))
}

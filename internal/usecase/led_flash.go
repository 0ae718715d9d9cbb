package usecase

import (
	"fmt"

	"github.com/runoshun/rtcheck/internal/domain"
)

const flashCategory = "flash"

// LEDFlash runs one task per LED, each toggling its LED at its own rate.
// Flash tasks have no health predicate; their output is visual.
type LEDFlash struct {
	sched  domain.Scheduler
	leds   domain.LEDBank
	logger domain.Logger
	cfg    domain.FlashConfig
	next   int // next LED to hand out, guarded by the critical section
}

// NewLEDFlash creates a new LEDFlash.
func NewLEDFlash(sched domain.Scheduler, leds domain.LEDBank, logger domain.Logger, cfg domain.FlashConfig) *LEDFlash {
	return &LEDFlash{
		sched:  sched,
		leds:   leds,
		logger: logger,
		cfg:    cfg,
	}
}

// Start creates the flash tasks.
func (f *LEDFlash) Start() error {
	if f.cfg.LEDs > f.leds.Count() {
		return fmt.Errorf("start led flash: %d tasks for %d LEDs: %w", f.cfg.LEDs, f.leds.Count(), domain.ErrInvalidLED)
	}
	for i := 0; i < f.cfg.LEDs; i++ {
		_, err := f.sched.CreateTask(domain.TaskSpec{
			Entry:    f.run,
			Name:     "LEDx",
			Priority: f.cfg.Priority,
		})
		if err != nil {
			return fmt.Errorf("start led flash: %w", err)
		}
	}
	return nil
}

// HalfPeriod returns the ticks between toggles of LED n.
func (f *LEDFlash) HalfPeriod(n int) domain.Ticks {
	return f.cfg.RateBase * domain.Ticks(n+1) / 2
}

func (f *LEDFlash) run(t domain.Task) {
	t.EnterCritical()
	led := f.next
	f.next++
	t.ExitCritical()

	rate := f.HalfPeriod(led)
	f.logger.Debug(t.ID(), flashCategory, fmt.Sprintf("LED %d toggles every %d ticks", led, rate))

	for {
		t.Delay(rate)
		if err := f.leds.Toggle(led); err != nil {
			f.logger.Error(t.ID(), flashCategory, err.Error())
			t.DeleteSelf()
		}
	}
}

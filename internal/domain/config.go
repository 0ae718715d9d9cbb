package domain

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config represents the harness configuration.
// Fields are ordered to minimize memory padding.
type Config struct {
	Warnings []string      `toml:"-"`
	Log      LogConfig     `toml:"log"`
	Serial   SerialConfig  `toml:"serial"`
	Kernel   KernelConfig  `toml:"kernel"`
	Churn    ChurnConfig   `toml:"churn"`
	PollQ    PollQConfig   `toml:"pollq"`
	ComTest  ComTestConfig `toml:"comtest"`
	Check    CheckConfig   `toml:"check"`
	Flash    FlashConfig   `toml:"flash"`
	Faults   FaultsConfig  `toml:"faults"`
	Math     MathConfig    `toml:"math"`
}

// KernelConfig holds scheduler settings from the [kernel] section.
type KernelConfig struct {
	Tick          string `toml:"tick"`           // Duration of one tick, e.g. "1ms"
	HeapSize      int    `toml:"heap_size"`      // Bytes available for task stacks
	MinStack      int    `toml:"min_stack"`      // Minimal task stack size
	MaxPriorities int    `toml:"max_priorities"` // Number of priorities (0..n-1)
	Preemptive    bool   `toml:"preemptive"`     // Preemptive or cooperative build
}

// ChurnConfig holds task churn settings from the [churn] section.
type ChurnConfig struct {
	Period         Ticks    `toml:"period"`          // Ticks between cohorts
	WorkerDelay    Ticks    `toml:"worker_delay"`    // Ticks each worker sleeps per iteration
	StackSize      int      `toml:"stack_size"`      // Worker stack size
	MaxExtra       int      `toml:"max_extra"`       // Tolerated tasks above the baseline
	OverboundPolls int      `toml:"overbound_polls"` // Consecutive over-bound polls before failing
	Priority       Priority `toml:"priority"`
}

// PollQConfig holds queue liveness pair settings from the [pollq] section.
type PollQConfig struct {
	Capacity int      `toml:"capacity"` // Queue capacity in elements
	Batch    int      `toml:"batch"`    // Values sent per producer cycle
	Delay    Ticks    `toml:"delay"`    // Ticks between cycles
	Priority Priority `toml:"priority"`
}

// SerialConfig holds duplex channel settings from the [serial] section.
type SerialConfig struct {
	Backend string `toml:"backend"`  // "loopback" or "pty"
	Baud    int    `toml:"baud"`     // Requested baud rate
	Depth   int    `toml:"depth"`    // Receive and transmit queue depth
	ClockHz int    `toml:"clock_hz"` // UART timer clock
}

// ComTestConfig holds serial loopback test settings from the [comtest] section.
type ComTestConfig struct {
	Block    Ticks    `toml:"block"` // Block time for writes and reads
	Priority Priority `toml:"priority"`
	Enabled  bool     `toml:"enabled"`
}

// MathConfig holds calculation check settings from the [math] section.
type MathConfig struct {
	Pause    Ticks    `toml:"pause"` // Ticks slept between calculation batches
	Priority Priority `toml:"priority"`
}

// FlashConfig holds LED flash settings from the [flash] section.
type FlashConfig struct {
	LEDs     int      `toml:"leds"`      // Number of flash tasks (one LED each)
	RateBase Ticks    `toml:"rate_base"` // Base flash period
	Priority Priority `toml:"priority"`
}

// CheckConfig holds health aggregator settings from the [check] section.
type CheckConfig struct {
	HealthyPeriod Ticks    `toml:"healthy_period"` // Poll period while no fault is latched
	FaultPeriod   Ticks    `toml:"fault_period"`   // Poll period once a fault is latched
	Priority      Priority `toml:"priority"`
}

// FaultsConfig holds fault injection switches from the [faults] section.
type FaultsConfig struct {
	DropEvery         int  `toml:"drop_every"`          // Producer skips a value every N sends (0 = off)
	SkipSiblingDelete bool `toml:"skip_sibling_delete"` // Paired workers leak their sibling
}

// LogConfig holds logging settings from the [log] section.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
	Dir   string `toml:"dir"`   // Directory for rtcheck.log (empty = stderr)
}

// TickDuration parses the configured tick length.
func (c KernelConfig) TickDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Tick)
	if err != nil {
		return 0, fmt.Errorf("parse kernel.tick: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("kernel.tick must be positive, got %s", c.Tick)
	}
	return d, nil
}

// Config file locations.
const (
	ConfigFileName = "config.toml" // Config file name
	LogFileName    = "rtcheck.log" // Global log file name
	appDirName     = "rtcheck"
)

// GlobalConfigDir returns the global config directory under configHome.
func GlobalConfigDir(configHome string) string {
	return filepath.Join(configHome, appDirName)
}

// GlobalConfigPath returns the global config file path under configHome.
func GlobalConfigPath(configHome string) string {
	return filepath.Join(GlobalConfigDir(configHome), ConfigFileName)
}

// GlobalLogPath returns the log file path inside logDir.
func GlobalLogPath(logDir string) string {
	return filepath.Join(logDir, LogFileName)
}

// NewDefaultConfig returns the configuration used when no file overrides it.
func NewDefaultConfig() *Config {
	return &Config{
		Kernel: KernelConfig{
			Tick:          "1ms",
			HeapSize:      32 * 1024,
			MinStack:      128,
			MaxPriorities: 4,
			Preemptive:    true,
		},
		Churn: ChurnConfig{
			Priority:       1,
			Period:         1000,
			WorkerDelay:    500,
			StackSize:      512,
			MaxExtra:       4,
			OverboundPolls: 2,
		},
		PollQ: PollQConfig{
			Priority: 2,
			Capacity: 10,
			Batch:    3,
			Delay:    200,
		},
		Serial: SerialConfig{
			Backend: "loopback",
			Baud:    115200,
			Depth:   16,
			ClockHz: 22118400,
		},
		ComTest: ComTestConfig{
			Enabled:  true,
			Priority: 2,
			Block:    50,
		},
		Math: MathConfig{
			Priority: IdlePriority,
			Pause:    2,
		},
		Flash: FlashConfig{
			Priority: 1,
			LEDs:     3,
			RateBase: 333,
		},
		Check: CheckConfig{
			Priority:      3,
			HealthyPeriod: 5000,
			FaultPeriod:   250,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigInfo describes a config file on disk.
type ConfigInfo struct {
	Path    string // Absolute path of the file
	Content string // File content if it exists
	Exists  bool   // Whether the file exists
}

// Serial backends.
const (
	BackendLoopback = "loopback"
	BackendPTY      = "pty"
)

// Validate checks the configuration for values the harness cannot run with.
func (c *Config) Validate() error {
	if _, err := c.Kernel.TickDuration(); err != nil {
		return err
	}
	maxPrio := c.Kernel.MaxPriorities
	if maxPrio <= 0 {
		return fmt.Errorf("kernel.max_priorities must be positive, got %d", maxPrio)
	}
	for name, p := range map[string]Priority{
		"churn.priority":   c.Churn.Priority,
		"pollq.priority":   c.PollQ.Priority,
		"comtest.priority": c.ComTest.Priority,
		"math.priority":    c.Math.Priority,
		"flash.priority":   c.Flash.Priority,
		"check.priority":   c.Check.Priority,
	} {
		if int(p) >= maxPrio {
			return fmt.Errorf("%s %d exceeds kernel.max_priorities %d: %w", name, p, maxPrio, ErrInvalidPriority)
		}
	}
	others := map[string]Priority{
		"churn.priority": c.Churn.Priority,
		"pollq.priority": c.PollQ.Priority,
		"math.priority":  c.Math.Priority,
		"flash.priority": c.Flash.Priority,
	}
	if c.ComTest.Enabled {
		others["comtest.priority"] = c.ComTest.Priority
	}
	for name, p := range others {
		if p >= c.Check.Priority {
			return fmt.Errorf("check.priority %d must be above %s %d: %w", c.Check.Priority, name, p, ErrInvalidPriority)
		}
	}

	switch {
	case c.Churn.Period == 0:
		return fmt.Errorf("churn.period must be positive")
	case c.Churn.MaxExtra < 0:
		return fmt.Errorf("churn.max_extra must not be negative, got %d", c.Churn.MaxExtra)
	case c.Churn.OverboundPolls < 1:
		return fmt.Errorf("churn.overbound_polls must be at least 1, got %d", c.Churn.OverboundPolls)
	case c.PollQ.Capacity <= 0:
		return fmt.Errorf("pollq.capacity %d: %w", c.PollQ.Capacity, ErrInvalidCapacity)
	case c.PollQ.Batch <= 0:
		return fmt.Errorf("pollq.batch must be positive, got %d", c.PollQ.Batch)
	case c.PollQ.Batch > c.PollQ.Capacity:
		return fmt.Errorf("pollq.batch %d exceeds pollq.capacity %d", c.PollQ.Batch, c.PollQ.Capacity)
	case c.Serial.Depth <= 0:
		return fmt.Errorf("serial.depth %d: %w", c.Serial.Depth, ErrInvalidCapacity)
	case c.Serial.Backend != BackendLoopback && c.Serial.Backend != BackendPTY:
		return fmt.Errorf("serial.backend %q: %w", c.Serial.Backend, ErrUnknownBackend)
	case c.Flash.LEDs < 0 || c.Flash.LEDs > 8:
		return fmt.Errorf("flash.leds %d: %w", c.Flash.LEDs, ErrInvalidLED)
	case c.Check.HealthyPeriod == 0 || c.Check.FaultPeriod == 0:
		return fmt.Errorf("check periods must be positive")
	case c.Faults.DropEvery < 0:
		return fmt.Errorf("faults.drop_every must not be negative, got %d", c.Faults.DropEvery)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: must be debug, info, warn or error", c.Log.Level)
	}
	return nil
}

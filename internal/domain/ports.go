package domain

import (
	"context"
	"time"
)

// Scheduler is the task scheduler contract the harness consumes.
type Scheduler interface {
	// CreateTask creates a task and makes it ready to run.
	CreateTask(spec TaskSpec) (TaskHandle, error)

	// DeleteTask deletes another task. The task stops at its next kernel
	// interaction and its stack returns to the heap when it unwinds.
	DeleteTask(h TaskHandle) error

	// TaskCount returns the number of live tasks.
	TaskCount() int

	// Tasks returns a snapshot of all tasks that have not yet terminated.
	Tasks() []TaskInfo

	// Critical runs fn inside the critical section. It must not be called
	// by a task that already holds the section.
	Critical(fn func())

	// YieldFromISR requests a reschedule at the end of an interrupt handler.
	YieldFromISR()

	// TickDuration returns the wall-clock length of one tick.
	TickDuration() time.Duration

	// Preemptive reports whether the scheduler was configured as preemptive.
	Preemptive() bool

	// Stats returns kernel counters.
	Stats() KernelStats

	// Shutdown deletes every task and waits for them to unwind.
	Shutdown(ctx context.Context) error
}

// KernelStats holds scheduler counters.
// Fields are ordered to minimize memory padding.
type KernelStats struct {
	TasksCreated     uint64 `json:"tasksCreated" yaml:"tasks_created"`
	TasksDeleted     uint64 `json:"tasksDeleted" yaml:"tasks_deleted"`
	CreateFailures   uint64 `json:"createFailures" yaml:"create_failures"`
	YieldsFromISR    uint64 `json:"yieldsFromISR" yaml:"yields_from_isr"`
	TaskCount        int    `json:"taskCount" yaml:"task_count"`
	HeapSize         int    `json:"heapSize" yaml:"heap_size"`
	HeapInUse        int    `json:"heapInUse" yaml:"heap_in_use"`
	HeapLowWatermark int    `json:"heapLowWatermark" yaml:"heap_low_watermark"`
}

// InterruptFlags are the UART interrupt pending bits.
type InterruptFlags struct {
	RxReady bool // RI: a received byte is waiting in the receive register
	TxReady bool // TI: the transmit shift register finished a byte
}

// BaudSetting is the result of configuring the UART timer.
type BaudSetting struct {
	Requested int     // Requested baud rate
	Actual    float64 // Baud rate the reload value achieves
	Reload    uint8   // Timer reload value
}

// SerialHardware is the UART register interface used by the duplex channel.
// Register accessors are called with the critical section held.
type SerialHardware interface {
	// Configure programs the baud rate timer.
	Configure(baud int) (BaudSetting, error)

	// Transmit writes a byte to the transmit shift register.
	Transmit(b byte)

	// Receive reads the receive register.
	Receive() byte

	// Flags returns the pending interrupt bits.
	Flags() InterruptFlags

	// ClearRx clears the receive interrupt bit.
	ClearRx()

	// ClearTx clears the transmit interrupt bit.
	ClearTx()

	// EnableInterrupts arms the UART interrupt. The handler is invoked
	// serially from a single interrupt context.
	EnableInterrupts(handler func())

	// Close stops the hardware and its interrupt context.
	Close() error
}

// LEDBank drives the indicator LEDs.
type LEDBank interface {
	// Toggle inverts an LED.
	Toggle(n int) error

	// Set switches an LED on or off.
	Set(n int, on bool) error

	// State reports whether an LED is on.
	State(n int) (bool, error)

	// Toggles returns how many times an LED changed state.
	Toggles(n int) (uint64, error)

	// Count returns the number of LEDs in the bank.
	Count() int
}

// HealthCheck is a liveness predicate polled by the health aggregator.
type HealthCheck interface {
	// Name returns the name of the checked subsystem.
	Name() string

	// Healthy reports whether the subsystem made verified progress since
	// the previous call.
	Healthy() bool
}

// ConfigLoader loads configuration from files.
type ConfigLoader interface {
	// Load returns the merged configuration (defaults + global + file).
	Load() (*Config, error)
}

// Logger is the leveled logger used across the harness.
// taskID 0 means the entry is not associated with a task.
type Logger interface {
	Debug(taskID int, category, msg string)
	Info(taskID int, category, msg string)
	Warn(taskID int, category, msg string)
	Error(taskID int, category, msg string)
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// SerialPort is the task-side view of the duplex channel.
type SerialPort interface {
	// Write queues b for transmission, blocking up to block ticks while the
	// transmit queue is full.
	Write(ctx context.Context, b byte, block Ticks) error

	// Read returns the next received byte, blocking up to block ticks.
	// It returns ErrNoData if nothing arrived in time.
	Read(ctx context.Context, block Ticks) (byte, error)
}

// ConfigManager manages configuration files.
type ConfigManager interface {
	// GlobalConfigInfo returns information about the global config file.
	GlobalConfigInfo() ConfigInfo

	// ConfigInfoAt returns information about the config file at path.
	ConfigInfoAt(path string) ConfigInfo

	// InitGlobalConfig writes the default template to the global config
	// file and returns its path.
	InitGlobalConfig() (string, error)

	// InitConfig writes the default template to path.
	InitConfig(path string) error

	// Render encodes cfg as TOML.
	Render(cfg *Config) (string, error)
}

// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/runoshun/rtcheck/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// Ensure mocks implement their interfaces.
var (
	_ domain.SerialHardware = (*MockSerialHardware)(nil)
	_ domain.LEDBank        = (*MockLEDBank)(nil)
	_ domain.HealthCheck    = (*MockHealthCheck)(nil)
	_ domain.Logger         = (*MockLogger)(nil)
	_ domain.ConfigLoader   = (*MockConfigLoader)(nil)
)

// MockSerialHardware is a test double for domain.SerialHardware. Nothing
// happens on its own: tests raise flags and fire the interrupt explicitly.
// Fields are ordered to minimize memory padding.
type MockSerialHardware struct {
	ConfigureErr error
	handler      func()
	Sent         []byte
	mu           sync.Mutex
	Closed       bool
	rx           byte
	ri           bool
	ti           bool
}

// Configure accepts any positive baud unless ConfigureErr is set.
func (m *MockSerialHardware) Configure(baud int) (domain.BaudSetting, error) {
	if m.ConfigureErr != nil {
		return domain.BaudSetting{}, m.ConfigureErr
	}
	return domain.BaudSetting{Requested: baud, Actual: float64(baud), Reload: 1}, nil
}

// Transmit records b.
func (m *MockSerialHardware) Transmit(b byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, b)
}

// Receive returns the receive register.
func (m *MockSerialHardware) Receive() byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rx
}

// Flags returns the pending bits.
func (m *MockSerialHardware) Flags() domain.InterruptFlags {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.InterruptFlags{RxReady: m.ri, TxReady: m.ti}
}

// ClearRx clears RI.
func (m *MockSerialHardware) ClearRx() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ri = false
}

// ClearTx clears TI.
func (m *MockSerialHardware) ClearTx() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ti = false
}

// EnableInterrupts stores the handler.
func (m *MockSerialHardware) EnableInterrupts(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

// Close marks the hardware closed.
func (m *MockSerialHardware) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// ReceiveByte loads b into the receive register, sets RI and runs the
// interrupt handler.
func (m *MockSerialHardware) ReceiveByte(b byte) {
	m.mu.Lock()
	m.rx = b
	m.ri = true
	m.mu.Unlock()
	m.Interrupt()
}

// CompleteTx sets TI and runs the interrupt handler.
func (m *MockSerialHardware) CompleteTx() {
	m.mu.Lock()
	m.ti = true
	m.mu.Unlock()
	m.Interrupt()
}

// Interrupt runs the handler if one is armed.
func (m *MockSerialHardware) Interrupt() {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		h()
	}
}

// Transmitted returns a copy of the bytes sent so far.
func (m *MockSerialHardware) Transmitted() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.Sent...)
}

// MockLEDBank is a test double for domain.LEDBank.
type MockLEDBank struct {
	on      map[int]bool
	toggles map[int]uint64
	mu      sync.Mutex
	N       int
}

// NewMockLEDBank creates a bank of n LEDs.
func NewMockLEDBank(n int) *MockLEDBank {
	return &MockLEDBank{on: make(map[int]bool), toggles: make(map[int]uint64), N: n}
}

func (m *MockLEDBank) check(n int) error {
	if n < 0 || n >= m.N {
		return fmt.Errorf("led %d: %w", n, domain.ErrInvalidLED)
	}
	return nil
}

// Toggle inverts LED n.
func (m *MockLEDBank) Toggle(n int) error {
	if err := m.check(n); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.on[n] = !m.on[n]
	m.toggles[n]++
	return nil
}

// Set switches LED n.
func (m *MockLEDBank) Set(n int, on bool) error {
	if err := m.check(n); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.on[n] != on {
		m.toggles[n]++
	}
	m.on[n] = on
	return nil
}

// State reports LED n.
func (m *MockLEDBank) State(n int) (bool, error) {
	if err := m.check(n); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.on[n], nil
}

// Toggles returns the toggle count of LED n.
func (m *MockLEDBank) Toggles(n int) (uint64, error) {
	if err := m.check(n); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.toggles[n], nil
}

// Count returns N.
func (m *MockLEDBank) Count() int {
	return m.N
}

// MockHealthCheck is a test double for domain.HealthCheck. It returns the
// next value of Results on each poll and Healthy once exhausted.
type MockHealthCheck struct {
	CheckName string
	Results   []bool
	mu        sync.Mutex
	Polls     int
}

// Name returns CheckName.
func (m *MockHealthCheck) Name() string {
	return m.CheckName
}

// Healthy returns the next scripted result.
func (m *MockHealthCheck) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.Polls
	m.Polls++
	if i < len(m.Results) {
		return m.Results[i]
	}
	return true
}

// PollCount returns how many times the check was polled.
func (m *MockHealthCheck) PollCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Polls
}

// LogEntry is one recorded log call.
type LogEntry struct {
	Level    string
	Category string
	Msg      string
	TaskID   int
}

// MockLogger is a test double for domain.Logger that records entries.
type MockLogger struct {
	Entries []LogEntry
	mu      sync.Mutex
}

func (m *MockLogger) add(level string, taskID int, category, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, LogEntry{Level: level, Category: category, Msg: msg, TaskID: taskID})
}

// Debug records a debug entry.
func (m *MockLogger) Debug(taskID int, category, msg string) { m.add("DEBUG", taskID, category, msg) }

// Info records an info entry.
func (m *MockLogger) Info(taskID int, category, msg string) { m.add("INFO", taskID, category, msg) }

// Warn records a warn entry.
func (m *MockLogger) Warn(taskID int, category, msg string) { m.add("WARN", taskID, category, msg) }

// Error records an error entry.
func (m *MockLogger) Error(taskID int, category, msg string) { m.add("ERROR", taskID, category, msg) }

// Count returns how many entries were recorded at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config  *domain.Config
	LoadErr error
}

// Load returns Config, or a default config when Config is nil.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.Config == nil {
		return domain.NewDefaultConfig(), nil
	}
	return m.Config, nil
}

// MockConfigManager is a test double for domain.ConfigManager.
// Fields are ordered to minimize memory padding.
type MockConfigManager struct {
	Files     map[string]domain.ConfigInfo
	InitErr   error
	RenderErr error
	Global    domain.ConfigInfo
	InitPaths []string // Paths passed to InitConfig or InitGlobalConfig
}

// Ensure MockConfigManager implements domain.ConfigManager.
var _ domain.ConfigManager = (*MockConfigManager)(nil)

// NewMockConfigManager creates a MockConfigManager whose global file lives
// at /home/test/.config/rtcheck/config.toml.
func NewMockConfigManager() *MockConfigManager {
	return &MockConfigManager{
		Files:  make(map[string]domain.ConfigInfo),
		Global: domain.ConfigInfo{Path: "/home/test/.config/rtcheck/config.toml"},
	}
}

// GlobalConfigInfo returns Global.
func (m *MockConfigManager) GlobalConfigInfo() domain.ConfigInfo {
	return m.Global
}

// ConfigInfoAt returns the entry in Files, or a missing file.
func (m *MockConfigManager) ConfigInfoAt(path string) domain.ConfigInfo {
	if info, ok := m.Files[path]; ok {
		return info
	}
	return domain.ConfigInfo{Path: path}
}

// InitGlobalConfig records the global path.
func (m *MockConfigManager) InitGlobalConfig() (string, error) {
	if err := m.InitConfig(m.Global.Path); err != nil {
		return "", err
	}
	return m.Global.Path, nil
}

// InitConfig records path.
func (m *MockConfigManager) InitConfig(path string) error {
	if m.InitErr != nil {
		return m.InitErr
	}
	m.InitPaths = append(m.InitPaths, path)
	return nil
}

// Render returns a short fake encoding of cfg.
func (m *MockConfigManager) Render(cfg *domain.Config) (string, error) {
	if m.RenderErr != nil {
		return "", m.RenderErr
	}
	return fmt.Sprintf("[kernel]\ntick = %q\n", cfg.Kernel.Tick), nil
}

// Package app provides the dependency injection container for the application.
package app

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/runoshun/rtcheck/internal/domain"
	"github.com/runoshun/rtcheck/internal/infra/config"
	"github.com/runoshun/rtcheck/internal/infra/indicator"
	"github.com/runoshun/rtcheck/internal/infra/kernel"
	"github.com/runoshun/rtcheck/internal/infra/logging"
	"github.com/runoshun/rtcheck/internal/infra/serial"
	"github.com/runoshun/rtcheck/internal/infra/uart"
	"github.com/runoshun/rtcheck/internal/usecase"
)

const ledCategory = "led"

// Config holds the application configuration paths.
type Config struct {
	ConfigPath    string // Explicit config file (--config); optional
	GlobalConfDir string // Path to global config directory (e.g., ~/.config/rtcheck)
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	ConfigLoader  domain.ConfigLoader
	ConfigManager domain.ConfigManager
	Clock         domain.Clock

	newLoader func(path string) domain.ConfigLoader

	// Configuration
	Config Config
}

// New creates a new Container using the default global config directory.
func New(configPath string) *Container {
	globalDir := config.DefaultGlobalConfigDir()
	return NewWithGlobalDir(configPath, globalDir)
}

// NewWithGlobalDir creates a new Container with a custom global config
// directory.
func NewWithGlobalDir(configPath, globalConfDir string) *Container {
	newLoader := func(path string) domain.ConfigLoader {
		return config.NewLoaderWithGlobalDir(path, globalConfDir)
	}
	return &Container{
		ConfigLoader:  newLoader(configPath),
		ConfigManager: config.NewManagerWithGlobalDir(globalConfDir),
		Clock:         domain.RealClock{},
		newLoader:     newLoader,
		Config: Config{
			ConfigPath:    configPath,
			GlobalConfDir: globalConfDir,
		},
	}
}

// NewWithDeps creates a new Container with custom dependencies for testing.
// The loader is kept when the config path changes.
func NewWithDeps(cfg Config, loader domain.ConfigLoader, manager domain.ConfigManager, clock domain.Clock) *Container {
	return &Container{
		ConfigLoader:  loader,
		ConfigManager: manager,
		Clock:         clock,
		newLoader:     func(string) domain.ConfigLoader { return loader },
		Config:        cfg,
	}
}

// SetConfigPath points the loader at an explicit config file.
func (c *Container) SetConfigPath(path string) {
	c.Config.ConfigPath = path
	c.ConfigLoader = c.newLoader(path)
}

// Harness is a wired self-test run together with the resources it owns.
type Harness struct {
	UseCase *usecase.RunSelfTest
	Logger  *logging.Logger
	Kernel  *kernel.Kernel
	PTYPath string // Terminal of the pty backend; empty for loopback
}

// Close releases the log file. The kernel and serial port are released by
// the run itself.
func (h *Harness) Close() error {
	return h.Logger.Close()
}

// RunSelfTestUseCase wires a kernel, the simulated UART selected by
// cfg.Serial.Backend, the duplex channel and both LED banks into a new
// RunSelfTest use case. Log entries go to logOut unless cfg.Log.Dir is set;
// a nil logOut keeps them in memory only.
func (c *Container) RunSelfTestUseCase(cfg *domain.Config, logOut io.Writer) (*Harness, error) {
	logger := logging.New(cfg.Log.Dir, logging.ParseLevel(cfg.Log.Level), logOut)

	opts, err := kernel.OptionsFromConfig(cfg.Kernel, logger)
	if err != nil {
		return nil, err
	}
	opts.Clock = c.Clock
	k := kernel.New(opts)

	hw, ptyPath, err := openHardware(cfg.Serial)
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(k, hw.SerialHardware, logger, cfg.Serial.Baud, cfg.Serial.Depth)
	if err != nil {
		return nil, errors.Join(err, hw.Close())
	}
	if ptyPath != "" {
		logger.Info(0, "serial", "pty backend on "+ptyPath)
	}

	leds := indicator.NewParallel()
	onBoard := indicator.NewOnBoard()
	for _, bank := range []*indicator.Bank{leds, onBoard} {
		name := bank.Name()
		bank.OnChange(func(n int, on bool) {
			logger.Debug(0, ledCategory, fmt.Sprintf("%s led %d on=%t", name, n, on))
		})
	}

	uc := usecase.NewRunSelfTest(usecase.SelfTestDeps{
		Sched:   k,
		Port:    port,
		UART:    hw.stats,
		LEDs:    leds,
		OnBoard: onBoard,
		Logger:  logger,
		Clock:   c.Clock,
		Config:  cfg,
		NewID:   uuid.NewString,
	})
	return &Harness{UseCase: uc, Logger: logger, Kernel: k, PTYPath: ptyPath}, nil
}

// hardware is a simulated UART and its counters.
type hardware struct {
	domain.SerialHardware
	stats usecase.UARTStatsSource
}

func openHardware(cfg domain.SerialConfig) (hardware, string, error) {
	switch cfg.Backend {
	case domain.BackendLoopback:
		lb := uart.NewLoopback(cfg.ClockHz)
		return hardware{SerialHardware: lb, stats: lb}, "", nil
	case domain.BackendPTY:
		p, err := uart.OpenPTY(cfg.ClockHz, true)
		if err != nil {
			return hardware{}, "", err
		}
		return hardware{SerialHardware: p, stats: p}, p.Path(), nil
	default:
		return hardware{}, "", fmt.Errorf("serial backend %q: %w", cfg.Backend, domain.ErrUnknownBackend)
	}
}

// UseCase factory methods

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigManager)
}

// ShowConfigTemplateUseCase returns a new ShowConfigTemplate use case.
func (c *Container) ShowConfigTemplateUseCase() *usecase.ShowConfigTemplate {
	return usecase.NewShowConfigTemplate(c.ConfigManager)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.ConfigManager)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/runoshun/rtcheck/internal/domain"
)

const templateHeader = `# rtcheck configuration
#
# Durations are in scheduler ticks unless noted otherwise.
# Values here override the built-in defaults; remove a key to fall back.

`

// Ensure Manager implements domain.ConfigManager.
var _ domain.ConfigManager = (*Manager)(nil)

// Manager manages configuration files.
type Manager struct {
	globalConfDir string // Path to global config directory (e.g., ~/.config/rtcheck)
}

// NewManager creates a new Manager for the default global directory.
func NewManager() *Manager {
	return &Manager{globalConfDir: DefaultGlobalConfigDir()}
}

// NewManagerWithGlobalDir creates a new Manager with a custom global config directory.
// This is useful for testing.
func NewManagerWithGlobalDir(globalConfDir string) *Manager {
	return &Manager{globalConfDir: globalConfDir}
}

// GlobalConfigInfo returns information about the global config file.
func (m *Manager) GlobalConfigInfo() domain.ConfigInfo {
	if m.globalConfDir == "" {
		return domain.ConfigInfo{}
	}
	return ConfigInfoAt(filepath.Join(m.globalConfDir, domain.ConfigFileName))
}

// ConfigInfoAt returns information about the config file at path.
func (m *Manager) ConfigInfoAt(path string) domain.ConfigInfo {
	return ConfigInfoAt(path)
}

// InitConfig writes the default template to path.
func (m *Manager) InitConfig(path string) error {
	return InitConfig(path)
}

// Render encodes cfg as TOML.
func (m *Manager) Render(cfg *domain.Config) (string, error) {
	return Render(cfg)
}

// ConfigInfoAt reads a config file and returns its info.
func ConfigInfoAt(path string) domain.ConfigInfo {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.ConfigInfo{Path: path}
	}
	return domain.ConfigInfo{
		Path:    path,
		Content: string(content),
		Exists:  true,
	}
}

// InitGlobalConfig writes the default template to the global config file.
func (m *Manager) InitGlobalConfig() (string, error) {
	if m.globalConfDir == "" {
		return "", errors.New("global config directory not available")
	}
	if err := os.MkdirAll(m.globalConfDir, 0o700); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	path := filepath.Join(m.globalConfDir, domain.ConfigFileName)
	return path, InitConfig(path)
}

// InitConfig writes the default template to path. It fails with
// domain.ErrConfigExists if the file is already there.
func InitConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return domain.ErrConfigExists
	}
	content, err := Render(domain.NewDefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(templateHeader+content), 0o600)
}

// Render encodes cfg as TOML.
func Render(cfg *domain.Config) (string, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/runoshun/rtcheck/internal/domain"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Loader loads configuration from TOML files.
type Loader struct {
	path          string // Explicit config file (--config); optional
	globalConfDir string // Path to global config directory (e.g., ~/.config/rtcheck)
}

// NewLoader creates a new Loader. path may be empty.
func NewLoader(path string) *Loader {
	return &Loader{
		path:          path,
		globalConfDir: DefaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config directory.
// This is useful for testing.
func NewLoaderWithGlobalDir(path, globalConfDir string) *Loader {
	return &Loader{
		path:          path,
		globalConfDir: globalConfDir,
	}
}

// DefaultGlobalConfigDir returns the default global config directory.
func DefaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalConfigDir(configHome)
}

// GlobalPath returns the global config file path, or "" if unknown.
func (l *Loader) GlobalPath() string {
	if l.globalConfDir == "" {
		return ""
	}
	return filepath.Join(l.globalConfDir, domain.ConfigFileName)
}

// Path returns the explicit config file path.
func (l *Loader) Path() string {
	return l.path
}

// Load returns the merged configuration: default <- global <- file.
// A missing global file is ignored; a missing explicit file is an error.
func (l *Loader) Load() (*domain.Config, error) {
	cfg := domain.NewDefaultConfig()

	if global := l.GlobalPath(); global != "" {
		if err := loadInto(cfg, global); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if l.path != "" {
		if err := loadInto(cfg, l.path); err != nil {
			return nil, err
		}
	}

	sort.Strings(cfg.Warnings)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadInto decodes the file at path over cfg. Keys absent from the file keep
// their current values, so successive calls layer files on top of each
// other. Unknown sections and keys are recorded as warnings.
func loadInto(cfg *domain.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Warnings = append(cfg.Warnings, unknownKeys(raw)...)

	warnings := cfg.Warnings
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.Warnings = warnings
	return nil
}

// unknownKeys lists sections and keys that domain.Config does not define.
func unknownKeys(raw map[string]any) []string {
	known := knownKeys()
	var warnings []string

	for section, value := range raw {
		keys, ok := known[section]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown section: %s", section))
			continue
		}
		m, ok := value.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("[%s] must be a table", section))
			continue
		}
		for k := range m {
			if !keys[k] {
				warnings = append(warnings, fmt.Sprintf("unknown key in [%s]: %s", section, k))
			}
		}
	}
	return warnings
}

// knownKeys derives section -> key set from the toml tags of domain.Config.
func knownKeys() map[string]map[string]bool {
	known := make(map[string]map[string]bool)
	ct := reflect.TypeOf(domain.Config{})
	for i := 0; i < ct.NumField(); i++ {
		f := ct.Field(i)
		section := tagName(f)
		if section == "" || f.Type.Kind() != reflect.Struct {
			continue
		}
		keys := make(map[string]bool)
		for j := 0; j < f.Type.NumField(); j++ {
			if k := tagName(f.Type.Field(j)); k != "" {
				keys[k] = true
			}
		}
		known[section] = keys
	}
	return known
}

func tagName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	if name == "-" {
		return ""
	}
	return name
}

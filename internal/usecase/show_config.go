// Package usecase contains the application use cases.
package usecase

import (
	"context"

	"github.com/runoshun/rtcheck/internal/domain"
)

// ShowConfigInput contains the input for the ShowConfig use case.
type ShowConfigInput struct {
	Config *domain.Config // Effective config to render
	Path   string         // Explicit config file (--config); optional
}

// ShowConfigOutput contains the output of the ShowConfig use case.
type ShowConfigOutput struct {
	Effective    string            // Effective config encoded as TOML
	GlobalConfig domain.ConfigInfo // Global config file info
	FileConfig   domain.ConfigInfo // Explicit config file info (zero if no path)
}

// ShowConfig displays configuration file information.
type ShowConfig struct {
	configManager domain.ConfigManager
}

// NewShowConfig creates a new ShowConfig use case.
func NewShowConfig(configManager domain.ConfigManager) *ShowConfig {
	return &ShowConfig{
		configManager: configManager,
	}
}

// Execute retrieves configuration file information and renders the
// effective configuration.
func (uc *ShowConfig) Execute(_ context.Context, in ShowConfigInput) (*ShowConfigOutput, error) {
	cfg := in.Config
	if cfg == nil {
		cfg = domain.NewDefaultConfig()
	}
	effective, err := uc.configManager.Render(cfg)
	if err != nil {
		return nil, err
	}

	out := &ShowConfigOutput{
		Effective:    effective,
		GlobalConfig: uc.configManager.GlobalConfigInfo(),
	}
	if in.Path != "" {
		out.FileConfig = uc.configManager.ConfigInfoAt(in.Path)
	}
	return out, nil
}

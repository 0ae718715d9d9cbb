package usecase

import (
	"context"

	"github.com/runoshun/rtcheck/internal/domain"
)

// InitConfigInput contains the input for the InitConfig use case.
type InitConfigInput struct {
	Path string // Target file; empty means the global config file
}

// InitConfigOutput contains the output of the InitConfig use case.
type InitConfigOutput struct {
	Path string // Path to the created config file
}

// InitConfig generates a configuration file template.
type InitConfig struct {
	configManager domain.ConfigManager
}

// NewInitConfig creates a new InitConfig use case.
func NewInitConfig(configManager domain.ConfigManager) *InitConfig {
	return &InitConfig{
		configManager: configManager,
	}
}

// Execute creates a configuration file with the default template.
func (uc *InitConfig) Execute(_ context.Context, in InitConfigInput) (*InitConfigOutput, error) {
	if in.Path == "" {
		path, err := uc.configManager.InitGlobalConfig()
		if err != nil {
			return nil, err
		}
		return &InitConfigOutput{Path: path}, nil
	}

	if err := uc.configManager.InitConfig(in.Path); err != nil {
		return nil, err
	}
	return &InitConfigOutput{Path: in.Path}, nil
}

package usecase

import (
	"context"

	"github.com/runoshun/rtcheck/internal/domain"
)

// ShowConfigTemplateInput contains the input for the ShowConfigTemplate use case.
type ShowConfigTemplateInput struct{}

// ShowConfigTemplateOutput contains the output of the ShowConfigTemplate use case.
type ShowConfigTemplateOutput struct {
	Template string // Configuration template content
}

// ShowConfigTemplate renders the built-in defaults as a config file.
type ShowConfigTemplate struct {
	configManager domain.ConfigManager
}

// NewShowConfigTemplate creates a new ShowConfigTemplate use case.
func NewShowConfigTemplate(configManager domain.ConfigManager) *ShowConfigTemplate {
	return &ShowConfigTemplate{configManager: configManager}
}

// Execute generates and returns a configuration template.
func (uc *ShowConfigTemplate) Execute(_ context.Context, _ ShowConfigTemplateInput) (*ShowConfigTemplateOutput, error) {
	tmpl, err := uc.configManager.Render(domain.NewDefaultConfig())
	if err != nil {
		return nil, err
	}
	return &ShowConfigTemplateOutput{Template: tmpl}, nil
}

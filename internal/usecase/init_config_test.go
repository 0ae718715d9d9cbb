package usecase_test

import (
	"context"
	"testing"

	"github.com/runoshun/rtcheck/internal/domain"
	"github.com/runoshun/rtcheck/internal/testutil"
	"github.com/runoshun/rtcheck/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfig_Execute(t *testing.T) {
	tests := []struct {
		initErr  error
		name     string
		path     string
		wantPath string
		wantErr  bool
	}{
		{name: "global config", wantPath: "/home/test/.config/rtcheck/config.toml"},
		{name: "explicit path", path: "/tmp/run.toml", wantPath: "/tmp/run.toml"},
		{name: "already exists", path: "/tmp/run.toml", initErr: domain.ErrConfigExists, wantErr: true},
		{name: "global already exists", initErr: domain.ErrConfigExists, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			manager := testutil.NewMockConfigManager()
			manager.InitErr = tt.initErr
			uc := usecase.NewInitConfig(manager)

			// Execute
			out, err := uc.Execute(context.Background(), usecase.InitConfigInput{Path: tt.path})

			// Assert
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrConfigExists)
				assert.Empty(t, manager.InitPaths)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, out.Path)
			assert.Equal(t, []string{tt.wantPath}, manager.InitPaths)
		})
	}
}

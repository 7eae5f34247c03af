package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diningguide/internal/context"
	"diningguide/internal/testutils"
	"diningguide/pkg/diningtypes"
)

// setupConfigurationTest installs a fresh test context with isolated config directories.
func setupConfigurationTest(t *testing.T) (*context.DiningContext, string, string) {
	t.Helper()
	ctx := context.NewTestContext()
	t.Cleanup(context.ResetGlobalContext)

	configDir := t.TempDir()
	workDir := t.TempDir()
	ctx.Configuration().SetTestConfigDir(configDir)
	ctx.Configuration().SetTestWorkingDir(workDir)
	return ctx, configDir, workDir
}

func TestConfigurationService_Name(t *testing.T) {
	service := NewConfigurationService()
	assert.Equal(t, "configuration", service.Name())
}

func TestConfigurationService_Defaults(t *testing.T) {
	setupConfigurationTest(t)

	service := NewConfigurationService()
	require.NoError(t, service.Initialize())

	assert.Equal(t, "anthropic", service.GetString("DINING_PROVIDER", ""))
	assert.Equal(t, 1024, service.GetInt("DINING_MAX_TOKENS", 0))
	assert.Equal(t, "dataset/nov19.csv", service.GetString("DINING_CATALOG", ""))
	assert.Equal(t, time.Duration(0), service.GetDuration("DINING_COMPLETION_TIMEOUT", time.Minute))
}

func TestConfigurationService_ConfigurationPriority(t *testing.T) {
	ctx, configDir, workDir := setupConfigurationTest(t)

	testutils.WriteFile(t, configDir, ".env", "DINING_MODEL=config-model\nANTHROPIC_API_KEY=config-key\nDINING_MAX_TOKENS=512\n")
	testutils.WriteFile(t, workDir, ".env", "ANTHROPIC_API_KEY=local-key\nDINING_MAX_TOKENS=768\n")
	ctx.Configuration().SetTestEnvOverride("DINING_MAX_TOKENS", "2048")

	service := NewConfigurationService()
	service.SetOverrides(map[string]string{"DINING_PROVIDER": "openai", "DINING_MODEL": ""})
	require.NoError(t, service.Initialize())

	assert.Equal(t, "config-model", service.GetString("DINING_MODEL", ""))
	assert.Equal(t, 2048, service.GetInt("DINING_MAX_TOKENS", 0))
	assert.Equal(t, "openai", service.GetString("DINING_PROVIDER", ""))

	key, err := service.GetAPIKey("anthropic")
	require.NoError(t, err)
	assert.Equal(t, "local-key", key)

	paths, err := service.GetConfigurationPaths()
	require.NoError(t, err)
	assert.True(t, paths.ConfigEnvFound)
	assert.True(t, paths.LocalEnvFound)
	assert.Equal(t, filepath.Join(configDir, ".env"), paths.ConfigEnvPath)
}

func TestConfigurationService_GetAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		provider string
		want     string
		wantErr  bool
	}{
		{
			name:     "prefixed key wins",
			env:      map[string]string{"DINING_ANTHROPIC_API_KEY": "prefixed", "ANTHROPIC_API_KEY": "plain"},
			provider: "anthropic",
			want:     "prefixed",
		},
		{
			name:     "plain key",
			env:      map[string]string{"OPENAI_API_KEY": "plain"},
			provider: "openai",
			want:     "plain",
		},
		{
			name:     "generic key fallback",
			env:      map[string]string{"DINING_API_KEY": "generic"},
			provider: "gemini",
			want:     "generic",
		},
		{
			name:     "missing key",
			env:      map[string]string{},
			provider: "anthropic",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _, _ := setupConfigurationTest(t)
			for key, value := range tt.env {
				ctx.Configuration().SetTestEnvOverride(key, value)
			}

			service := NewConfigurationService()
			require.NoError(t, service.Initialize())

			key, err := service.GetAPIKey(tt.provider)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "API key not configured")
				assert.ErrorIs(t, err, diningtypes.ErrMissingAPIKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
		})
	}
}

func TestConfigurationService_NotInitialized(t *testing.T) {
	service := NewConfigurationService()

	_, err := service.GetAPIKey("anthropic")
	assert.Error(t, err)
	_, err = service.GetConfigValue("DINING_MODEL")
	assert.Error(t, err)
	assert.Error(t, service.SetConfigValue("DINING_MODEL", "x"))
	assert.Error(t, service.LoadConfiguration())
	assert.Equal(t, "fallback", service.GetString("DINING_MODEL", "fallback"))
}

func TestConfigurationService_GetDuration(t *testing.T) {
	ctx, _, _ := setupConfigurationTest(t)
	ctx.Configuration().SetTestEnvOverride("DINING_COMPLETION_TIMEOUT", "30")
	ctx.Configuration().SetTestEnvOverride("DINING_A", "1m30s")
	ctx.Configuration().SetTestEnvOverride("DINING_B", "soon")

	service := NewConfigurationService()
	require.NoError(t, service.Initialize())

	assert.Equal(t, 30*time.Second, service.GetDuration("DINING_COMPLETION_TIMEOUT", 0))
	assert.Equal(t, 90*time.Second, service.GetDuration("DINING_A", 0))
	assert.Equal(t, time.Second, service.GetDuration("DINING_B", time.Second))
}

func TestConfigurationService_LoadConfiguration(t *testing.T) {
	ctx, _, _ := setupConfigurationTest(t)

	service := NewConfigurationService()
	require.NoError(t, service.Initialize())
	require.NoError(t, service.SetConfigValue("DINING_MODEL", "temporary"))

	ctx.SetCompletionClient("mock:1", testutils.NewMockProvider())
	require.NoError(t, service.LoadConfiguration())

	assert.Equal(t, "", service.GetString("DINING_MODEL", ""))
	_, cached := ctx.GetCompletionClient("mock:1")
	assert.False(t, cached)
}

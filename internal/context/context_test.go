package context

import (
	gocontext "context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diningguide/pkg/diningtypes"
)

type stubProvider struct{ name string }

func (s *stubProvider) Complete(_ gocontext.Context, _ string, _ []diningtypes.CompletionMessage) (string, error) {
	return "ok", nil
}
func (s *stubProvider) GetProviderName() string { return s.name }
func (s *stubProvider) IsConfigured() bool      { return true }

func TestNew(t *testing.T) {
	ctx := New()

	assert.NotNil(t, ctx)
	assert.False(t, ctx.IsTestMode())
	assert.NotNil(t, ctx.Configuration())
	assert.Empty(t, ctx.Configuration().GetConfigMap())
}

func TestTestMode(t *testing.T) {
	ctx := New()
	ctx.SetTestMode(true)
	assert.True(t, ctx.IsTestMode())
	ctx.SetTestMode(false)
	assert.False(t, ctx.IsTestMode())
}

func TestCompletionClientCache(t *testing.T) {
	ctx := New()

	_, ok := ctx.GetCompletionClient("anthropic:abcd1234")
	assert.False(t, ok)

	client := &stubProvider{name: "anthropic"}
	ctx.SetCompletionClient("anthropic:abcd1234", client)

	got, ok := ctx.GetCompletionClient("anthropic:abcd1234")
	require.True(t, ok)
	assert.Same(t, client, got)

	ctx.ClearCompletionClients()
	_, ok = ctx.GetCompletionClient("anthropic:abcd1234")
	assert.False(t, ok)
}

func TestConfiguration_LayeredLoading(t *testing.T) {
	configDir := t.TempDir()
	workDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(configDir, ".env"),
		[]byte("DINING_MODEL=config-model\nANTHROPIC_API_KEY=config-key\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ".env"),
		[]byte("ANTHROPIC_API_KEY=local-key\n"), 0600))

	ctx := New()
	ctx.SetTestMode(true)
	cfg := ctx.Configuration()
	cfg.SetTestConfigDir(configDir)
	cfg.SetTestWorkingDir(workDir)
	cfg.SetTestEnvOverride("DINING_MAX_TOKENS", "2048")
	cfg.SetTestEnvOverride("UNRELATED_VAR", "ignored")

	require.NoError(t, cfg.LoadDefaults())
	require.NoError(t, cfg.LoadConfigDotEnv())
	require.NoError(t, cfg.LoadLocalDotEnv())
	require.NoError(t, cfg.LoadEnvironmentVariables(ProviderEnvPrefixes))

	values := cfg.GetConfigMap()
	assert.Equal(t, "anthropic", values["DINING_PROVIDER"])
	assert.Equal(t, "config-model", values["DINING_MODEL"])
	assert.Equal(t, "local-key", values["ANTHROPIC_API_KEY"])
	assert.Equal(t, "2048", values["DINING_MAX_TOKENS"])
	_, present := values["UNRELATED_VAR"]
	assert.False(t, present)
}

func TestConfiguration_MissingDotEnvIsNotAnError(t *testing.T) {
	ctx := New()
	ctx.SetTestMode(true)
	cfg := ctx.Configuration()
	cfg.SetTestConfigDir(t.TempDir())
	cfg.SetTestWorkingDir(t.TempDir())

	assert.NoError(t, cfg.LoadConfigDotEnv())
	assert.NoError(t, cfg.LoadLocalDotEnv())
	assert.Empty(t, cfg.GetConfigMap())
}

func TestConfiguration_GetEnvInTestMode(t *testing.T) {
	ctx := New()
	ctx.SetTestMode(true)
	cfg := ctx.Configuration()

	assert.Equal(t, "", cfg.GetEnv("HOME"))
	cfg.SetTestEnvOverride("HOME", "/test/home")
	assert.Equal(t, "/test/home", cfg.GetEnv("HOME"))
	cfg.ClearAllTestEnvOverrides()
	assert.Equal(t, "", cfg.GetEnv("HOME"))
}

func TestConfiguration_UserConfigDir(t *testing.T) {
	ctx := New()
	ctx.SetTestMode(true)

	dir, err := ctx.Configuration().GetUserConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/dininghall-test-config", dir)

	ctx.SetTestMode(false)
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	dir, err = ctx.Configuration().GetUserConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/xdg/dininghall", dir)
}

func TestConfiguration_ConcurrentAccess(t *testing.T) {
	cfg := New().Configuration()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cfg.SetConfigValue("DINING_MODEL", "m")
			_, _ = cfg.GetConfigValue("DINING_MODEL")
			_ = cfg.GetConfigMap()
		}(i)
	}
	wg.Wait()

	value, ok := cfg.GetConfigValue("DINING_MODEL")
	assert.True(t, ok)
	assert.Equal(t, "m", value)
}

func TestGlobalContext(t *testing.T) {
	ResetGlobalContext()
	defer ResetGlobalContext()

	first := GetGlobalContext()
	assert.Same(t, first, GetGlobalContext())

	replacement := New()
	SetGlobalContext(replacement)
	assert.Same(t, replacement, GetGlobalContext())

	ResetGlobalContext()
	assert.NotSame(t, replacement, GetGlobalContext())
}

func TestNewTestContext(t *testing.T) {
	defer ResetGlobalContext()

	ctx := NewTestContext()
	assert.True(t, ctx.IsTestMode())
	assert.Same(t, ctx, GetGlobalContext())
}

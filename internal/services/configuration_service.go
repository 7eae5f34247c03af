package services

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	diningcontext "diningguide/internal/context"
	"diningguide/pkg/diningtypes"
)

// ConfigPaths represents configuration file paths and their loading status
type ConfigPaths struct {
	ConfigDir      string
	ConfigEnvPath  string
	ConfigEnvFound bool
	LocalEnvPath   string
	LocalEnvFound  bool
}

// ConfigurationService provides configuration management for the dining hall guide.
// It is stateless apart from its initialized flag; all values live in the context's configuration map.
type ConfigurationService struct {
	initialized bool
	overrides   map[string]string
}

// NewConfigurationService creates a new ConfigurationService instance.
func NewConfigurationService() *ConfigurationService {
	return &ConfigurationService{
		initialized: false,
		overrides:   make(map[string]string),
	}
}

// Name returns the service name "configuration" for registration.
func (c *ConfigurationService) Name() string {
	return "configuration"
}

// SetOverrides records values that win over every other source, such as CLI flags.
// They are applied during Initialize and on every reload.
func (c *ConfigurationService) SetOverrides(overrides map[string]string) {
	for key, value := range overrides {
		if value == "" {
			continue
		}
		c.overrides[key] = value
	}
	if c.initialized {
		ctx := diningcontext.GetGlobalContext()
		for key, value := range c.overrides {
			ctx.SetConfigValue(key, value)
		}
	}
}

// Initialize orchestrates configuration loading from multiple sources with proper priority.
// Priority (highest to lowest): overrides > environment variables > local .env > config .env > defaults
func (c *ConfigurationService) Initialize() error {
	if c.initialized {
		return nil
	}

	ctx := diningcontext.GetGlobalContext()
	cfg := ctx.Configuration()

	cfg.SetConfigMap(make(map[string]string))

	if err := cfg.LoadDefaults(); err != nil {
		return fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := cfg.LoadConfigDotEnv(); err != nil {
		return fmt.Errorf("failed to load config .env: %w", err)
	}

	if err := cfg.LoadLocalDotEnv(); err != nil {
		return fmt.Errorf("failed to load local .env: %w", err)
	}

	if err := cfg.LoadEnvironmentVariables(diningcontext.ProviderEnvPrefixes); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}

	for key, value := range c.overrides {
		cfg.SetConfigValue(key, value)
	}

	c.initialized = true
	return nil
}

// GetAPIKey retrieves an API key for a specific provider from the configuration map.
// Lookup order: DINING_<P>_API_KEY, <P>_API_KEY, DINING_API_KEY.
func (c *ConfigurationService) GetAPIKey(provider string) (string, error) {
	if !c.initialized {
		return "", fmt.Errorf("configuration service not initialized")
	}

	ctx := diningcontext.GetGlobalContext()

	providerKey := fmt.Sprintf("DINING_%s_API_KEY", strings.ToUpper(provider))
	if apiKey, exists := ctx.GetConfigValue(providerKey); exists && apiKey != "" {
		return apiKey, nil
	}

	plainKey := fmt.Sprintf("%s_API_KEY", strings.ToUpper(provider))
	if apiKey, exists := ctx.GetConfigValue(plainKey); exists && apiKey != "" {
		return apiKey, nil
	}

	if apiKey, exists := ctx.GetConfigValue("DINING_API_KEY"); exists && apiKey != "" {
		return apiKey, nil
	}

	return "", fmt.Errorf("%s %w (set %s or %s)", provider, diningtypes.ErrMissingAPIKey, plainKey, providerKey)
}

// GetConfigValue retrieves a configuration value by key from the configuration map.
// Returns empty string if the configuration value doesn't exist (no error).
func (c *ConfigurationService) GetConfigValue(key string) (string, error) {
	if !c.initialized {
		return "", fmt.Errorf("configuration service not initialized")
	}

	value, _ := diningcontext.GetGlobalContext().GetConfigValue(key)
	return value, nil
}

// GetString returns a configuration value or fallback when unset.
func (c *ConfigurationService) GetString(key, fallback string) string {
	value, err := c.GetConfigValue(key)
	if err != nil || strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

// GetInt parses an integer configuration value, returning fallback when unset or invalid.
func (c *ConfigurationService) GetInt(key string, fallback int) int {
	value := c.GetString(key, "")
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

// GetDuration parses a duration value. Bare integers are read as seconds.
func (c *ConfigurationService) GetDuration(key string, fallback time.Duration) time.Duration {
	value := c.GetString(key, "")
	if value == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// SetConfigValue sets a configuration value in the configuration map.
func (c *ConfigurationService) SetConfigValue(key, value string) error {
	if !c.initialized {
		return fmt.Errorf("configuration service not initialized")
	}

	diningcontext.GetGlobalContext().SetConfigValue(key, value)
	return nil
}

// LoadConfiguration reloads all configuration sources and drops cached clients.
func (c *ConfigurationService) LoadConfiguration() error {
	if !c.initialized {
		return fmt.Errorf("configuration service not initialized")
	}

	c.initialized = false
	diningcontext.GetGlobalContext().ClearCompletionClients()
	return c.Initialize()
}

// GetAllConfigValues returns all configuration values from the configuration map.
func (c *ConfigurationService) GetAllConfigValues() (map[string]string, error) {
	if !c.initialized {
		return nil, fmt.Errorf("configuration service not initialized")
	}

	return diningcontext.GetGlobalContext().Configuration().GetConfigMap(), nil
}

// GetConfigurationPaths returns configuration file paths and whether they exist.
func (c *ConfigurationService) GetConfigurationPaths() (*ConfigPaths, error) {
	if !c.initialized {
		return nil, fmt.Errorf("configuration service not initialized")
	}

	cfg := diningcontext.GetGlobalContext().Configuration()
	paths := &ConfigPaths{}

	if configDir, err := cfg.GetUserConfigDir(); err == nil {
		paths.ConfigDir = configDir
		paths.ConfigEnvPath = filepath.Join(configDir, ".env")
		paths.ConfigEnvFound = cfg.FileExists(paths.ConfigEnvPath)
	}

	if workDir, err := cfg.GetWorkingDir(); err == nil {
		paths.LocalEnvPath = filepath.Join(workDir, ".env")
		paths.LocalEnvFound = cfg.FileExists(paths.LocalEnvPath)
	}

	return paths, nil
}

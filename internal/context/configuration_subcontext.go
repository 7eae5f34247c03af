package context

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// ConfigurationSubcontext defines the interface for configuration management functionality.
// This manages the configuration map, environment variables, and .env file loading.
type ConfigurationSubcontext interface {
	// Configuration map operations
	GetConfigMap() map[string]string
	SetConfigMap(configMap map[string]string)
	GetConfigValue(key string) (string, bool)
	SetConfigValue(key, value string)

	// Configuration loading operations
	LoadDefaults() error
	LoadConfigDotEnv() error
	LoadLocalDotEnv() error
	LoadEnvironmentVariables(prefixes []string) error

	// Environment variable operations
	GetEnv(key string) string
	SetTestEnvOverride(key, value string)
	ClearAllTestEnvOverrides()

	// File system operations
	SetTestWorkingDir(path string)
	SetTestConfigDir(path string)
	GetUserConfigDir() (string, error)
	GetWorkingDir() (string, error)
	FileExists(path string) bool

	SetParentContext(parent TestModeProvider)
}

// TestModeProvider interface allows subcontexts to check test mode from parent context
type TestModeProvider interface {
	IsTestMode() bool
}

// DefaultConfig holds the built-in configuration values, lowest priority.
var DefaultConfig = map[string]string{
	"DINING_PROVIDER":           "anthropic",
	"DINING_MODEL":              "",
	"DINING_MAX_TOKENS":         "1024",
	"DINING_CATALOG":            "dataset/nov19.csv",
	"DINING_IMAGES_DIR":         "images",
	"DINING_REMOTE_URL":         "http://localhost:8000",
	"DINING_COMPLETION_TIMEOUT": "0",
	"DINING_HOST":               "0.0.0.0",
	"DINING_PORT":               "8000",
}

// ProviderEnvPrefixes lists the environment variable prefixes copied into the configuration map.
var ProviderEnvPrefixes = []string{"DINING_", "ANTHROPIC_", "OPENAI_", "GEMINI_", "GOOGLE_"}

type configurationSubcontext struct {
	configMap   map[string]string
	configMutex sync.RWMutex

	parentContext    TestModeProvider
	testEnvOverrides map[string]string
	testWorkingDir   string
	testConfigDir    string
	testMutex        sync.RWMutex
}

// NewConfigurationSubcontext creates a new ConfigurationSubcontext instance.
func NewConfigurationSubcontext() ConfigurationSubcontext {
	return &configurationSubcontext{
		configMap:        make(map[string]string),
		testEnvOverrides: make(map[string]string),
	}
}

func (c *configurationSubcontext) isTestMode() bool {
	c.testMutex.RLock()
	parent := c.parentContext
	c.testMutex.RUnlock()
	return parent != nil && parent.IsTestMode()
}

// GetConfigMap returns a copy of the configuration map.
func (c *configurationSubcontext) GetConfigMap() map[string]string {
	c.configMutex.RLock()
	defer c.configMutex.RUnlock()

	result := make(map[string]string, len(c.configMap))
	for key, value := range c.configMap {
		result[key] = value
	}
	return result
}

// SetConfigMap replaces the entire configuration map.
func (c *configurationSubcontext) SetConfigMap(configMap map[string]string) {
	c.configMutex.Lock()
	defer c.configMutex.Unlock()

	c.configMap = make(map[string]string, len(configMap))
	for key, value := range configMap {
		c.configMap[key] = value
	}
}

// GetConfigValue retrieves a configuration value by key.
func (c *configurationSubcontext) GetConfigValue(key string) (string, bool) {
	c.configMutex.RLock()
	defer c.configMutex.RUnlock()

	value, exists := c.configMap[key]
	return value, exists
}

// SetConfigValue sets a configuration value.
func (c *configurationSubcontext) SetConfigValue(key, value string) {
	c.configMutex.Lock()
	defer c.configMutex.Unlock()

	c.configMap[key] = value
}

// LoadDefaults sets up default configuration values.
func (c *configurationSubcontext) LoadDefaults() error {
	for key, value := range DefaultConfig {
		c.SetConfigValue(key, value)
	}
	return nil
}

// LoadConfigDotEnv loads the .env file from the user's config directory (~/.config/dininghall/.env).
func (c *configurationSubcontext) LoadConfigDotEnv() error {
	configDir, err := c.GetUserConfigDir()
	if err != nil {
		// Config directory access failure is not fatal
		return nil
	}

	envPath := filepath.Join(configDir, ".env")
	if !c.FileExists(envPath) {
		return nil
	}

	return c.loadDotEnvFile(envPath)
}

// LoadLocalDotEnv loads the .env file from the current working directory.
func (c *configurationSubcontext) LoadLocalDotEnv() error {
	workDir, err := c.GetWorkingDir()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	envPath := filepath.Join(workDir, ".env")
	if !c.FileExists(envPath) {
		return nil
	}

	return c.loadDotEnvFile(envPath)
}

// LoadEnvironmentVariables copies prefixed environment variables into the configuration map.
// This has the highest priority and overrides all file-based configuration.
// In test mode only the test overrides are consulted.
func (c *configurationSubcontext) LoadEnvironmentVariables(prefixes []string) error {
	if c.isTestMode() {
		c.testMutex.RLock()
		defer c.testMutex.RUnlock()
		for key, value := range c.testEnvOverrides {
			if hasAnyPrefix(key, prefixes) {
				c.SetConfigValue(key, value)
			}
		}
		return nil
	}

	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if hasAnyPrefix(key, prefixes) {
			c.SetConfigValue(key, value)
		}
	}

	return nil
}

func hasAnyPrefix(key string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func (c *configurationSubcontext) loadDotEnvFile(envPath string) error {
	data, err := os.ReadFile(envPath)
	if err != nil {
		return fmt.Errorf("failed to read .env file %s: %w", envPath, err)
	}

	envMap, err := godotenv.Unmarshal(string(data))
	if err != nil {
		return fmt.Errorf("failed to parse .env file %s: %w", envPath, err)
	}

	for key, value := range envMap {
		c.SetConfigValue(key, value)
	}

	return nil
}

// GetEnv retrieves an environment variable, using only test overrides in test mode.
func (c *configurationSubcontext) GetEnv(key string) string {
	if c.isTestMode() {
		c.testMutex.RLock()
		defer c.testMutex.RUnlock()
		return c.testEnvOverrides[key]
	}
	return os.Getenv(key)
}

// SetTestEnvOverride sets a test-specific environment variable override.
func (c *configurationSubcontext) SetTestEnvOverride(key, value string) {
	c.testMutex.Lock()
	defer c.testMutex.Unlock()
	c.testEnvOverrides[key] = value
}

// ClearAllTestEnvOverrides removes all test-specific environment variable overrides.
func (c *configurationSubcontext) ClearAllTestEnvOverrides() {
	c.testMutex.Lock()
	defer c.testMutex.Unlock()
	c.testEnvOverrides = make(map[string]string)
}

// SetTestWorkingDir sets the working directory used in test mode.
func (c *configurationSubcontext) SetTestWorkingDir(path string) {
	c.testMutex.Lock()
	defer c.testMutex.Unlock()
	c.testWorkingDir = path
}

// SetTestConfigDir sets the user config directory used in test mode.
func (c *configurationSubcontext) SetTestConfigDir(path string) {
	c.testMutex.Lock()
	defer c.testMutex.Unlock()
	c.testConfigDir = path
}

// SetParentContext sets the parent context reference for accessing test mode.
func (c *configurationSubcontext) SetParentContext(parent TestModeProvider) {
	c.testMutex.Lock()
	defer c.testMutex.Unlock()
	c.parentContext = parent
}

// GetUserConfigDir returns the user's configuration directory.
// In test mode, returns a predictable path to avoid polluting the user's system.
func (c *configurationSubcontext) GetUserConfigDir() (string, error) {
	if c.isTestMode() {
		c.testMutex.RLock()
		defer c.testMutex.RUnlock()
		if c.testConfigDir != "" {
			return c.testConfigDir, nil
		}
		return "/tmp/dininghall-test-config", nil
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configHome = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configHome, "dininghall"), nil
}

// GetWorkingDir returns the current working directory, or the test override in test mode.
func (c *configurationSubcontext) GetWorkingDir() (string, error) {
	if c.isTestMode() {
		c.testMutex.RLock()
		defer c.testMutex.RUnlock()
		if c.testWorkingDir != "" {
			return c.testWorkingDir, nil
		}
		return "/tmp/dininghall-test-workdir", nil
	}
	return os.Getwd()
}

// FileExists reports whether a regular file or directory exists at path.
func (c *configurationSubcontext) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

package main

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, name := range []string{"shell", "serve", "foods", "images", "version"} {
		assert.True(t, names[name], name)
	}

	generate, _, err := rootCmd.Find([]string{"images", "generate"})
	assert.NoError(t, err)
	assert.Equal(t, "generate", generate.Name())
}

func TestConfigOverrides(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("provider", "openai")
	viper.Set("catalog", "http://localhost:8000")
	viper.Set("port", 9090)

	overrides := configOverrides()
	assert.Equal(t, "openai", overrides["DINING_PROVIDER"])
	assert.Equal(t, "http://localhost:8000", overrides["DINING_CATALOG"])
	assert.Equal(t, "9090", overrides["DINING_PORT"])
	assert.Empty(t, overrides["DINING_MODEL"])
}

func TestConfigOverrides_NoPort(t *testing.T) {
	t.Cleanup(viper.Reset)

	_, ok := configOverrides()["DINING_PORT"]
	assert.False(t, ok)
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThemeService_LoadsEmbeddedThemes(t *testing.T) {
	service := NewThemeService()
	assert.Equal(t, "theme", service.Name())
	assert.Equal(t, []string{"default", "plain"}, service.GetAvailableThemes())
}

func TestThemeService_TestModeUsesPlainTheme(t *testing.T) {
	setupConfigurationTest(t)

	service := NewThemeService()
	require.NoError(t, service.Initialize())
	assert.Equal(t, "plain", service.Current().Name)
	assert.Equal(t, "North", service.Current().Hall.Render("North"))
}

func TestThemeService_SetTheme(t *testing.T) {
	service := NewThemeService()

	require.NoError(t, service.SetTheme("default"))
	assert.Equal(t, "default", service.Current().Name)

	assert.Error(t, service.SetTheme("neon"))
	assert.Equal(t, "default", service.Current().Name)
}

func TestThemeService_ParseColor(t *testing.T) {
	service := NewThemeService()

	assert.Nil(t, service.parseColor(nil))
	assert.NotNil(t, service.parseColor("#FF0000"))
	assert.NotNil(t, service.parseColor(map[string]interface{}{"light": "#000000", "dark": "#FFFFFF"}))
}

func TestTheme_CreateList(t *testing.T) {
	setupConfigurationTest(t)
	service := NewThemeService()
	require.NoError(t, service.Initialize())

	out := service.Current().CreateList("Pizza", "Salad").String()
	assert.Contains(t, out, "1. Pizza")
	assert.Contains(t, out, "2. Salad")
}

package services

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/list"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"

	diningcontext "diningguide/internal/context"
	"diningguide/internal/data/embedded"
	"diningguide/internal/logger"
)

// ThemeService provides the terminal styles used by the shell.
type ThemeService struct {
	initialized bool
	themes      map[string]*Theme
	active      string
}

// Theme defines the styles for cards, the sidebar and chat messages.
type Theme struct {
	Name      string
	Title     lipgloss.Style
	Hall      lipgloss.Style
	Calories  lipgloss.Style
	Selected  lipgloss.Style
	Badge     lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style
	List      lipgloss.Style
}

// ThemeFile is the YAML layout of an embedded theme.
type ThemeFile struct {
	Name   string                 `yaml:"name"`
	Styles map[string]StyleConfig `yaml:"styles"`
}

// StyleConfig is one style entry of a theme file.
type StyleConfig struct {
	Foreground interface{} `yaml:"foreground"`
	Background interface{} `yaml:"background"`
	Bold       bool        `yaml:"bold"`
	Italic     bool        `yaml:"italic"`
	Underline  bool        `yaml:"underline"`
}

// NewThemeService creates a new ThemeService instance with themes loaded from YAML.
func NewThemeService() *ThemeService {
	service := &ThemeService{
		themes: make(map[string]*Theme),
		active: "default",
	}
	service.loadThemesFromYAML()
	return service
}

// Name returns the service name "theme" for registration.
func (t *ThemeService) Name() string {
	return "theme"
}

// Initialize picks the plain theme for test mode and colorless terminals.
func (t *ThemeService) Initialize() error {
	if diningcontext.GetGlobalContext().IsTestMode() || lipgloss.ColorProfile() == termenv.Ascii {
		t.active = "plain"
	}
	t.initialized = true
	return nil
}

func (t *ThemeService) loadThemesFromYAML() {
	themeFiles, err := embedded.Themes()
	if err != nil {
		logger.Error("Failed to read embedded themes", "error", err)
	}

	for themeName, themeData := range themeFiles {
		theme, err := t.loadThemeFile(themeData)
		if err != nil {
			logger.Error("Failed to load theme", "theme", themeName, "error", err)
			t.themes[themeName] = t.createFallbackTheme(themeName)
			continue
		}
		t.themes[themeName] = theme
	}

	if _, exists := t.themes["plain"]; !exists {
		t.themes["plain"] = t.createFallbackTheme("plain")
	}
}

func (t *ThemeService) loadThemeFile(data []byte) (*Theme, error) {
	var themeFile ThemeFile
	if err := yaml.Unmarshal(data, &themeFile); err != nil {
		return nil, fmt.Errorf("failed to parse theme file: %w", err)
	}

	s := themeFile.Styles
	return &Theme{
		Name:      themeFile.Name,
		Title:     t.createStyle(s["title"]),
		Hall:      t.createStyle(s["hall"]),
		Calories:  t.createStyle(s["calories"]),
		Selected:  t.createStyle(s["selected"]),
		Badge:     t.createStyle(s["badge"]),
		User:      t.createStyle(s["user"]),
		Assistant: t.createStyle(s["assistant"]),
		Error:     t.createStyle(s["error"]),
		Muted:     t.createStyle(s["muted"]),
		List:      t.createStyle(s["list"]),
	}, nil
}

func (t *ThemeService) createStyle(config StyleConfig) lipgloss.Style {
	style := lipgloss.NewStyle()
	if color := t.parseColor(config.Foreground); color != nil {
		style = style.Foreground(color)
	}
	if color := t.parseColor(config.Background); color != nil {
		style = style.Background(color).Padding(0, 1)
	}
	if config.Bold {
		style = style.Bold(true)
	}
	if config.Italic {
		style = style.Italic(true)
	}
	if config.Underline {
		style = style.Underline(true)
	}
	return style
}

// parseColor parses a color value that can be a string or a light/dark map.
func (t *ThemeService) parseColor(colorValue interface{}) lipgloss.TerminalColor {
	switch v := colorValue.(type) {
	case string:
		return lipgloss.Color(v)
	case map[string]interface{}:
		light, hasLight := v["light"].(string)
		dark, hasDark := v["dark"].(string)
		if hasLight && hasDark {
			return lipgloss.AdaptiveColor{Light: light, Dark: dark}
		}
		return nil
	default:
		return nil
	}
}

func (t *ThemeService) createFallbackTheme(name string) *Theme {
	plain := lipgloss.NewStyle()
	return &Theme{
		Name: name, Title: plain, Hall: plain, Calories: plain, Selected: plain, Badge: plain,
		User: plain, Assistant: plain, Error: plain, Muted: plain, List: plain,
	}
}

// GetAvailableThemes returns the sorted theme names.
func (t *ThemeService) GetAvailableThemes() []string {
	names := make([]string, 0, len(t.themes))
	for name := range t.themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetTheme switches the active theme.
func (t *ThemeService) SetTheme(name string) error {
	if _, ok := t.themes[name]; !ok {
		return fmt.Errorf("unknown theme %q", name)
	}
	t.active = name
	return nil
}

// Current returns the active theme.
func (t *ThemeService) Current() *Theme {
	if theme, ok := t.themes[t.active]; ok {
		return theme
	}
	return t.themes["plain"]
}

// CreateList creates a numbered list with theme styling applied.
func (t *Theme) CreateList(items ...interface{}) *list.List {
	return list.New(items...).Enumerator(list.Arabic).EnumeratorStyle(t.List.PaddingRight(1))
}

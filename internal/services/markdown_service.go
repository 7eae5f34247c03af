package services

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"diningguide/internal/logger"
)

// MarkdownService renders assistant replies, which are usually markdown, for the terminal using Glamour.
type MarkdownService struct {
	initialized bool
	style       string
	wordWrap    int
	renderer    *glamour.TermRenderer
}

// NewMarkdownService creates a new MarkdownService instance.
func NewMarkdownService() *MarkdownService {
	return &MarkdownService{wordWrap: 80}
}

// Name returns the service name "markdown" for registration.
func (m *MarkdownService) Name() string {
	return "markdown"
}

// Initialize picks a Glamour style matching the active theme and builds the renderer.
func (m *MarkdownService) Initialize() error {
	m.style = m.resolveStyle()
	if err := m.rebuild(); err != nil {
		return err
	}
	m.initialized = true

	logger.Debug("MarkdownService initialized", "style", m.style)
	return nil
}

func (m *MarkdownService) resolveStyle() string {
	if themes, err := LookupService[*ThemeService]("theme"); err == nil && themes.Current().Name == "plain" {
		return "notty"
	}
	if termenv.EnvColorProfile() == termenv.Ascii {
		return "notty"
	}
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

func (m *MarkdownService) rebuild() error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(m.wordWrap),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	m.renderer = renderer
	return nil
}

// Style returns the Glamour style in use.
func (m *MarkdownService) Style() string {
	return m.style
}

// Render renders markdown content to terminal output.
func (m *MarkdownService) Render(markdown string) (string, error) {
	if !m.initialized {
		return "", fmt.Errorf("markdown service not initialized")
	}

	if strings.TrimSpace(markdown) == "" {
		return "", fmt.Errorf("markdown content cannot be empty")
	}

	rendered, err := m.renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}

	return rendered, nil
}

// RenderOrPlain renders markdown and falls back to the raw text on failure.
func (m *MarkdownService) RenderOrPlain(markdown string) string {
	rendered, err := m.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.Trim(rendered, "\n")
}

// SetWordWrap sets the word wrap width for markdown rendering.
func (m *MarkdownService) SetWordWrap(width int) error {
	if !m.initialized {
		return fmt.Errorf("markdown service not initialized")
	}
	if width <= 0 {
		return fmt.Errorf("word wrap width must be positive, got %d", width)
	}
	m.wordWrap = width
	return m.rebuild()
}

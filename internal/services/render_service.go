package services

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"diningguide/pkg/diningtypes"
)

// maxFoodNameWidth bounds food names in card listings.
const maxFoodNameWidth = 36

// RenderService turns catalog, selection and chat state into terminal text.
type RenderService struct {
	initialized bool
	themes      *ThemeService
}

// NewRenderService creates a new RenderService instance.
func NewRenderService() *RenderService {
	return &RenderService{}
}

// Name returns the service name "render" for registration.
func (r *RenderService) Name() string {
	return "render"
}

// Initialize looks up the theme service, falling back to a private one.
func (r *RenderService) Initialize() error {
	if r.themes == nil {
		themes, err := LookupService[*ThemeService]("theme")
		if err != nil {
			themes = NewThemeService()
			if err := themes.Initialize(); err != nil {
				return err
			}
		}
		r.themes = themes
	}
	r.initialized = true
	return nil
}

func (r *RenderService) theme() *Theme {
	if r.themes == nil {
		return NewThemeService().createFallbackTheme("plain")
	}
	return r.themes.Current()
}

// FoodCards renders the catalog as a numbered list, marking selected items.
func (r *RenderService) FoodCards(items []diningtypes.FoodItem, isSelected func(id string) bool) string {
	t := r.theme()
	if len(items) == 0 {
		return t.Muted.Render("No food items available.")
	}

	rows := make([]interface{}, len(items))
	for i, item := range items {
		mark := "[ ]"
		if isSelected != nil && isSelected(item.ID) {
			mark = t.Selected.Render("[x]")
		}
		rows[i] = fmt.Sprintf("%s %s  %s  %s",
			mark,
			t.Title.Render(ansi.Truncate(item.Name, maxFoodNameWidth, "…")),
			t.Hall.Render(item.DiningHall),
			t.Calories.Render(fmt.Sprintf("%d cal", item.Calories)))
	}
	return t.CreateList(rows...).String()
}

// SelectionBanner reports how many foods are selected.
func (r *RenderService) SelectionBanner(count int) string {
	return r.theme().Selected.Render(fmt.Sprintf("%d item(s) selected", count))
}

// Recommendation renders the recommended hall badge.
func (r *RenderService) Recommendation(hall string, ok bool) string {
	t := r.theme()
	if !ok {
		return t.Muted.Render("Select some foods to get a recommendation.")
	}
	return fmt.Sprintf("Recommended Hall: %s", t.Badge.Render(hall))
}

// Sidebar renders the selected foods with the recommendation badge.
func (r *RenderService) Sidebar(selection []diningtypes.FoodItem, hall string, ok bool) string {
	t := r.theme()
	var b strings.Builder
	b.WriteString(t.Title.Render("Your Selections"))
	b.WriteString("\n")
	if ok {
		b.WriteString(r.Recommendation(hall, ok))
		b.WriteString("\n")
	}
	for _, item := range selection {
		fmt.Fprintf(&b, "\n%s\n  %s  %s", item.Name, t.Hall.Render(item.DiningHall), t.Calories.Render(fmt.Sprintf("%d cal", item.Calories)))
	}
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Render(b.String())
}

// EmptyState is shown when the conversation is opened without any selection.
func (r *RenderService) EmptyState() string {
	t := r.theme()
	return t.Title.Render("No Foods Selected") + "\n" +
		t.Muted.Render("Go back to the Browse Foods page and select some items you like!")
}

// TypingIndicator is shown while a reply is pending.
func (r *RenderService) TypingIndicator() string {
	return r.theme().Muted.Render("Assistant is typing...")
}

// ChatHeader introduces the conversation view.
func (r *RenderService) ChatHeader() string {
	t := r.theme()
	return t.Title.Render("AI Dining Assistant") + "\n" + t.Muted.Render("Ask me anything about your dining options!")
}

// MessageLabel returns the styled author label for a message.
func (r *RenderService) MessageLabel(msg diningtypes.ChatMessage) string {
	t := r.theme()
	if msg.Role == diningtypes.RoleUser {
		return t.User.Render("You")
	}
	return t.Assistant.Render("Assistant")
}

// ErrorText styles an error line.
func (r *RenderService) ErrorText(text string) string {
	return r.theme().Error.Render(text)
}

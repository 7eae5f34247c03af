package services

import (
	"errors"
	"fmt"
	"strings"

	"diningguide/pkg/diningtypes"
)

// noHallText stands in for the hall name when there is no recommendation.
const noHallText = "no specific hall"

// hallOrFallback returns hall, or noHallText when there is no recommendation.
func hallOrFallback(hall string, ok bool) string {
	if !ok || hall == "" {
		return noHallText
	}
	return hall
}

// FormatFoodLine renders a food as "<name> (<hall>) - <calories> cal".
func FormatFoodLine(item diningtypes.FoodItem) string {
	return fmt.Sprintf("%s (%s) - %d cal", item.Name, item.DiningHall, item.Calories)
}

// BuildSystemPrompt lists the selected foods and tells the assistant which hall to recommend.
func BuildSystemPrompt(selection []diningtypes.FoodItem, hall string, ok bool) string {
	lines := make([]string, len(selection))
	for i, item := range selection {
		lines[i] = FormatFoodLine(item)
	}

	return fmt.Sprintf("You are a helpful dining hall assistant. The user has selected these foods:\n\n%s\n\n"+
		"Based on their selections, the recommended dining hall is: %s. "+
		"Recommend this dining hall to them, explain why based on their food preferences, "+
		"and help them with any questions about dining options. Be friendly, concise, and helpful.",
		strings.Join(lines, "\n"), hallOrFallback(hall, ok))
}

// SeedMessage is the first assistant message of a conversation.
func SeedMessage(hall string, ok bool) string {
	return fmt.Sprintf("Hi! I've analyzed your food selections. Based on what you picked, I recommend visiting **%s**!\n\n"+
		"This dining hall has the most items you're interested in. Would you like to know more about the foods there, "+
		"or do you have any dietary preferences or restrictions I should consider?", hallOrFallback(hall, ok))
}

// ErrorMessage is the in-chat explanation appended when a completion fails.
// The configuration hint is only added for a missing credential.
func ErrorMessage(err error) string {
	msg := "unknown error"
	if ce := diningtypes.AsCompletionError(err); ce != nil && ce.Message != "" {
		msg = ce.Message
	}
	text := fmt.Sprintf("Sorry, I encountered an error: %s.", msg)
	if errors.Is(err, diningtypes.ErrMissingAPIKey) {
		text += " Please make sure your API key is configured."
	}
	return text
}

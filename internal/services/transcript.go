package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"diningguide/pkg/diningtypes"
)

// Transcript export formats.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "md"
)

// FormatFromPath picks an export format from a file extension, defaulting to JSON.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatJSON
	}
}

// ExportTranscript encodes t in the given format.
func ExportTranscript(t diningtypes.Transcript, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(t, "", "  ")
	case FormatYAML:
		return yaml.Marshal(t)
	case FormatMarkdown:
		return []byte(transcriptMarkdown(t)), nil
	default:
		return nil, fmt.Errorf("unsupported transcript format: %s", format)
	}
}

// WriteTranscript writes t to path using the format implied by its extension.
func WriteTranscript(t diningtypes.Transcript, path string) error {
	data, err := ExportTranscript(t, FormatFromPath(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create transcript directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

func transcriptMarkdown(t diningtypes.Transcript) string {
	var b strings.Builder
	b.WriteString("# Dining Chat\n\n")
	fmt.Fprintf(&b, "Recommended hall: **%s**\n\n", hallOrFallback(t.Recommendation, t.Recommendation != ""))

	if len(t.Selection) > 0 {
		b.WriteString("## Selections\n\n")
		for _, item := range t.Selection {
			fmt.Fprintf(&b, "- %s\n", FormatFoodLine(item))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Conversation\n")
	for _, msg := range t.Messages {
		author := "Assistant"
		if msg.Role == diningtypes.RoleUser {
			author = "You"
		}
		fmt.Fprintf(&b, "\n**%s:** %s\n", author, msg.Content)
	}
	return b.String()
}

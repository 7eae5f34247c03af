package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"diningguide/internal/testutils"
	"diningguide/pkg/diningtypes"
)

func sampleTranscript(t *testing.T) diningtypes.Transcript {
	t.Helper()
	session := newTestSession(t, testutils.NewMockProvider("Go to North."))
	require.True(t, session.Activate(testutils.SampleSelection()))
	_, err := session.Ask(context.Background(), "Where should I eat?")
	require.NoError(t, err)
	return session.Transcript()
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromPath("chat.json"))
	assert.Equal(t, FormatYAML, FormatFromPath("chat.YAML"))
	assert.Equal(t, FormatYAML, FormatFromPath("chat.yml"))
	assert.Equal(t, FormatMarkdown, FormatFromPath("notes/chat.md"))
	assert.Equal(t, FormatJSON, FormatFromPath("chat"))
}

func TestExportTranscript_JSON(t *testing.T) {
	transcript := sampleTranscript(t)

	data, err := ExportTranscript(transcript, FormatJSON)
	require.NoError(t, err)

	var decoded diningtypes.Transcript
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "session_1609459200", decoded.SessionID)
	assert.Len(t, decoded.Messages, 3)
	assert.Equal(t, "Where should I eat?", decoded.Messages[1].Content)
}

func TestExportTranscript_YAML(t *testing.T) {
	transcript := sampleTranscript(t)

	data, err := ExportTranscript(transcript, FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, string(data), "session_id: session_1609459200")
	assert.Contains(t, string(data), "recommendation: North")

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Len(t, decoded["messages"], 3)
}

func TestExportTranscript_Markdown(t *testing.T) {
	transcript := sampleTranscript(t)

	data, err := ExportTranscript(transcript, FormatMarkdown)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "# Dining Chat")
	assert.Contains(t, out, "Recommended hall: **North**")
	assert.Contains(t, out, "- Pizza (North) - 300 cal")
	assert.Contains(t, out, "**You:** Where should I eat?")
	assert.Contains(t, out, "**Assistant:** Go to North.")
}

func TestExportTranscript_UnknownFormat(t *testing.T) {
	_, err := ExportTranscript(diningtypes.Transcript{}, "xml")
	assert.Error(t, err)
}

func TestWriteTranscript(t *testing.T) {
	transcript := sampleTranscript(t)
	path := filepath.Join(t.TempDir(), "exports", "chat.md")

	require.NoError(t, WriteTranscript(transcript, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Dining Chat")
}

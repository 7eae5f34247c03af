package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"diningguide/internal/logger"
	"diningguide/pkg/diningtypes"
)

// GeminiClient implements the CompletionProvider interface for Google's Gemini API.
type GeminiClient struct {
	apiKey  string
	options CompletionOptions

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiClient creates a new Gemini client with lazy initialization.
func NewGeminiClient(apiKey string, options CompletionOptions) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		options: options.withDefaults("gemini"),
	}
}

// GetProviderName returns the provider name for this client.
func (c *GeminiClient) GetProviderName() string {
	return "gemini"
}

// IsConfigured returns true if the client has a valid API key.
func (c *GeminiClient) IsConfigured() bool {
	return c.apiKey != ""
}

func (c *GeminiClient) initializeClientIfNeeded(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	if c.apiKey == "" {
		return nil, fmt.Errorf("google %w", diningtypes.ErrMissingAPIKey)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c.client = client
	logger.Debug("Gemini client initialized", "provider", "gemini")
	return c.client, nil
}

// Complete sends the conversation to GenerateContent and joins the text parts of the answer.
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt string, history []diningtypes.CompletionMessage) (string, error) {
	client, err := c.initializeClientIfNeeded(ctx)
	if err != nil {
		return "", &diningtypes.CompletionError{Provider: "gemini", Message: err.Error(), Err: err}
	}

	contents := c.convertMessagesToGemini(history)
	config := c.buildGenerationConfig(systemPrompt)

	logger.Debug("Sending Gemini request", "model", c.options.Model, "content_count", len(contents))
	result, err := client.Models.GenerateContent(ctx, c.options.Model, contents, config)
	if err != nil {
		logger.Error("Gemini request failed", "error", err)
		return "", diningtypes.NewCompletionError("gemini", err)
	}

	content := c.processGeminiResponse(result)
	if content == "" {
		return "", &diningtypes.CompletionError{Provider: "gemini", Message: "empty response content"}
	}
	return content, nil
}

func (c *GeminiClient) convertMessagesToGemini(history []diningtypes.CompletionMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))

	for _, msg := range history {
		var role string
		switch msg.Role {
		case diningtypes.RoleUser:
			role = genai.RoleUser
		case diningtypes.RoleAssistant:
			role = genai.RoleModel
		default:
			continue
		}
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: msg.Content}},
			Role:  role,
		})
	}

	if len(contents) == 0 {
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: ""}},
			Role:  genai.RoleUser,
		})
	}

	return contents
}

func (c *GeminiClient) buildGenerationConfig(systemPrompt string) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if c.options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(c.options.MaxTokens)
	}
	return config
}

func (c *GeminiClient) processGeminiResponse(result *genai.GenerateContentResponse) string {
	if result == nil {
		return ""
	}
	var content strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text == "" || part.Thought {
				continue
			}
			content.WriteString(part.Text)
		}
	}
	return content.String()
}

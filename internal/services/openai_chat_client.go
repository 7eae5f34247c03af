package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"diningguide/internal/logger"
	"diningguide/pkg/diningtypes"
)

// OpenAIClient implements the CompletionProvider interface for OpenAI chat completions.
// It also exposes the underlying SDK client for the image generator.
type OpenAIClient struct {
	apiKey     string
	options    CompletionOptions
	baseURL    string
	httpClient *http.Client

	mu     sync.Mutex
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client with lazy initialization.
func NewOpenAIClient(apiKey string, options CompletionOptions) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		options: options.withDefaults("openai"),
	}
}

// GetProviderName returns the provider name for this client.
func (c *OpenAIClient) GetProviderName() string {
	return "openai"
}

// IsConfigured returns true if the client has a valid API key.
func (c *OpenAIClient) IsConfigured() bool {
	return c.apiKey != ""
}

// SetBaseURL points the client at a different OpenAI-compatible endpoint.
func (c *OpenAIClient) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = baseURL
	c.client = nil
}

// SetHTTPClient overrides the HTTP client used by the SDK.
func (c *OpenAIClient) SetHTTPClient(httpClient *http.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.httpClient = httpClient
	c.client = nil
}

func (c *OpenAIClient) initializeClientIfNeeded() (*openai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	if c.apiKey == "" {
		return nil, fmt.Errorf("OpenAI %w", diningtypes.ErrMissingAPIKey)
	}

	options := []option.RequestOption{option.WithAPIKey(c.apiKey)}
	if c.baseURL != "" {
		options = append(options, option.WithBaseURL(c.baseURL))
	}
	if c.httpClient != nil {
		options = append(options, option.WithHTTPClient(c.httpClient))
	}

	client := openai.NewClient(options...)
	c.client = &client

	logger.Debug("OpenAI client initialized", "provider", "openai")
	return c.client, nil
}

// Complete sends the conversation as a chat completion and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt string, history []diningtypes.CompletionMessage) (string, error) {
	client, err := c.initializeClientIfNeeded()
	if err != nil {
		return "", &diningtypes.CompletionError{Provider: "openai", Message: err.Error(), Err: err}
	}

	messages := c.convertMessagesToOpenAI(systemPrompt, history)
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.options.Model),
		Messages: messages,
	}
	if c.options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.options.MaxTokens))
	}

	logger.Debug("Sending OpenAI request", "model", c.options.Model, "message_count", len(messages))
	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Error("OpenAI request failed", "error", err)
		return "", diningtypes.NewCompletionError("openai", err)
	}

	if len(completion.Choices) == 0 {
		return "", &diningtypes.CompletionError{Provider: "openai", Message: "no response choices returned"}
	}

	content := completion.Choices[0].Message.Content
	if content == "" {
		return "", &diningtypes.CompletionError{Provider: "openai", Message: "empty response content"}
	}

	logger.Debug("OpenAI response received", "content_length", len(content))
	return content, nil
}

func (c *OpenAIClient) convertMessagesToOpenAI(systemPrompt string, history []diningtypes.CompletionMessage) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}

	for _, msg := range history {
		switch msg.Role {
		case diningtypes.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case diningtypes.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}

	return messages
}

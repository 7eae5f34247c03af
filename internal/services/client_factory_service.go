package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	diningcontext "diningguide/internal/context"
	"diningguide/internal/logger"
	"diningguide/pkg/diningtypes"
)

// SupportedProviders lists the completion providers the factory can build.
var SupportedProviders = []string{"anthropic", "openai", "gemini", "remote", "mock"}

// defaultModels holds the model used when DINING_MODEL is unset.
var defaultModels = map[string]string{
	"anthropic": "claude-3-5-sonnet-20241022",
	"openai":    "gpt-4o-mini",
	"gemini":    "gemini-2.0-flash",
}

// CompletionOptions are the per-request settings shared by all SDK clients.
type CompletionOptions struct {
	Model     string
	MaxTokens int
}

func (o CompletionOptions) withDefaults(provider string) CompletionOptions {
	if o.Model == "" {
		o.Model = defaultModels[provider]
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1024
	}
	return o
}

// ClientFactoryService creates completion clients and caches them in the global context.
type ClientFactoryService struct {
	initialized bool
}

// NewClientFactoryService creates a new ClientFactoryService instance.
func NewClientFactoryService() *ClientFactoryService {
	return &ClientFactoryService{
		initialized: false,
	}
}

// Name returns the service name "client_factory" for registration.
func (f *ClientFactoryService) Name() string {
	return "client_factory"
}

// Initialize sets up the ClientFactoryService for operation.
func (f *ClientFactoryService) Initialize() error {
	logger.ServiceOperation("client_factory", "initialize", "starting")
	f.initialized = true
	return nil
}

// GetClientForProvider returns a completion client for the provider.
// An empty API key still yields a client; its calls fail with a CompletionError.
// For the remote provider, apiKey is unused and endpoint is the server base URL.
func (f *ClientFactoryService) GetClientForProvider(provider, apiKey, endpoint string, options CompletionOptions) (diningtypes.CompletionProvider, error) {
	if !f.initialized {
		return nil, fmt.Errorf("client factory service not initialized")
	}

	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return nil, fmt.Errorf("provider cannot be empty")
	}

	clientID := f.generateClientID(provider, apiKey+"|"+endpoint+"|"+options.Model)
	ctx := diningcontext.GetGlobalContext()

	if client, exists := ctx.GetCompletionClient(clientID); exists {
		logger.Debug("Returning cached provider client", "provider", provider, "clientID", clientID)
		return client, nil
	}

	var client diningtypes.CompletionProvider
	switch provider {
	case "anthropic":
		client = NewAnthropicClient(apiKey, options)
	case "openai":
		client = NewOpenAIClient(apiKey, options)
	case "gemini":
		client = NewGeminiClient(apiKey, options)
	case "remote":
		client = NewRemoteClient(endpoint, DefaultHTTPClientOptions)
	case "mock":
		client = NewOfflineClient()
	default:
		return nil, fmt.Errorf("unsupported provider '%s'. Supported providers: %s", provider, strings.Join(SupportedProviders, ", "))
	}

	ctx.SetCompletionClient(clientID, client)
	logger.Debug("Created new provider client", "provider", provider, "clientID", clientID)
	return client, nil
}

// GetConfiguredClient builds the client selected by DINING_PROVIDER and friends.
func (f *ClientFactoryService) GetConfiguredClient() (diningtypes.CompletionProvider, error) {
	config, err := LookupService[*ConfigurationService]("configuration")
	if err != nil {
		return nil, fmt.Errorf("configuration unavailable: %w", err)
	}

	provider := strings.ToLower(config.GetString("DINING_PROVIDER", "anthropic"))
	options := CompletionOptions{
		Model:     config.GetString("DINING_MODEL", ""),
		MaxTokens: config.GetInt("DINING_MAX_TOKENS", 1024),
	}

	var apiKey string
	if provider != "remote" && provider != "mock" {
		apiKey, err = config.GetAPIKey(provider)
		if err != nil {
			logger.Warn("No API key configured; chat turns will report the error", "provider", provider)
		}
	}

	return f.GetClientForProvider(provider, apiKey, config.GetString("DINING_REMOTE_URL", ""), options)
}

// generateClientID creates a client ID of the form "provider:hash" without exposing the key.
func (f *ClientFactoryService) generateClientID(provider, secret string) string {
	hash := sha256.Sum256([]byte(secret))
	return fmt.Sprintf("%s:%s", provider, hex.EncodeToString(hash[:])[:8])
}

package services

import (
	"context"
	"fmt"
	"strings"

	"diningguide/pkg/diningtypes"
)

// OfflineClient answers without any network access. It backs DINING_PROVIDER=mock
// for demos and for running the shell without a credential.
type OfflineClient struct{}

// NewOfflineClient creates an OfflineClient.
func NewOfflineClient() *OfflineClient {
	return &OfflineClient{}
}

// GetProviderName returns the provider name for this client.
func (c *OfflineClient) GetProviderName() string {
	return "mock"
}

// IsConfigured always returns true.
func (c *OfflineClient) IsConfigured() bool {
	return true
}

// Complete echoes the latest user turn.
func (c *OfflineClient) Complete(ctx context.Context, _ string, history []diningtypes.CompletionMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", diningtypes.NewCompletionError("mock", err)
	}

	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == diningtypes.RoleUser {
			return fmt.Sprintf("(offline) You asked: %q. Set DINING_PROVIDER and an API key for real answers.",
				strings.TrimSpace(history[i].Content)), nil
		}
	}
	return "(offline) Ask me anything about your dining options!", nil
}

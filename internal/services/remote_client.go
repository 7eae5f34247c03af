package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"diningguide/internal/logger"
	"diningguide/pkg/diningtypes"
)

// RemoteClient is a CompletionProvider that forwards turns to a `dining serve`
// instance, which holds the provider credential.
type RemoteClient struct {
	baseURL string
	http    *resty.Client
}

// NewRemoteClient creates a client for the chat endpoint under baseURL.
func NewRemoteClient(baseURL string, opts HTTPClientOptions) *RemoteClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &RemoteClient{
		baseURL: baseURL,
		http:    NewHTTPClient(baseURL, opts),
	}
}

// GetProviderName returns the provider name for this client.
func (c *RemoteClient) GetProviderName() string {
	return "remote"
}

// IsConfigured reports whether a server URL is set.
func (c *RemoteClient) IsConfigured() bool {
	return c.baseURL != ""
}

// Complete posts the conversation to /api/chat.
func (c *RemoteClient) Complete(ctx context.Context, systemPrompt string, history []diningtypes.CompletionMessage) (string, error) {
	if !c.IsConfigured() {
		return "", &diningtypes.CompletionError{Provider: "remote", Message: "remote server URL not configured"}
	}

	var reply diningtypes.ChatResponse
	var failure diningtypes.ErrorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(diningtypes.ChatRequest{System: systemPrompt, Messages: history}).
		SetResult(&reply).
		SetError(&failure).
		Post("/api/chat")
	if err != nil {
		logger.Error("Remote completion request failed", "error", err)
		return "", diningtypes.NewCompletionError("remote", err)
	}

	if resp.IsError() {
		msg := failure.Error
		if msg == "" {
			msg = fmt.Sprintf("server returned %s", resp.Status())
		}
		return "", &diningtypes.CompletionError{Provider: "remote", Message: msg}
	}

	if reply.Reply == "" {
		return "", &diningtypes.CompletionError{Provider: "remote", Message: "empty response content"}
	}
	return reply.Reply, nil
}

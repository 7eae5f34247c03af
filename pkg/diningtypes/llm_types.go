// Package diningtypes defines LLM-related types and interfaces for the dining hall guide.
// This file contains the completion provider abstraction and its error kind.
package diningtypes

import (
	"context"
	"errors"
	"fmt"
)

// CompletionMessage is the provider-facing shape of a conversation turn.
type CompletionMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionProvider produces a single assistant reply for a system prompt and history.
// Any failure is reported as a *CompletionError.
type CompletionProvider interface {
	// Complete sends the conversation and returns the assistant reply text.
	Complete(ctx context.Context, systemPrompt string, history []CompletionMessage) (string, error)

	// GetProviderName returns the name of the provider (e.g., "anthropic", "openai").
	GetProviderName() string

	// IsConfigured returns true if the provider holds a credential and can make requests.
	IsConfigured() bool
}

// ErrMissingAPIKey reports a provider with no credential.
var ErrMissingAPIKey = errors.New("API key not configured")

// CompletionError collapses missing credentials, transport failures and provider
// rejections into one user-visible kind.
type CompletionError struct {
	Provider string
	Message  string
	Err      error
}

func (e *CompletionError) Error() string {
	if e.Provider == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// NewCompletionError builds a CompletionError whose message is taken from err.
func NewCompletionError(provider string, err error) *CompletionError {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &CompletionError{Provider: provider, Message: msg, Err: err}
}

// AsCompletionError returns err as a CompletionError, wrapping it when it is some other error.
func AsCompletionError(err error) *CompletionError {
	if err == nil {
		return nil
	}
	var target *CompletionError
	if errors.As(err, &target) {
		return target
	}
	return NewCompletionError("", err)
}

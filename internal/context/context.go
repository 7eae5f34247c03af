// Package context holds process-wide state for the dining hall guide: test mode,
// the layered configuration map, and cached completion provider clients.
package context

import (
	"sync"

	"diningguide/pkg/diningtypes"
)

// DiningContext is the process-wide state shared by services.
type DiningContext struct {
	testMode bool
	mu       sync.RWMutex

	configurationCtx ConfigurationSubcontext

	clients      map[string]diningtypes.CompletionProvider
	clientsMutex sync.RWMutex
}

// New creates a new DiningContext with an empty configuration map.
func New() *DiningContext {
	ctx := &DiningContext{
		configurationCtx: NewConfigurationSubcontext(),
		clients:          make(map[string]diningtypes.CompletionProvider),
	}
	ctx.configurationCtx.SetParentContext(ctx)
	return ctx
}

// SetTestMode switches deterministic test behavior on or off.
func (ctx *DiningContext) SetTestMode(testMode bool) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.testMode = testMode
}

// IsTestMode reports whether the context is in deterministic test mode.
func (ctx *DiningContext) IsTestMode() bool {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.testMode
}

// Configuration returns the configuration subcontext.
func (ctx *DiningContext) Configuration() ConfigurationSubcontext {
	return ctx.configurationCtx
}

// GetConfigValue retrieves a configuration value by key.
func (ctx *DiningContext) GetConfigValue(key string) (string, bool) {
	return ctx.configurationCtx.GetConfigValue(key)
}

// SetConfigValue sets a configuration value.
func (ctx *DiningContext) SetConfigValue(key, value string) {
	ctx.configurationCtx.SetConfigValue(key, value)
}

// GetCompletionClient returns a cached provider client by client ID.
func (ctx *DiningContext) GetCompletionClient(clientID string) (diningtypes.CompletionProvider, bool) {
	ctx.clientsMutex.RLock()
	defer ctx.clientsMutex.RUnlock()
	client, ok := ctx.clients[clientID]
	return client, ok
}

// SetCompletionClient caches a provider client under the given client ID.
func (ctx *DiningContext) SetCompletionClient(clientID string, client diningtypes.CompletionProvider) {
	ctx.clientsMutex.Lock()
	defer ctx.clientsMutex.Unlock()
	ctx.clients[clientID] = client
}

// ClearCompletionClients drops all cached clients, e.g. after the configuration is reloaded.
func (ctx *DiningContext) ClearCompletionClients() {
	ctx.clientsMutex.Lock()
	defer ctx.clientsMutex.Unlock()
	ctx.clients = make(map[string]diningtypes.CompletionProvider)
}

package context

import "sync"

var (
	globalContext     *DiningContext
	globalContextMu   sync.RWMutex
	globalContextOnce sync.Once
)

// GetGlobalContext returns the global context singleton instance in a thread-safe manner.
// If no global context has been set, it creates a new DiningContext instance.
func GetGlobalContext() *DiningContext {
	globalContextOnce.Do(func() {
		globalContextMu.Lock()
		defer globalContextMu.Unlock()
		if globalContext == nil {
			globalContext = New()
		}
	})

	globalContextMu.RLock()
	defer globalContextMu.RUnlock()
	return globalContext
}

// SetGlobalContext sets the global context instance in a thread-safe manner.
// This is useful for testing or when you need to replace the global context.
func SetGlobalContext(ctx *DiningContext) {
	globalContextOnce.Do(func() {})
	globalContextMu.Lock()
	defer globalContextMu.Unlock()
	globalContext = ctx
}

// ResetGlobalContext resets the global context singleton so the next access creates a fresh one.
func ResetGlobalContext() {
	globalContextMu.Lock()
	defer globalContextMu.Unlock()
	globalContext = nil
	globalContextOnce = sync.Once{}
}

// NewTestContext creates a test-mode context and installs it as the global context.
func NewTestContext() *DiningContext {
	ctx := New()
	ctx.SetTestMode(true)
	SetGlobalContext(ctx)
	return ctx
}

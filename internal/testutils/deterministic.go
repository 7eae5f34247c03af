// Package testutils provides deterministic generators and test doubles for the dining hall guide.
// These utilities keep test output stable while maintaining production formats.
package testutils

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TestModeProvider is implemented by anything that knows whether it runs in test mode.
type TestModeProvider interface {
	IsTestMode() bool
}

var (
	// Thread-safe counter for deterministic ID generation
	idCounter uint64
	idMutex   sync.Mutex

	// Thread-safe counter for deterministic timestamp generation
	timeCounter int64
	timeMutex   sync.Mutex
)

// GenerateUUID generates a UUID that is deterministic in test mode but random in production.
// In test mode, returns UUIDs in format: 00000001-0000-4000-8000-000000000001, etc.
func GenerateUUID(ctx TestModeProvider) string {
	if ctx != nil && ctx.IsTestMode() {
		return getDeterministicUUID()
	}
	return uuid.New().String()
}

// GetCurrentTime returns the current time, deterministic in test mode but real in production.
// In test mode, returns incrementing time starting from 2025-01-01T00:00:01Z.
func GetCurrentTime(ctx TestModeProvider) time.Time {
	if ctx != nil && ctx.IsTestMode() {
		return getDeterministicTime()
	}
	return time.Now()
}

// GenerateSessionID returns a chat session identifier.
// In test mode, returns session_1609459200; otherwise a prefixed random UUID.
func GenerateSessionID(ctx TestModeProvider) string {
	if ctx != nil && ctx.IsTestMode() {
		return "session_1609459200"
	}
	return "session_" + uuid.New().String()[:8]
}

func getDeterministicUUID() string {
	idMutex.Lock()
	defer idMutex.Unlock()

	idCounter++

	// Format: xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx
	return fmt.Sprintf("%08x-0000-4000-8000-%012x", idCounter, idCounter)
}

func getDeterministicTime() time.Time {
	timeMutex.Lock()
	defer timeMutex.Unlock()

	timeCounter++

	baseTime := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return baseTime.Add(time.Duration(timeCounter) * time.Second)
}

// ResetTestCounters resets the deterministic counters for testing.
// This should only be called from test code to ensure consistent test runs.
func ResetTestCounters() {
	idMutex.Lock()
	timeMutex.Lock()
	defer idMutex.Unlock()
	defer timeMutex.Unlock()

	idCounter = 0
	timeCounter = 0
}

// StaticTestMode is a TestModeProvider with a fixed answer.
type StaticTestMode bool

// IsTestMode implements TestModeProvider.
func (s StaticTestMode) IsTestMode() bool { return bool(s) }

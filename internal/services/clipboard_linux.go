//go:build linux

package services

import "errors"

// ClipboardAvailable reports whether the system clipboard can be used.
const ClipboardAvailable = false

// ErrClipboardUnavailable is returned on platforms built without clipboard support.
var ErrClipboardUnavailable = errors.New("clipboard not available on this platform")

// CopyToClipboard always fails on Linux builds.
func CopyToClipboard(string) error {
	return ErrClipboardUnavailable
}

//go:build !linux

package services

import "golang.design/x/clipboard"

// ClipboardAvailable reports whether the system clipboard can be used.
const ClipboardAvailable = true

// CopyToClipboard places text on the system clipboard.
func CopyToClipboard(text string) error {
	if err := clipboard.Init(); err != nil {
		return err
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

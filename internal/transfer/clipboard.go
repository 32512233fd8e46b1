package transfer

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Seams for tests; the real clipboard needs a display server.
var (
	writeClipboard = clipboard.WriteAll
	readClipboard  = clipboard.ReadAll
)

// CopyToClipboard places text on the system clipboard.
func CopyToClipboard(text string) error {
	if err := writeClipboard(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}

// ReadClipboard returns the current clipboard text.
func ReadClipboard() (string, error) {
	text, err := readClipboard()
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return text, nil
}

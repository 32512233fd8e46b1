package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/illarion/boveda/internal/session"
	"github.com/illarion/boveda/internal/transfer"
)

// Import replaces the local vault with a transfer package read from arg,
// from stdin when arg is "-", or from the clipboard.
func Import(ctx context.Context, arg string, fromClipboard, force bool) {
	text, err := readPackage(arg, fromClipboard)
	if err != nil {
		HandleError(err)
	}

	c, err := transfer.Import(text)
	if err != nil {
		HandleError(err)
	}

	a := OpenApp(ctx, AppOptions{})
	defer a.Close()

	if a.Manager.State() != session.NoVault && !force {
		fmt.Println("This replaces the vault stored on this device.")
		if !Confirm("Continue?") {
			fmt.Println("Import cancelled")
			return
		}
	}

	if err := a.Manager.Import(c); err != nil {
		a.Fail(err)
	}

	fmt.Println("✓ Vault imported")
	fmt.Println("Unlock it with the passphrase of the exporting device.")
	fmt.Println("To sync with that device, run 'boveda link <device-id>' with its device id.")
}

func readPackage(arg string, fromClipboard bool) (string, error) {
	switch {
	case fromClipboard:
		return transfer.ReadClipboard()
	case arg == "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(b), nil
	case arg != "":
		return arg, nil
	default:
		return "", fmt.Errorf("import needs a transfer package, '-' for stdin, or --clipboard")
	}
}

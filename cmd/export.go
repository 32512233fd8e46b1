package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/illarion/boveda/internal/security"
	"github.com/illarion/boveda/internal/transfer"
)

// ExportOptions selects where the transfer package goes. The text is
// printed unless it went to the clipboard or a QR code.
type ExportOptions struct {
	QRFile     string
	QRTerminal bool
	Clipboard  bool
}

// Export prints the vault as a transfer package for another device. The
// package stays encrypted, so no passphrase is asked.
func Export(ctx context.Context, opts ExportOptions) {
	a := OpenApp(ctx, AppOptions{})
	defer a.Close()

	c, err := a.Manager.Container()
	if err != nil {
		a.Fail(err)
	}
	text, err := transfer.Export(c, time.Now())
	if err != nil {
		a.Fail(err)
	}

	printed := false
	if opts.QRFile != "" {
		png, err := transfer.QR(text)
		if err != nil {
			a.Fail(err)
		}
		if err := security.WritePrivateFile(opts.QRFile, png); err != nil {
			a.Fail(fmt.Errorf("failed to write QR code: %w", err))
		}
		fmt.Fprintf(os.Stderr, "QR code written to %s\n", opts.QRFile)
		printed = true
	}
	if opts.QRTerminal {
		qr, err := transfer.QRTerminal(text)
		if err != nil {
			a.Fail(err)
		}
		fmt.Print(qr)
		printed = true
	}
	if opts.Clipboard {
		if err := transfer.CopyToClipboard(text); err != nil {
			a.Fail(err)
		}
		fmt.Fprintln(os.Stderr, "Transfer package copied to clipboard")
		printed = true
	}
	if !printed {
		fmt.Println(text)
	}
	fmt.Fprintf(os.Stderr, "Device id: %s\n", a.DeviceID)
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/illarion/boveda/internal/security"
	"github.com/illarion/boveda/internal/storage"
)

// Device prints this device's identity and sync settings
func Device(ctx context.Context) {
	a := OpenApp(ctx, AppOptions{})
	defer a.Close()

	printDevice(os.Stdout, a)
	if err := security.CheckPrivate(a.Storage.Path()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s\n", err)
	}
}

func printDevice(w io.Writer, a *App) {
	fmt.Fprintf(w, "Device id: %s\n", a.DeviceID)
	fmt.Fprintf(w, "Vault:     %s (%s)\n", a.Storage.Path(), a.Manager.State())
	if created, err := a.Storage.Created(); err == nil {
		fmt.Fprintf(w, "Created:   %s\n", created.Local().Format(time.DateTime))
	}
	if a.Remote == nil {
		fmt.Fprintln(w, "Remote:    disabled")
		return
	}
	fmt.Fprintf(w, "Remote:    %s\n", a.Config.Remote.Kind)
}

// Link points this device at the remote slot of another device, so both
// sync the same vault.
func Link(ctx context.Context, id string) {
	id = strings.ToLower(strings.TrimSpace(id))
	if err := storage.ValidateDeviceID(id); err != nil {
		HandleError(err)
	}

	a := OpenApp(ctx, AppOptions{})
	defer a.Close()

	if id == a.DeviceID {
		fmt.Println("Already linked")
		return
	}
	if err := a.Storage.SetDeviceID(id); err != nil {
		a.Fail(err)
	}
	if a.Engine != nil {
		a.Engine.SetDeviceID(id)
	}
	fmt.Printf("✓ Linked to device %s\n", id)
}

package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/boveda/internal/crypto"
	"github.com/illarion/boveda/internal/session"
)

// Init creates a new vault on this device
func Init(ctx context.Context) {
	a := OpenApp(ctx, AppOptions{})
	defer a.Close()

	if a.Manager.State() != session.NoVault {
		a.Fail(session.ErrVaultExists)
	}

	fmt.Printf("Choose a master passphrase (at least %d characters).\n", a.Store.Policy().MinLength)
	fmt.Println("It is not stored anywhere and cannot be recovered.")
	passphrase, confirm, err := GetNewPassphrase("Enter passphrase: ")
	if err != nil {
		a.Fail(err)
	}
	defer crypto.ClearBytes(passphrase)
	defer crypto.ClearBytes(confirm)

	if err := a.Manager.Create(passphrase, confirm); err != nil {
		a.Fail(err)
	}

	fmt.Printf("✓ Initialized vault at %s\n", a.Storage.Path())
	fmt.Printf("Device id: %s\n", a.DeviceID)
}

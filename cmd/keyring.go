package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/boveda/internal/crypto"
	"github.com/illarion/boveda/internal/keyring"
)

// KeyringSave saves the passphrase to the OS keyring
func KeyringSave(ctx context.Context) {
	a := OpenApp(ctx, AppOptions{})
	defer a.Close()

	passphrase, err := ReadPassphrase("Enter passphrase: ")
	if err != nil {
		a.Fail(err)
	}
	defer crypto.ClearBytes(passphrase)

	// Verify passphrase is correct
	c, err := a.Manager.Container()
	if err != nil {
		a.Fail(err)
	}
	sess, err := a.Store.Unlock(c, passphrase)
	if err != nil {
		a.Fail(err)
	}
	sess.Wipe()

	if err := keyring.SavePassphrase(a.DeviceID, passphrase); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save to keyring: %s\n", err)
		a.Close()
		os.Exit(1)
	}

	fmt.Println("Passphrase saved to keyring")
}

// KeyringDelete removes the passphrase from the OS keyring
func KeyringDelete(ctx context.Context) {
	a := OpenApp(ctx, AppOptions{})
	defer a.Close()

	if !keyring.HasPassphrase(a.DeviceID) {
		fmt.Println("No passphrase stored in keyring")
		return
	}
	if err := keyring.DeletePassphrase(a.DeviceID); err != nil {
		a.Fail(err)
	}
	fmt.Println("Passphrase removed from keyring")
}

// KeyringStatus checks if a passphrase is stored in the keyring
func KeyringStatus(ctx context.Context) {
	a := OpenApp(ctx, AppOptions{})
	defer a.Close()

	if keyring.HasPassphrase(a.DeviceID) {
		fmt.Println("Passphrase: stored in keyring")
	} else {
		fmt.Println("Passphrase: not stored")
	}
}

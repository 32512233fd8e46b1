package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/boveda/internal/crypto"
	"github.com/illarion/boveda/internal/keyring"
)

// Passwd changes the master passphrase
func Passwd(ctx context.Context) {
	a := OpenApp(ctx, AppOptions{})
	defer a.Close()

	current, _ := GetPassphraseOrExit("Enter current passphrase: ", a.DeviceID)
	defer crypto.ClearBytes(current)

	if err := a.Manager.Unlock(ctx, current); err != nil {
		a.Fail(err)
	}

	next, confirm, err := ReadPassphraseConfirm("Enter new passphrase: ")
	if err != nil {
		a.Fail(err)
	}
	defer crypto.ClearBytes(next)
	defer crypto.ClearBytes(confirm)

	if err := a.Manager.Rekey(current, next, confirm); err != nil {
		a.Fail(err)
	}

	updated, err := keyring.UpdateIfCached(a.DeviceID, next)
	switch {
	case err != nil:
		fmt.Fprintf(os.Stderr, "warning: failed to update keyring: %s\n", err)
	case updated:
		fmt.Println("Keyring updated with new passphrase")
	}

	fmt.Println("Passphrase changed successfully")
	fmt.Println("Other devices must import this vault again; the old passphrase no longer opens it")
}

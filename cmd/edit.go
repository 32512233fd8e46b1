package cmd

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/illarion/boveda/internal/crypto"
	"github.com/illarion/boveda/internal/vault"
)

// EditOptions describes a change to one record. Fields left nil in Patch
// keep their value.
type EditOptions struct {
	Patch          vault.RecordPatch
	PromptPassword bool
	Generate       int
}

// Edit changes fields of an existing record
func Edit(ctx context.Context, ref string, opts EditOptions) {
	a := OpenApp(ctx, AppOptions{})
	defer a.Close()
	a.UnlockOrExit(ctx)

	records, err := a.Manager.Records()
	if err != nil {
		a.Fail(err)
	}
	rec, err := resolveID(records, ref)
	if err != nil {
		a.Fail(err)
	}

	patch := opts.Patch
	switch {
	case opts.Generate > 0:
		pw, err := vault.GeneratePassword(rand.Reader, opts.Generate)
		if err != nil {
			a.Fail(err)
		}
		patch.Password = &pw
		fmt.Printf("Generated password: %s\n", pw)
	case opts.PromptPassword:
		secret, err := ReadPassphrase("New password: ")
		if err != nil {
			a.Fail(err)
		}
		pw := string(secret)
		crypto.ClearBytes(secret)
		patch.Password = &pw
	}

	if patch.IsEmpty() {
		fmt.Println("Nothing to change")
		return
	}
	if err := a.Manager.Update(rec.ID, patch); err != nil {
		a.Fail(err)
	}
	fmt.Printf("✓ Updated %s (%s)\n", rec.Name, shortID(rec.ID))
}

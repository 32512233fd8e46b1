package cmd

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/illarion/boveda/internal/crypto"
	"github.com/illarion/boveda/internal/vault"
)

// AddOptions carries values given on the command line. Missing name and
// username are prompted for.
type AddOptions struct {
	Name     string
	Username string
	URL      string
	Notes    string
	Generate int
}

// Add stores a new credential
func Add(ctx context.Context, opts AddOptions) {
	a := OpenApp(ctx, AppOptions{})
	defer a.Close()
	a.UnlockOrExit(ctx)

	in, err := collectInput(opts)
	if err != nil {
		a.Fail(err)
	}

	rec, err := a.Manager.Add(in)
	if err != nil {
		a.Fail(err)
	}
	fmt.Printf("✓ Added %s (%s)\n", rec.Name, shortID(rec.ID))
	if opts.Generate > 0 {
		fmt.Printf("Generated password: %s\n", rec.Password)
	}
}

func collectInput(opts AddOptions) (vault.RecordInput, error) {
	in := vault.RecordInput{
		Name:     opts.Name,
		Username: opts.Username,
		URL:      opts.URL,
		Notes:    opts.Notes,
	}

	var err error
	if strings.TrimSpace(in.Name) == "" {
		if in.Name, err = ReadLine("Name: "); err != nil {
			return in, err
		}
	}
	if strings.TrimSpace(in.Username) == "" {
		if in.Username, err = ReadLine("Username: "); err != nil {
			return in, err
		}
	}

	if opts.Generate > 0 {
		in.Password, err = vault.GeneratePassword(rand.Reader, opts.Generate)
		return in, err
	}

	secret, err := ReadPassphrase("Password (empty to generate): ")
	if err != nil {
		return in, err
	}
	defer crypto.ClearBytes(secret)
	if len(secret) == 0 {
		in.Password, err = vault.GeneratePassword(rand.Reader, vault.DefaultPasswordLength)
		if err == nil {
			fmt.Printf("Generated password: %s\n", in.Password)
		}
		return in, err
	}
	in.Password = string(secret)
	return in, nil
}

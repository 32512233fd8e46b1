package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/illarion/boveda/internal/crypto"
	"github.com/illarion/boveda/internal/keyring"
	"golang.org/x/term"
)

// EnvPassphrase names the variable that supplies the master passphrase
// non-interactively.
const EnvPassphrase = "BOVEDA_PASSWORD"

// PassphraseSource tells where a passphrase came from.
type PassphraseSource int

const (
	SourcePrompt PassphraseSource = iota
	SourceEnv
	SourceKeyring
)

var (
	readSecret = func() ([]byte, error) { return term.ReadPassword(int(syscall.Stdin)) }
	stdin      = bufio.NewReader(os.Stdin)
)

// ReadPassphrase reads a passphrase from the terminal without echoing
func ReadPassphrase(prompt string) ([]byte, error) {
	fmt.Print(prompt)

	passphrase, err := readSecret()
	fmt.Println()

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return passphrase, nil
}

// ReadPassphraseConfirm reads a new passphrase and its confirmation. Both
// slices are returned so the policy check sees exactly what was typed.
func ReadPassphraseConfirm(prompt string) ([]byte, []byte, error) {
	first, err := ReadPassphrase(prompt)
	if err != nil {
		return nil, nil, err
	}
	second, err := ReadPassphrase("Confirm passphrase: ")
	if err != nil {
		crypto.ClearBytes(first)
		return nil, nil, err
	}
	return first, second, nil
}

// PassphraseFromEnv reads BOVEDA_PASSWORD, returning nil when unset.
func PassphraseFromEnv() []byte {
	passphrase := os.Getenv(EnvPassphrase)
	if passphrase == "" {
		return nil
	}
	return []byte(passphrase)
}

// GetPassphrase tries the environment, then the keyring entry of deviceID,
// then the terminal. The caller clears the returned slice.
func GetPassphrase(prompt, deviceID string) ([]byte, PassphraseSource, error) {
	if p := PassphraseFromEnv(); p != nil {
		return p, SourceEnv, nil
	}
	if deviceID != "" {
		p, err := keyring.GetPassphrase(deviceID)
		if err == nil && len(p) > 0 {
			return p, SourceKeyring, nil
		}
	}
	p, err := ReadPassphrase(prompt)
	return p, SourcePrompt, err
}

// GetNewPassphrase returns a new passphrase and its confirmation, taking
// both from BOVEDA_PASSWORD when it is set.
func GetNewPassphrase(prompt string) ([]byte, []byte, error) {
	if p := PassphraseFromEnv(); p != nil {
		return p, PassphraseFromEnv(), nil
	}
	return ReadPassphraseConfirm(prompt)
}

// GetPassphraseOrExit is like GetPassphrase but exits on error
func GetPassphraseOrExit(prompt, deviceID string) ([]byte, PassphraseSource) {
	p, source, err := GetPassphrase(prompt, deviceID)
	if err != nil {
		HandleError(err)
	}
	return p, source
}

// ReadLine prompts for a single line of visible input.
func ReadLine(prompt string) (string, error) {
	fmt.Print(prompt)
	return readLine(stdin)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Confirm asks a yes/no question, defaulting to no.
func Confirm(prompt string) bool {
	answer, err := ReadLine(prompt + " [y/N]: ")
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

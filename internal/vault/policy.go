package vault

import (
	"fmt"
	"unicode/utf8"

	"github.com/illarion/boveda/internal/crypto"
)

// DefaultMinPassphraseLength is used when no policy is configured.
const DefaultMinPassphraseLength = 8

// Policy holds the passphrase rules applied to new passphrases.
type Policy struct {
	MinLength int
}

// DefaultPolicy returns the policy with DefaultMinPassphraseLength.
func DefaultPolicy() Policy {
	return Policy{MinLength: DefaultMinPassphraseLength}
}

// Validate checks the length of a new passphrase, counted in characters.
func (p Policy) Validate(passphrase []byte) error {
	if len(passphrase) == 0 {
		return fmt.Errorf("%w: passphrase must not be empty", ErrValidation)
	}
	if n := utf8.RuneCount(passphrase); n < p.MinLength {
		return fmt.Errorf("%w: passphrase must be at least %d characters", ErrValidation, p.MinLength)
	}
	return nil
}

// ValidateNew checks a new passphrase and its confirmation.
func (p Policy) ValidateNew(passphrase, confirm []byte) error {
	if err := p.Validate(passphrase); err != nil {
		return err
	}
	if !crypto.ConstantTimeCompare(passphrase, confirm) {
		return fmt.Errorf("%w: passphrases do not match", ErrValidation)
	}
	return nil
}

package cmd

import (
	"crypto/rand"
	"fmt"

	"github.com/illarion/boveda/internal/vault"
)

// Generate prints a random password of length n
func Generate(n int) {
	if n <= 0 {
		n = vault.DefaultPasswordLength
	}
	pw, err := vault.GeneratePassword(rand.Reader, n)
	if err != nil {
		HandleError(err)
	}
	fmt.Println(pw)
}

// Package transfer encodes a vault container as a single printable string
// for moving it to another device by QR code or clipboard.
//
// The string is base64 of the JSON package
//
//	{"formatVersion":1,"salt":"<b64>","ciphertext":"<b64>","timestamp":"<ISO-8601>"}
//
// The package is as confidential as the container itself and carries no
// passphrase check; a wrong passphrase only shows up on the first unlock.
package transfer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/illarion/boveda/internal/vault"
)

// FormatVersion is the only package version this build writes and reads.
const FormatVersion = 1

type pkg struct {
	FormatVersion int    `json:"formatVersion"`
	Salt          string `json:"salt"`
	Ciphertext    string `json:"ciphertext"`
	Timestamp     string `json:"timestamp"`
}

// Export encodes c. The timestamp is the container's updatedAt, or now when
// the container carries none.
func Export(c vault.Container, now time.Time) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	stamp := c.UpdatedAt
	if stamp.IsZero() {
		stamp = now
	}
	data, err := json.Marshal(pkg{
		FormatVersion: FormatVersion,
		Salt:          base64.StdEncoding.EncodeToString(c.Salt),
		Ciphertext:    base64.StdEncoding.EncodeToString(c.Data),
		Timestamp:     vault.FormatTime(stamp),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal transfer package: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Import decodes a package produced by Export. Surrounding whitespace and
// missing base64 padding are tolerated. Every structural problem is
// reported as vault.ErrFormat.
func Import(text string) (vault.Container, error) {
	text = strings.Join(strings.Fields(text), "")
	if text == "" {
		return vault.Container{}, fmt.Errorf("%w: empty transfer package", vault.ErrFormat)
	}

	raw, err := decodeBase64(text)
	if err != nil {
		return vault.Container{}, fmt.Errorf("%w: transfer package is not base64", vault.ErrFormat)
	}

	var p pkg
	if err := json.Unmarshal(raw, &p); err != nil {
		return vault.Container{}, fmt.Errorf("%w: transfer package: %v", vault.ErrFormat, err)
	}
	// 0 is a package written before the field existed
	if p.FormatVersion < 0 || p.FormatVersion > FormatVersion {
		return vault.Container{}, fmt.Errorf("%w: unsupported transfer format version %d", vault.ErrFormat, p.FormatVersion)
	}
	if p.Salt == "" || p.Ciphertext == "" {
		return vault.Container{}, fmt.Errorf("%w: transfer package needs salt and ciphertext", vault.ErrFormat)
	}

	salt, err := base64.StdEncoding.DecodeString(p.Salt)
	if err != nil {
		return vault.Container{}, fmt.Errorf("%w: salt: %v", vault.ErrFormat, err)
	}
	ct, err := base64.StdEncoding.DecodeString(p.Ciphertext)
	if err != nil {
		return vault.Container{}, fmt.Errorf("%w: ciphertext: %v", vault.ErrFormat, err)
	}

	c := vault.Container{Salt: salt, Data: ct}
	if p.Timestamp != "" {
		if c.UpdatedAt, err = vault.ParseTime(p.Timestamp); err != nil {
			return vault.Container{}, err
		}
	}
	if err := c.Validate(); err != nil {
		return vault.Container{}, err
	}
	return c, nil
}

func decodeBase64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

package vault

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/illarion/boveda/internal/crypto"
)

// TimeLayout is the ISO-8601 form used for every persisted timestamp.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Container is the durable encrypted form of the record list.
type Container struct {
	Salt      []byte
	Data      []byte // nonce ‖ ciphertext ‖ tag
	UpdatedAt time.Time
}

// containerJSON is the persisted representation.
type containerJSON struct {
	Salt      string `json:"salt"`
	Data      string `json:"data"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// IsZero reports whether c holds no vault.
func (c Container) IsZero() bool {
	return len(c.Salt) == 0 && len(c.Data) == 0
}

// Clone returns a deep copy of c.
func (c Container) Clone() Container {
	return Container{
		Salt:      append([]byte(nil), c.Salt...),
		Data:      append([]byte(nil), c.Data...),
		UpdatedAt: c.UpdatedAt,
	}
}

// Equal reports whether two containers are byte-for-byte identical.
func (c Container) Equal(o Container) bool {
	return bytes.Equal(c.Salt, o.Salt) && bytes.Equal(c.Data, o.Data) && c.UpdatedAt.Equal(o.UpdatedAt)
}

// NewerThan reports whether c was written strictly after o.
func (c Container) NewerThan(o Container) bool {
	return c.UpdatedAt.After(o.UpdatedAt)
}

// Validate checks the structural invariants of the wire contract.
func (c Container) Validate() error {
	if len(c.Salt) != crypto.SaltSize {
		return fmt.Errorf("%w: salt must be %d bytes, got %d", ErrFormat, crypto.SaltSize, len(c.Salt))
	}
	if len(c.Data) < crypto.NonceSize+crypto.TagSize {
		return fmt.Errorf("%w: ciphertext too short", ErrFormat)
	}
	return nil
}

// Encode serializes c to its persisted JSON representation.
func Encode(c Container) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	wire := containerJSON{
		Salt: base64.StdEncoding.EncodeToString(c.Salt),
		Data: base64.StdEncoding.EncodeToString(c.Data),
	}
	if !c.UpdatedAt.IsZero() {
		wire.UpdatedAt = FormatTime(c.UpdatedAt)
	}
	return json.Marshal(wire)
}

// Decode parses a persisted container. Any structural problem is reported
// as ErrFormat. A missing updatedAt yields the zero time.
func Decode(data []byte) (Container, error) {
	var wire containerJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return Container{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if wire.Salt == "" || wire.Data == "" {
		return Container{}, fmt.Errorf("%w: salt and data are required", ErrFormat)
	}

	salt, err := base64.StdEncoding.DecodeString(wire.Salt)
	if err != nil {
		return Container{}, fmt.Errorf("%w: salt: %v", ErrFormat, err)
	}
	ct, err := base64.StdEncoding.DecodeString(wire.Data)
	if err != nil {
		return Container{}, fmt.Errorf("%w: data: %v", ErrFormat, err)
	}

	c := Container{Salt: salt, Data: ct}
	if wire.UpdatedAt != "" {
		if c.UpdatedAt, err = ParseTime(wire.UpdatedAt); err != nil {
			return Container{}, err
		}
	}
	if err := c.Validate(); err != nil {
		return Container{}, err
	}
	return c, nil
}

// FormatTime renders t in UTC with millisecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts any RFC 3339 timestamp.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp: %v", ErrFormat, err)
	}
	return t.UTC(), nil
}

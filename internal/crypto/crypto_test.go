package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterReader yields a predictable byte stream for nonce and salt tests.
type counterReader struct{ n byte }

func (c *counterReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = c.n
		c.n++
	}
	return len(p), nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func testSalt() []byte {
	return bytes.Repeat([]byte{0x42}, SaltSize)
}

func TestDeriveKey_Deterministic(t *testing.T) {
	k1, err := DeriveKey([]byte("correcthorse"), testSalt())
	require.NoError(t, err)
	k2, err := DeriveKey([]byte("correcthorse"), testSalt())
	require.NoError(t, err)

	assert.Len(t, k1, KeySize)
	assert.Equal(t, k1, k2)
}

func TestDeriveKey_DependsOnSaltAndPassphrase(t *testing.T) {
	base, err := DeriveKey([]byte("correcthorse"), testSalt())
	require.NoError(t, err)

	otherSalt := bytes.Repeat([]byte{0x43}, SaltSize)
	k2, err := DeriveKey([]byte("correcthorse"), otherSalt)
	require.NoError(t, err)
	assert.NotEqual(t, base, k2)

	k3, err := DeriveKey([]byte("correcthorsf"), testSalt())
	require.NoError(t, err)
	assert.NotEqual(t, base, k3)
}

func TestDeriveKey_RejectsBadInput(t *testing.T) {
	_, err := DeriveKey(nil, testSalt())
	assert.ErrorIs(t, err, ErrEmptyPassphrase)

	_, err = DeriveKey([]byte("pw"), []byte("short"))
	assert.ErrorIs(t, err, ErrInvalidSalt)
}

func TestNewKDF(t *testing.T) {
	kdf, err := NewKDF(&counterReader{})
	require.NoError(t, err)
	assert.Len(t, kdf.Salt, SaltSize)
	assert.Equal(t, DefaultIters, kdf.Iterations)
	assert.Equal(t, byte(0), kdf.Salt[0])
	assert.Equal(t, byte(15), kdf.Salt[15])

	_, err = NewKDF(failingReader{})
	assert.Error(t, err)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key, err := DeriveKey([]byte("correcthorse"), testSalt())
	require.NoError(t, err)
	enc := NewEncryptor(key)

	for _, plaintext := range [][]byte{
		[]byte("[]"),
		[]byte(`[{"id":"1","name":"Mail"}]`),
		bytes.Repeat([]byte("x"), 4096),
	} {
		ct, err := enc.Encrypt(plaintext)
		require.NoError(t, err)
		assert.Len(t, ct, NonceSize+len(plaintext)+TagSize)

		pt, err := enc.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, plaintext, pt)
	}
}

func TestEncrypt_FreshNoncePerCall(t *testing.T) {
	key, err := DeriveKey([]byte("correcthorse"), testSalt())
	require.NoError(t, err)
	enc := NewEncryptor(key).WithRand(&counterReader{})

	a, err := enc.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := enc.Encrypt([]byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, a[:NonceSize], b[:NonceSize])
	assert.NotEqual(t, a, b)
}

func TestEncrypt_NonceSourceFailure(t *testing.T) {
	key := bytes.Repeat([]byte{1}, KeySize)
	_, err := NewEncryptor(key).WithRand(failingReader{}).Encrypt([]byte("data"))
	assert.Error(t, err)
}

func TestDecrypt_WrongKey(t *testing.T) {
	good, err := DeriveKey([]byte("correcthorse"), testSalt())
	require.NoError(t, err)
	bad, err := DeriveKey([]byte("wrong"), testSalt())
	require.NoError(t, err)

	ct, err := NewEncryptor(good).Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = NewEncryptor(bad).Decrypt(ct)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestDecrypt_Tampered(t *testing.T) {
	key, err := DeriveKey([]byte("correcthorse"), testSalt())
	require.NoError(t, err)
	enc := NewEncryptor(key)

	ct, err := enc.Encrypt([]byte("secret"))
	require.NoError(t, err)

	ct[len(ct)-1] ^= 0xff
	_, err = enc.Decrypt(ct)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestDecrypt_TooShort(t *testing.T) {
	enc := NewEncryptor(bytes.Repeat([]byte{1}, KeySize))
	_, err := enc.Decrypt(make([]byte, NonceSize+TagSize-1))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestDestroyClearsKey(t *testing.T) {
	key := bytes.Repeat([]byte{7}, KeySize)
	enc := NewEncryptor(key)
	enc.Destroy()
	assert.Equal(t, make([]byte, KeySize), key)
}

func TestConstantTimeCompare(t *testing.T) {
	assert.True(t, ConstantTimeCompare([]byte("abc"), []byte("abc")))
	assert.False(t, ConstantTimeCompare([]byte("abc"), []byte("abd")))
	assert.False(t, ConstantTimeCompare([]byte("abc"), []byte("ab")))
}

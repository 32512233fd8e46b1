// Package crypto provides cryptographic operations for boveda.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from the master passphrase via PBKDF2
//   - 12-byte random nonce per encryption operation, prepended to the output
//   - Authenticated encryption: a wrong key and a tampered buffer fail the same way
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 16-byte random salt (stored unencrypted next to the ciphertext)
//   - 100,000 iterations
//
// The sizes above are part of the container and transfer formats.
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto

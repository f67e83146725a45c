package ftrack

import "io"

// Encryptor protects the history log at rest. Encryption uses the public
// key only — no user intervention required. Decryption requires a
// passphrase to unlock the private key, producing a DecryptionContext for
// the session.
type Encryptor interface {
	// Setup performs one-time key generation. Called during `ftrack
	// config init`. Generates a key pair, stores the public key in
	// plaintext, and encrypts the private key with the passphrase.
	Setup(passphrase string) error

	// Encrypt wraps w with an encrypting layer using the public key.
	// The returned writer must be closed to finalize the ciphertext
	// before w itself is closed.
	Encrypt(w io.Writer) (io.WriteCloser, error)

	// Unlock decrypts the private key using the passphrase and returns a
	// DecryptionContext valid for the rest of the session. Returns an
	// error if the passphrase is incorrect.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory for the
// duration of a session. The unlocked key is never written to disk.
type DecryptionContext interface {
	// Decrypt wraps r with a decrypting layer.
	Decrypt(r io.Reader) (io.Reader, error)
}

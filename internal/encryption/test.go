package encryption

import (
	"fmt"
	"io"

	"ftrack-go/internal/ftrack"
)

// TestEncryptor is a trivially reversible ftrack.Encryptor for tests: it
// XORs every byte with a fixed key, so "ciphertext" is detectably not
// plaintext while tests stay fast and dependency-free.
type TestEncryptor struct {
	passphrase string
}

var _ ftrack.Encryptor = (*TestEncryptor)(nil)

const testXORKey byte = 0x5a

// NewTestEncryptor creates a TestEncryptor. The configured passphrase is
// checked by Unlock.
func NewTestEncryptor(passphrase string) *TestEncryptor {
	return &TestEncryptor{passphrase: passphrase}
}

func (e *TestEncryptor) Setup(string) error { return nil }

func (e *TestEncryptor) Encrypt(w io.Writer) (io.WriteCloser, error) {
	return &xorWriter{w: w}, nil
}

func (e *TestEncryptor) Unlock(passphrase string) (ftrack.DecryptionContext, error) {
	if passphrase != e.passphrase {
		return nil, fmt.Errorf("incorrect passphrase")
	}
	return &testDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

type testDecryptionContext struct{}

func (*testDecryptionContext) Decrypt(r io.Reader) (io.Reader, error) {
	return &xorReader{r: r}, nil
}

type xorWriter struct {
	w io.Writer
}

func (x *xorWriter) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	for i, b := range p {
		buf[i] = b ^ testXORKey
	}
	return x.w.Write(buf)
}

func (x *xorWriter) Close() error { return nil }

type xorReader struct {
	r io.Reader
}

func (x *xorReader) Read(p []byte) (int, error) {
	n, err := x.r.Read(p)
	for i := 0; i < n; i++ {
		p[i] ^= testXORKey
	}
	return n, err
}

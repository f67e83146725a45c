package encryption

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"
)

func newTestAgeEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()
	dir := t.TempDir()
	return NewAgeEncryptor(
		filepath.Join(dir, "keys", "ftrack.pub"),
		filepath.Join(dir, "keys", "ftrack.key"),
	)
}

func TestAgeEncryptor_Setup(t *testing.T) {
	enc := newTestAgeEncryptor(t)

	if enc.IsConfigured() {
		t.Error("IsConfigured() = true before Setup, want false")
	}

	if err := enc.Setup("passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if !enc.IsConfigured() {
		t.Error("IsConfigured() = false after Setup, want true")
	}
}

func TestAgeEncryptor_RoundTrip(t *testing.T) {
	enc := newTestAgeEncryptor(t)
	if err := enc.Setup("passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	plaintext := []byte("action,reason,path,new_hash\nskip,unchanged,/data/a.txt,\n")

	var ciphertext bytes.Buffer
	w, err := enc.Encrypt(&ciphertext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if bytes.Contains(ciphertext.Bytes(), []byte("unchanged")) {
		t.Error("ciphertext contains plaintext")
	}

	ctx, err := enc.Unlock("passphrase")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	r, err := ctx.Decrypt(bytes.NewReader(ciphertext.Bytes()))
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("decrypted = %q, want %q", got, plaintext)
	}
}

func TestAgeEncryptor_WrongPassphrase(t *testing.T) {
	enc := newTestAgeEncryptor(t)
	if err := enc.Setup("passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if _, err := enc.Unlock("wrong"); err == nil {
		t.Error("Unlock() error = nil, want error")
	}
}

func TestAgeEncryptor_UnlockWithoutKeys(t *testing.T) {
	enc := newTestAgeEncryptor(t)

	if _, err := enc.Unlock("passphrase"); err == nil {
		t.Error("Unlock() error = nil, want error for missing key file")
	}
}

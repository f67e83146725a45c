package testutil

import "crypto/sha256"

// SHA256 returns the digest of data as a byte slice.
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

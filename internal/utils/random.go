package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomToken returns n random bytes hex-encoded, for confirmation and
// password-reset tokens.
func RandomToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(err)
	}
	return hex.EncodeToString(b)
}

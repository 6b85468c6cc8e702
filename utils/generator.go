package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

const (
	temporaryPasswordLength = 12
	resetTokenBytes         = 32
)

// No easily confused characters (0/O, 1/l/I).
const passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// GenerateTemporaryPassword returns a random password for accounts created by an admin.
func GenerateTemporaryPassword() (string, error) {
	b := make([]byte, temporaryPasswordLength)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = passwordAlphabet[n.Int64()]
	}
	return string(b), nil
}

// GenerateToken returns a hex-encoded random token suitable for password reset links.
func GenerateToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

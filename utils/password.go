package utils

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	passwordUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordLower   = "abcdefghijklmnopqrstuvwxyz"
	passwordDigits  = "0123456789"
	passwordSymbols = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	DefaultPasswordLength = 16
)

// GenerateSecurePassword returns a random password holding at least one
// upper, lower, digit and symbol character.
func GenerateSecurePassword(length int) (string, error) {
	if length <= 0 {
		length = DefaultPasswordLength
	}
	if length < 4 {
		return "", errors.New("password length must be at least 4")
	}
	all := passwordUpper + passwordLower + passwordDigits + passwordSymbols

	out := make([]byte, 0, length)
	for _, set := range []string{passwordUpper, passwordLower, passwordDigits, passwordSymbols} {
		c, err := randomChar(set)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < length {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	// Fisher-Yates so the guaranteed characters are not always first.
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}
	return string(out), nil
}

func randomChar(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}

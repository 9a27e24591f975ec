package utils

import "golang.org/x/crypto/bcrypt"

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

func HashPassword(s string) ([]byte, error) {
	if len(s) > maxPasswordBytes {
		return nil, NewValidationError("password", "must be at most %d bytes", maxPasswordBytes)
	}
	return bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
}

func ComparePassword(hashed string, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

package security

import "golang.org/x/crypto/bcrypt"

// MinPasswordLength is the shortest password sign-up accepts.
const MinPasswordLength = 8

// MaxPasswordBytes is bcrypt's input limit.
const MaxPasswordBytes = 72

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// TooLong reports whether bcrypt would refuse to hash the password.
func TooLong(plain string) bool {
	return len(plain) > MaxPasswordBytes
}

// StrongEnough reports whether a password meets the sign-up policy.
func StrongEnough(plain string) bool {
	return len([]rune(plain)) >= MinPasswordLength
}

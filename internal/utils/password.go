package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword returns a bcrypt hash of a staff password using the given cost.
// Costs below bcrypt.MinCost are raised by the library.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a stored hash with a candidate password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost matches the cost the account base was created with.
const bcryptCost = 12

// HashPassword returns a bcrypt digest of the given secret.
func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyPassword reports whether the secret matches the stored digest.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

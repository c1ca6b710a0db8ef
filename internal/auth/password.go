package auth

import "golang.org/x/crypto/bcrypt"

// HashOperatorKey hashes a plaintext operator key with the given cost.
func HashOperatorKey(key string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareOperatorKey verifies a key against its hashed value.
func CompareOperatorKey(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

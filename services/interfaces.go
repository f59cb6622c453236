package services

// PasswordHasher verifies (and for provisioning, produces) password hashes.
// The hashing scheme itself is outside this engine; the boundary performs
// the verification before the lifecycle service is invoked.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) error
}

package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken hashes an encoded credential before it is used as a cache key.
// The digest is much shorter than a signed token and keeps raw credential
// material out of the cache backend.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

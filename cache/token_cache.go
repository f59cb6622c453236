package cache

import (
	"context"
	"time"

	"github.com/coderepojon/authcore/domain"
)

// Entry is a cached view of an ACTIVE access credential, keyed by the hash
// of the encoded token value. Entries exist only as a fast path for request
// authentication; the token repository stays authoritative and every
// revocation deletes the entry before the flip is reported to the caller.
type Entry struct {
	TokenID   string           `json:"id" redis:"id"`
	UserID    string           `json:"userId" redis:"userId"`
	Subject   string           `json:"subject" redis:"subject"`
	SessionID string           `json:"sessionId" redis:"sessionId"`
	Kind      domain.TokenKind `json:"kind" redis:"kind"`
	Roles     []string         `json:"roles,omitempty" redis:"roles"`
	ExpiresAt time.Time        `json:"expiresAt" redis:"expiresAt"`
}

// TokenCache is a lookaside cache over the token repository's validity
// checks. A miss is never an error condition for callers; they fall through
// to the repository.
type TokenCache interface {
	Set(ctx context.Context, tokenValue string, entry *Entry) error
	Get(ctx context.Context, tokenValue string) (*Entry, error)
	Delete(ctx context.Context, tokenValue string) error
	Clear(ctx context.Context) error
	Close() error
}

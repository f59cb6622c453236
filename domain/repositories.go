package domain

import "context"

// TokenRepository is the persisted token store. Implementations must keep
// token_value unique across all records ever stored and must never delete
// records: revocation is a status flip, the history is the audit trail.
type TokenRepository interface {
	// Store inserts a new token record. Returns errors.ErrDuplicateToken
	// when a record with the same token value already exists; callers treat
	// that as an integrity failure, not a recoverable condition.
	Store(ctx context.Context, token *StoredToken) error

	// FindByValue returns the record for an encoded credential, regardless
	// of status, or errors.ErrNotFound.
	FindByValue(ctx context.Context, tokenValue string) (*StoredToken, error)

	// FindActiveBySession returns every ACTIVE token tagged with sessionID.
	FindActiveBySession(ctx context.Context, sessionID string) ([]*StoredToken, error)

	// FindActiveByUser returns the user's ACTIVE, not-yet-expired tokens.
	FindActiveByUser(ctx context.Context, userID string) ([]*StoredToken, error)

	// RevokeMany flips the given records to REVOKED. Idempotent: records
	// already revoked are left untouched and cause no error.
	RevokeMany(ctx context.Context, tokens []*StoredToken) error

	// RevokeActiveByValue atomically flips one ACTIVE record to REVOKED.
	// It reports false when no ACTIVE record matched, which is how a
	// concurrent refresh loser observes that it lost the race.
	RevokeActiveByValue(ctx context.Context, tokenValue string) (bool, error)

	// ExistsActiveFor is the authoritative usability check: existence,
	// ownership, ACTIVE status and non-expiry in a single query.
	ExistsActiveFor(ctx context.Context, tokenValue, userID string) (bool, error)
}

// UserRepository is the narrow identity-store contract this engine consumes.
// Password verification happens at the boundary before the lifecycle service
// is invoked.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SetCurrentSession moves the user's current-session pointer. A nil
	// sessionID clears it.
	SetCurrentSession(ctx context.Context, userID string, sessionID *string) error
}

package services

import (
	"context"
	"sort"

	"github.com/coderepojon/authcore/domain"
)

// SessionRegistry groups stored tokens by session and by user. It is a pure
// derivation layer over the token and user repositories and keeps no state
// of its own.
type SessionRegistry struct {
	tokens domain.TokenRepository
	users  domain.UserRepository
}

// NewSessionRegistry creates a SessionRegistry.
func NewSessionRegistry(tokens domain.TokenRepository, users domain.UserRepository) *SessionRegistry {
	return &SessionRegistry{tokens: tokens, users: users}
}

// TokensOfSession returns every ACTIVE token tagged with the session id.
func (r *SessionRegistry) TokensOfSession(ctx context.Context, sessionID string) ([]*domain.StoredToken, error) {
	return r.tokens.FindActiveBySession(ctx, sessionID)
}

// TokensOfUserExceptSession returns the user's ACTIVE tokens outside the
// kept session.
func (r *SessionRegistry) TokensOfUserExceptSession(ctx context.Context, userID, keepSessionID string) ([]*domain.StoredToken, error) {
	toks, err := r.tokens.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := toks[:0]
	for _, t := range toks {
		if t.SessionID != keepSessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

// CurrentSessionOf returns the user's current-session pointer, empty when
// cleared.
func (r *SessionRegistry) CurrentSessionOf(ctx context.Context, userID string) (string, error) {
	user, err := r.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.CurrentSessionID, nil
}

// IsSessionActive reports whether any ACTIVE token remains under the
// session id.
func (r *SessionRegistry) IsSessionActive(ctx context.Context, sessionID string) (bool, error) {
	toks, err := r.tokens.FindActiveBySession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return len(toks) > 0, nil
}

// ListSessions summarizes the user's distinct active sessions, newest
// first, with the metadata snapshot taken at issuance. The entry matching
// the user's current-session pointer is flagged.
func (r *SessionRegistry) ListSessions(ctx context.Context, username string) ([]*domain.SessionInfo, error) {
	user, err := r.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	toks, err := r.tokens.FindActiveByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.SessionInfo)
	for _, t := range toks {
		info, ok := byID[t.SessionID]
		if !ok {
			byID[t.SessionID] = &domain.SessionInfo{
				SessionID: t.SessionID,
				Current:   t.SessionID == user.CurrentSessionID,
				CreatedAt: t.CreatedAt,
				Metadata:  t.Metadata,
			}
			continue
		}
		if t.CreatedAt.Before(info.CreatedAt) {
			info.CreatedAt = t.CreatedAt
		}
	}

	sessions := make([]*domain.SessionInfo, 0, len(byID))
	for _, info := range byID {
		sessions = append(sessions, info)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coderepojon/authcore/cache"
	"github.com/coderepojon/authcore/domain"
	"github.com/coderepojon/authcore/errors"
	"github.com/coderepojon/authcore/internal/metrics"
	"github.com/coderepojon/authcore/live"
)

// TokenPair is what login and refresh hand back to the boundary.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// TokenService orchestrates issuance, rotation and revocation. It owns the
// login -> rotate -> revoke protocol; the boundary performs password and
// role checks before calling in.
type TokenService struct {
	tokens domain.TokenRepository
	users  domain.UserRepository
	codec  *Codec
	cache  cache.TokenCache
	broker *live.Broker
}

// NewTokenService creates a TokenService.
func NewTokenService(
	tokens domain.TokenRepository,
	users domain.UserRepository,
	codec *Codec,
	tokenCache cache.TokenCache,
	broker *live.Broker,
) *TokenService {
	return &TokenService{
		tokens: tokens,
		users:  users,
		codec:  codec,
		cache:  tokenCache,
		broker: broker,
	}
}

// Login issues a fresh ACCESS/REFRESH pair under a new session id for an
// already-verified user and moves the user's current-session pointer to the
// new id. Existing sessions are left alone: a login from a new device
// coexists with them, and per-session revocation is the deliberate control.
func (s *TokenService) Login(ctx context.Context, username string, meta *domain.TokenMetadata) (*TokenPair, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		log.Warn().Err(err).Str("username", username).Msg("login: user lookup failed")
		return nil, errors.ErrUnauthorized
	}

	sessionID := uuid.NewString()
	pair, err := s.issuePair(ctx, user, sessionID, meta)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetCurrentSession(ctx, user.ID, &sessionID); err != nil {
		return nil, err
	}

	metrics.LoginSuccessTotal.Inc()
	log.Info().Str("username", username).Str("sessionID", sessionID).Msg("login: session created")
	return pair, nil
}

// Refresh performs a single-use rotation: the presented refresh credential
// is exchanged for a brand-new pair under the same session id, and both
// presented credentials become invalid. Two concurrent calls with the same
// refresh credential cannot both succeed; the compare-and-flip on the store
// decides the winner.
func (s *TokenService) Refresh(ctx context.Context, accessValue, refreshValue string) (*TokenPair, error) {
	refreshClaims, err := s.codec.DecodeKind(refreshValue, domain.TokenKindRefresh)
	if err != nil {
		log.Warn().Err(err).Msg("refresh: refresh credential rejected")
		return nil, errors.ErrUnauthorized
	}
	refreshSubject := refreshClaims.Subject

	// Bind the pair: the access half may be expired (rotation exists to
	// replace it) but must verify and must name the same subject. This
	// blocks mixing credentials across accounts.
	accessSubject, err := s.codec.SubjectOf(accessValue)
	if err != nil {
		log.Warn().Err(err).Msg("refresh: access credential rejected")
		return nil, errors.ErrUnauthorized
	}
	if accessSubject != refreshSubject {
		log.Warn().Str("refreshSubject", refreshSubject).Msg("refresh: token user mismatch")
		return nil, errors.ErrUnauthorized
	}

	// Roles are re-derived from the identity store here, never copied from
	// the presented credential, so promotions and demotions take effect at
	// the next rotation.
	user, err := s.users.GetUserByUsername(ctx, refreshSubject)
	if err != nil {
		log.Warn().Err(err).Str("username", refreshSubject).Msg("refresh: user lookup failed")
		return nil, errors.ErrUnauthorized
	}

	active, err := s.tokens.ExistsActiveFor(ctx, refreshValue, user.ID)
	if err != nil {
		return nil, err
	}
	if !active {
		log.Warn().Str("username", user.Username).Msg("refresh: credential revoked or unknown")
		return nil, errors.ErrUnauthorized
	}

	old, err := s.tokens.FindByValue(ctx, refreshValue)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return nil, errors.ErrUnauthorized
		}
		return nil, err
	}

	// Linearization point. The loser of a concurrent double-refresh finds
	// the record already flipped and fails here, before anything is minted.
	won, err := s.tokens.RevokeActiveByValue(ctx, refreshValue)
	if err != nil {
		return nil, err
	}
	if !won {
		log.Warn().Str("username", user.Username).Msg("refresh: lost rotation race, credential already revoked")
		return nil, errors.ErrUnauthorized
	}
	accessFlipped, err := s.tokens.RevokeActiveByValue(ctx, accessValue)
	if err != nil {
		return nil, err
	}
	s.dropFromCache(ctx, refreshValue, accessValue)
	flipped := 1
	if accessFlipped {
		flipped++
	}
	metrics.TokensRevokedTotal.Add(float64(flipped))

	pair, err := s.issuePair(ctx, user, old.SessionID, old.Metadata)
	if err != nil {
		return nil, err
	}

	metrics.TokensRotatedTotal.Inc()
	log.Info().Str("username", user.Username).Str("sessionID", old.SessionID).Msg("refresh: pair rotated")
	return pair, nil
}

// RevokeSession revokes every ACTIVE token the user holds under sessionID
// and pushes the logout event to that session's live subscriber. When the
// revoked session is the user's current one, the pointer is cleared.
// Re-entrant: revoking an already-revoked session is a no-op.
func (s *TokenService) RevokeSession(ctx context.Context, username, sessionID string) error {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return errors.ErrUnauthorized
	}

	toks, err := s.tokens.FindActiveBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	owned := toks[:0]
	for _, t := range toks {
		if t.UserID == user.ID {
			owned = append(owned, t)
		}
	}
	if err := s.revoke(ctx, owned); err != nil {
		return err
	}

	if user.CurrentSessionID == sessionID {
		if err := s.users.SetCurrentSession(ctx, user.ID, nil); err != nil {
			return err
		}
	}

	// The push must track the token state: a session the caller does not
	// own revokes nothing, so its subscriber must not see a logout event.
	if len(owned) > 0 || sessionID == user.CurrentSessionID {
		s.broker.Publish(sessionID)
	}
	log.Info().Str("username", username).Str("sessionID", sessionID).Int("tokens", len(owned)).Msg("session revoked")
	return nil
}

// RevokeAllExceptCurrent revokes every session of the user other than the
// current one. The current-session pointer is left unchanged.
func (s *TokenService) RevokeAllExceptCurrent(ctx context.Context, username string) error {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return errors.ErrUnauthorized
	}

	toks, err := s.tokens.FindActiveByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	others := toks[:0]
	for _, t := range toks {
		if t.SessionID != user.CurrentSessionID {
			others = append(others, t)
		}
	}
	if err := s.revoke(ctx, others); err != nil {
		return err
	}

	s.broker.PublishMany(distinctSessions(others))
	log.Info().Str("username", username).Int("tokens", len(others)).Msg("all sessions except current revoked")
	return nil
}

// RevokeAllForUser revokes every ACTIVE token of the user, clears the
// current-session pointer and pushes the logout event to every distinct
// session found. Serves both self logout and administrative force-logout;
// the elevated-role check for the latter belongs to the boundary.
func (s *TokenService) RevokeAllForUser(ctx context.Context, username string) error {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return errors.ErrUnauthorized
	}

	toks, err := s.tokens.FindActiveByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := s.revoke(ctx, toks); err != nil {
		return err
	}
	if err := s.users.SetCurrentSession(ctx, user.ID, nil); err != nil {
		return err
	}

	s.broker.PublishMany(distinctSessions(toks))
	log.Info().Str("username", username).Int("tokens", len(toks)).Msg("all sessions revoked")
	return nil
}

// ValidateAccess authenticates a presented ACCESS credential: claims check
// through the codec, then the store's usability check, with a lookaside hit
// through the cache. Returns the cached view used by the request middleware.
func (s *TokenService) ValidateAccess(ctx context.Context, tokenValue string) (*cache.Entry, error) {
	claims, err := s.codec.DecodeKind(tokenValue, domain.TokenKindAccess)
	if err != nil {
		return nil, errors.ErrUnauthorized
	}

	if entry, cacheErr := s.cache.Get(ctx, tokenValue); cacheErr == nil {
		if time.Now().Before(entry.ExpiresAt) {
			return entry, nil
		}
		_ = s.cache.Delete(ctx, tokenValue)
	}

	tok, err := s.tokens.FindByValue(ctx, tokenValue)
	if err != nil {
		return nil, errors.ErrUnauthorized
	}
	if tok.Status != domain.TokenStatusActive || time.Now().After(tok.ExpiresAt) {
		return nil, errors.ErrUnauthorized
	}

	entry := &cache.Entry{
		TokenID:   tok.ID,
		UserID:    tok.UserID,
		Subject:   claims.Subject,
		SessionID: tok.SessionID,
		Kind:      tok.Kind,
		Roles:     claims.Roles,
		ExpiresAt: tok.ExpiresAt,
	}
	if err := s.cache.Set(ctx, tokenValue, entry); err != nil {
		log.Warn().Err(err).Msg("failed to cache access token")
	}
	return entry, nil
}

func (s *TokenService) issuePair(ctx context.Context, user *domain.User, sessionID string, meta *domain.TokenMetadata) (*TokenPair, error) {
	now := time.Now().UTC()

	accessValue, accessExp, err := s.codec.Issue(user.Username, domain.TokenKindAccess, user.Roles)
	if err != nil {
		return nil, err
	}
	refreshValue, refreshExp, err := s.codec.Issue(user.Username, domain.TokenKindRefresh, nil)
	if err != nil {
		return nil, err
	}

	records := []*domain.StoredToken{
		{
			ID:         uuid.NewString(),
			TokenValue: accessValue,
			UserID:     user.ID,
			Kind:       domain.TokenKindAccess,
			Status:     domain.TokenStatusActive,
			SessionID:  sessionID,
			ExpiresAt:  accessExp,
			CreatedAt:  now,
			Metadata:   meta,
		},
		{
			ID:         uuid.NewString(),
			TokenValue: refreshValue,
			UserID:     user.ID,
			Kind:       domain.TokenKindRefresh,
			Status:     domain.TokenStatusActive,
			SessionID:  sessionID,
			ExpiresAt:  refreshExp,
			CreatedAt:  now,
			Metadata:   meta,
		},
	}
	for _, rec := range records {
		if err := s.tokens.Store(ctx, rec); err != nil {
			return nil, err
		}
		metrics.TokensIssuedTotal.WithLabelValues(string(rec.Kind)).Inc()
	}

	return &TokenPair{
		AccessToken:  accessValue,
		RefreshToken: refreshValue,
		SessionID:    sessionID,
	}, nil
}

func (s *TokenService) revoke(ctx context.Context, toks []*domain.StoredToken) error {
	if len(toks) == 0 {
		return nil
	}
	if err := s.tokens.RevokeMany(ctx, toks); err != nil {
		return err
	}
	for _, t := range toks {
		_ = s.cache.Delete(ctx, t.TokenValue)
	}
	metrics.TokensRevokedTotal.Add(float64(len(toks)))
	return nil
}

func (s *TokenService) dropFromCache(ctx context.Context, values ...string) {
	for _, v := range values {
		if err := s.cache.Delete(ctx, v); err != nil {
			log.Warn().Err(err).Msg("failed to drop token from cache")
		}
	}
}

func distinctSessions(toks []*domain.StoredToken) []string {
	seen := make(map[string]struct{}, len(toks))
	ids := make([]string, 0, len(toks))
	for _, t := range toks {
		if _, ok := seen[t.SessionID]; ok {
			continue
		}
		seen[t.SessionID] = struct{}{}
		ids = append(ids, t.SessionID)
	}
	return ids
}

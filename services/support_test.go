package services

import (
	"context"
	"sync"
	"time"

	"github.com/coderepojon/authcore/domain"
	"github.com/coderepojon/authcore/errors"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestCodec(accessTTL, refreshTTL time.Duration) *Codec {
	codec, err := NewCodec(testSecret, "authcore-test", accessTTL, refreshTTL)
	if err != nil {
		panic(err)
	}
	return codec
}

// fakeTokenRepo is an in-memory TokenRepository with the same atomicity
// semantics the mongo implementation provides.
type fakeTokenRepo struct {
	mu     sync.Mutex
	byVal  map[string]*domain.StoredToken
	stored []*domain.StoredToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{byVal: make(map[string]*domain.StoredToken)}
}

func (r *fakeTokenRepo) Store(_ context.Context, token *domain.StoredToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byVal[token.TokenValue]; ok {
		return errors.ErrDuplicateToken
	}
	cp := *token
	r.byVal[token.TokenValue] = &cp
	r.stored = append(r.stored, &cp)
	return nil
}

func (r *fakeTokenRepo) FindByValue(_ context.Context, tokenValue string) (*domain.StoredToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.byVal[tokenValue]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *tok
	return &cp, nil
}

func (r *fakeTokenRepo) FindActiveBySession(_ context.Context, sessionID string) ([]*domain.StoredToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.StoredToken
	for _, tok := range r.stored {
		if tok.SessionID == sessionID && tok.Status == domain.TokenStatusActive {
			cp := *tok
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTokenRepo) FindActiveByUser(_ context.Context, userID string) ([]*domain.StoredToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []*domain.StoredToken
	for _, tok := range r.stored {
		if tok.UserID == userID && tok.Status == domain.TokenStatusActive && tok.ExpiresAt.After(now) {
			cp := *tok
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTokenRepo) RevokeMany(_ context.Context, tokens []*domain.StoredToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, tok := range tokens {
		if live, ok := r.byVal[tok.TokenValue]; ok && live.Status == domain.TokenStatusActive {
			live.Status = domain.TokenStatusRevoked
			live.RevokedAt = &now
		}
	}
	return nil
}

func (r *fakeTokenRepo) RevokeActiveByValue(_ context.Context, tokenValue string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.byVal[tokenValue]
	if !ok || tok.Status != domain.TokenStatusActive {
		return false, nil
	}
	now := time.Now()
	tok.Status = domain.TokenStatusRevoked
	tok.RevokedAt = &now
	return true, nil
}

func (r *fakeTokenRepo) ExistsActiveFor(_ context.Context, tokenValue, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.byVal[tokenValue]
	if !ok {
		return false, nil
	}
	return tok.UserID == userID &&
		tok.Status == domain.TokenStatusActive &&
		tok.ExpiresAt.After(time.Now()), nil
}

var _ domain.TokenRepository = (*fakeTokenRepo)(nil)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User // keyed by id
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		cp := *u
		r.users[u.ID] = &cp
	}
	return r
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (r *fakeUserRepo) SetCurrentSession(_ context.Context, userID string, sessionID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return errors.ErrNotFound
	}
	if sessionID == nil {
		u.CurrentSessionID = ""
	} else {
		u.CurrentSessionID = *sessionID
	}
	return nil
}

func (r *fakeUserRepo) setRoles(userID string, roles []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.Roles = roles
	}
}

var _ domain.UserRepository = (*fakeUserRepo)(nil)

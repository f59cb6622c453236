package echo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/coderepojon/authcore/cache"
	"github.com/coderepojon/authcore/domain"
	"github.com/coderepojon/authcore/errors"
	"github.com/coderepojon/authcore/internal/auth"
	"github.com/coderepojon/authcore/live"
	"github.com/coderepojon/authcore/services"
)

const testPassword = "password123"

// memoryTokenRepo is an in-memory TokenRepository with the same semantics
// the mongo implementation provides.
type memoryTokenRepo struct {
	mu     sync.Mutex
	byVal  map[string]*domain.StoredToken
	stored []*domain.StoredToken
}

func newMemoryTokenRepo() *memoryTokenRepo {
	return &memoryTokenRepo{byVal: make(map[string]*domain.StoredToken)}
}

func (r *memoryTokenRepo) Store(_ context.Context, token *domain.StoredToken) error {
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

func (r *memoryTokenRepo) FindByValue(_ context.Context, tokenValue string) (*domain.StoredToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.byVal[tokenValue]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *tok
	return &cp, nil
}

func (r *memoryTokenRepo) FindActiveBySession(_ context.Context, sessionID string) ([]*domain.StoredToken, error) {
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

func (r *memoryTokenRepo) FindActiveByUser(_ context.Context, userID string) ([]*domain.StoredToken, error) {
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

func (r *memoryTokenRepo) RevokeMany(_ context.Context, tokens []*domain.StoredToken) error {
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

func (r *memoryTokenRepo) RevokeActiveByValue(_ context.Context, tokenValue string) (bool, error) {
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

func (r *memoryTokenRepo) ExistsActiveFor(_ context.Context, tokenValue, userID string) (bool, error) {
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

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemoryUserRepo(users ...*domain.User) *memoryUserRepo {
	r := &memoryUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		cp := *u
		r.users[u.ID] = &cp
	}
	return r
}

func (r *memoryUserRepo) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memoryUserRepo) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
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

func (r *memoryUserRepo) SetCurrentSession(_ context.Context, userID string, sessionID *string) error {
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

type apiFixture struct {
	e      *echo.Echo
	svc    *services.TokenService
	broker *live.Broker
	tokens *memoryTokenRepo
	users  *memoryUserRepo
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	hasher := auth.NewBcryptPasswordHasher(bcrypt.MinCost)
	hash, err := hasher.Hash(testPassword)
	require.NoError(t, err)

	userRepo := newMemoryUserRepo(
		&domain.User{ID: "u-alice", Username: "alice", PasswordHash: hash, Roles: []string{domain.RoleUser}},
		&domain.User{ID: "u-bob", Username: "bob", PasswordHash: hash, Roles: []string{domain.RoleUser}},
		&domain.User{ID: "u-root", Username: "root", PasswordHash: hash, Roles: []string{domain.RoleUser, domain.RoleAdmin}},
	)
	tokenRepo := newMemoryTokenRepo()

	codec, err := services.NewCodec("0123456789abcdef0123456789abcdef", "authcore-test", 15*time.Minute, time.Hour)
	require.NoError(t, err)

	tokenCache := cache.NewMemoryTokenCache()
	t.Cleanup(func() { _ = tokenCache.Close() })
	broker := live.NewBroker()

	svc := services.NewTokenService(tokenRepo, userRepo, codec, tokenCache, broker)
	registry := services.NewSessionRegistry(tokenRepo, userRepo)

	e := echo.New()
	NewAuthAPI(userRepo, hasher, svc, registry, broker).RegisterRoutes(e)

	return &apiFixture{e: e, svc: svc, broker: broker, tokens: tokenRepo, users: userRepo}
}

func (f *apiFixture) do(method, target, body, bearer string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(rec *httptest.ResponseRecorder, v interface{}) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}

func (f *apiFixture) login(t *testing.T, username string) (access, refresh, sessionID string) {
	t.Helper()
	rec := f.do(http.MethodPost, "/api/auth/login",
		`{"username":"`+username+`","password":"`+testPassword+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		SessionID    string `json:"sessionId"`
	}
	require.NoError(t, decodeJSON(rec, &resp))
	return resp.AccessToken, resp.RefreshToken, resp.SessionID
}

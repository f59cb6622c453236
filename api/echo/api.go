// Package echo exposes the token lifecycle engine over HTTP: login,
// rotation, the logout family, administrative revocation and the SSE
// revocation stream.
package echo

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/coderepojon/authcore/api"
	"github.com/coderepojon/authcore/domain"
	"github.com/coderepojon/authcore/errors"
	"github.com/coderepojon/authcore/internal/metrics"
	"github.com/coderepojon/authcore/live"
	"github.com/coderepojon/authcore/middleware"
	"github.com/coderepojon/authcore/services"
)

// AuthAPI holds the boundary's dependencies.
type AuthAPI struct {
	users    domain.UserRepository
	hasher   services.PasswordHasher
	tokens   *services.TokenService
	registry *services.SessionRegistry
	broker   *live.Broker
}

// NewAuthAPI initializes the HTTP API.
func NewAuthAPI(
	users domain.UserRepository,
	hasher services.PasswordHasher,
	tokens *services.TokenService,
	registry *services.SessionRegistry,
	broker *live.Broker,
) *AuthAPI {
	return &AuthAPI{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		registry: registry,
		broker:   broker,
	}
}

// RegisterRoutes registers the auth, admin and SSE routes.
func (a *AuthAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/auth/login", a.LoginHandler)
	e.POST("/api/auth/refresh", a.RefreshHandler)

	authn := middleware.Authenticate(a.tokens)

	authed := e.Group("/api/auth", authn)
	authed.POST("/logout", a.LogoutHandler)
	authed.POST("/logout/session", a.LogoutSessionHandler)
	authed.POST("/logout/others", a.LogoutOthersHandler)
	authed.GET("/sessions", a.SessionsHandler)

	admin := e.Group("/api/admin", authn, middleware.RequireRole(domain.RoleAdmin))
	admin.POST("/revoke/:username", a.AdminRevokeHandler)

	e.GET("/api/sse/subscribe/:username/:sessionId", a.SubscribeHandler)
}

// LoginHandler verifies the password and issues a fresh credential pair
// under a new session id. The password check is the prior step the
// lifecycle service assumes has happened.
func (a *AuthAPI) LoginHandler(c echo.Context) error {
	var req api.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("malformed request body"))
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("username and password are required"))
	}

	ctx := c.Request().Context()
	user, err := a.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		log.Warn().Str("username", req.Username).Msg("login rejected: unknown user")
		metrics.LoginFailureTotal.Inc()
		return c.JSON(http.StatusUnauthorized, errors.NewUnauthorized())
	}
	if err := a.hasher.Verify(user.PasswordHash, req.Password); err != nil {
		log.Warn().Str("username", req.Username).Msg("login rejected: bad password")
		metrics.LoginFailureTotal.Inc()
		return c.JSON(http.StatusUnauthorized, errors.NewUnauthorized())
	}

	pair, err := a.tokens.Login(ctx, req.Username, a.enrichMetadata(c, req.Metadata))
	if err != nil {
		return a.mapError(c, err)
	}

	return c.JSON(http.StatusOK, api.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		SessionID:    pair.SessionID,
	})
}

// RefreshHandler rotates a presented pair.
func (a *AuthAPI) RefreshHandler(c echo.Context) error {
	var req api.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("malformed request body"))
	}
	if req.AccessToken == "" || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("both accessToken and refreshToken are required"))
	}

	pair, err := a.tokens.Refresh(c.Request().Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		return a.mapError(c, err)
	}

	return c.JSON(http.StatusOK, api.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		SessionID:    pair.SessionID,
	})
}

// LogoutHandler revokes every session of the caller and clears the
// current-session pointer.
func (a *AuthAPI) LogoutHandler(c echo.Context) error {
	username := middleware.Subject(c)
	if err := a.tokens.RevokeAllForUser(c.Request().Context(), username); err != nil {
		return a.mapError(c, err)
	}
	return c.JSON(http.StatusOK, api.MessageResponse{Message: "Logged out successfully"})
}

// LogoutSessionHandler revokes one named session of the caller.
func (a *AuthAPI) LogoutSessionHandler(c echo.Context) error {
	sessionID := strings.ReplaceAll(c.QueryParam("sessionId"), `"`, "")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("sessionId is required"))
	}

	username := middleware.Subject(c)
	if err := a.tokens.RevokeSession(c.Request().Context(), username, sessionID); err != nil {
		return a.mapError(c, err)
	}
	return c.JSON(http.StatusOK, api.MessageResponse{Message: "Session logged out successfully"})
}

// LogoutOthersHandler revokes every session of the caller except the
// current one.
func (a *AuthAPI) LogoutOthersHandler(c echo.Context) error {
	username := middleware.Subject(c)
	if err := a.tokens.RevokeAllExceptCurrent(c.Request().Context(), username); err != nil {
		return a.mapError(c, err)
	}
	return c.JSON(http.StatusOK, api.MessageResponse{Message: "All other sessions revoked successfully"})
}

// SessionsHandler lists the caller's distinct active sessions.
func (a *AuthAPI) SessionsHandler(c echo.Context) error {
	sessions, err := a.registry.ListSessions(c.Request().Context(), middleware.Subject(c))
	if err != nil {
		return a.mapError(c, err)
	}
	return c.JSON(http.StatusOK, api.SessionsResponse{Sessions: sessions})
}

// enrichMetadata fills request-derived fields the client did not supply and
// stamps the login method.
func (a *AuthAPI) enrichMetadata(c echo.Context, meta *domain.TokenMetadata) *domain.TokenMetadata {
	if meta == nil {
		meta = &domain.TokenMetadata{}
	}
	if meta.IPAddress == nil {
		ip := c.RealIP()
		meta.IPAddress = &ip
	}
	if meta.UserAgent == nil {
		if ua := c.Request().UserAgent(); ua != "" {
			meta.UserAgent = &ua
		}
	}
	if meta.LoginMethod == nil {
		method := "PASSWORD"
		meta.LoginMethod = &method
	}
	return meta
}

// mapError collapses authorization-class failures into the opaque 401 body
// and reports everything else as a server error.
func (a *AuthAPI) mapError(c echo.Context, err error) error {
	if errors.IsAuthFailure(err) {
		return c.JSON(http.StatusUnauthorized, errors.NewUnauthorized())
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, errors.NewServerError("internal error"))
}

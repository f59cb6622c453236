// Package middleware holds the echo middleware for bearer-token
// authentication and role guards.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/coderepojon/authcore/errors"
	"github.com/coderepojon/authcore/services"
)

// Context keys set by Authenticate.
const (
	ContextKeySubject = "auth.subject"
	ContextKeyUserID  = "auth.userID"
	ContextKeyRoles   = "auth.roles"
	ContextKeySession = "auth.sessionID"
	ContextKeyToken   = "auth.token"
)

// Authenticate validates the Authorization bearer credential on each request
// and attaches the authenticated identity to the echo context. Every
// failure, whatever the internal reason, is answered with the same opaque
// 401 body.
func Authenticate(tokens *services.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errors.NewUnauthorized())
			}

			entry, err := tokens.ValidateAccess(c.Request().Context(), raw)
			if err != nil {
				log.Debug().Err(err).Msg("request credential rejected")
				return c.JSON(http.StatusUnauthorized, errors.NewUnauthorized())
			}

			c.Set(ContextKeySubject, entry.Subject)
			c.Set(ContextKeyUserID, entry.UserID)
			c.Set(ContextKeyRoles, entry.Roles)
			c.Set(ContextKeySession, entry.SessionID)
			c.Set(ContextKeyToken, raw)
			return next(c)
		}
	}
}

// RequireRole guards a route group with a role check against the
// authenticated credential's role claims. Must run after Authenticate.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roles, _ := c.Get(ContextKeyRoles).([]string)
			for _, r := range roles {
				if r == role {
					return next(c)
				}
			}
			log.Warn().Str("required", role).Str("subject", Subject(c)).Msg("role check failed")
			return c.JSON(http.StatusForbidden, errors.NewForbidden("insufficient role"))
		}
	}
}

// Subject returns the authenticated subject, empty when unauthenticated.
func Subject(c echo.Context) string {
	s, _ := c.Get(ContextKeySubject).(string)
	return s
}

// SessionID returns the session id of the presented credential.
func SessionID(c echo.Context) string {
	s, _ := c.Get(ContextKeySession).(string)
	return s
}

func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", errors.ErrUnauthorized
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", errors.ErrUnauthorized
	}
	return token, nil
}

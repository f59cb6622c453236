package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/coderepojon/authcore/api"
	"github.com/coderepojon/authcore/errors"
	"github.com/coderepojon/authcore/middleware"
)

// AdminRevokeHandler revokes every token of the named user. Admin only.
func (a *AuthAPI) AdminRevokeHandler(c echo.Context) error {
	username := c.Param("username")
	if username == "" {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("username is required"))
	}

	if err := a.tokens.RevokeAllForUser(c.Request().Context(), username); err != nil {
		return a.mapError(c, err)
	}

	log.Info().
		Str("target", username).
		Str("admin", middleware.Subject(c)).
		Msg("admin revoked all tokens for user")

	return c.JSON(http.StatusOK, api.MessageResponse{Message: "Revoked all tokens for user: " + username})
}

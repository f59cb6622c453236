package echo

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/coderepojon/authcore/errors"
	"github.com/coderepojon/authcore/live"
)

// SubscribeHandler opens a server-sent-events stream that emits a single
// logout event when the named session is revoked. The access credential is
// carried in the token query parameter because EventSource cannot set
// headers.
func (a *AuthAPI) SubscribeHandler(c echo.Context) error {
	username := c.Param("username")
	sessionID := c.Param("sessionId")
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusUnauthorized, errors.NewUnauthorized())
	}

	entry, err := a.tokens.ValidateAccess(c.Request().Context(), token)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errors.NewUnauthorized())
	}
	if entry.Subject != username {
		return c.JSON(http.StatusForbidden, errors.NewForbidden("cannot subscribe for another user"))
	}

	handle := a.broker.Subscribe(sessionID)
	defer a.broker.Unsubscribe(handle)

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set(echo.HeaderCacheControl, "no-cache")
	h.Set(echo.HeaderConnection, "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	log.Debug().Str("session_id", sessionID).Str("username", username).Msg("sse subscriber attached")

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-handle.Events():
			if !ok {
				return nil
			}
			if err := writeEvent(c, ev); err != nil {
				return nil
			}
		case <-handle.Done():
			// The event channel may still hold the revocation notice;
			// drain it before closing the stream.
			select {
			case ev, ok := <-handle.Events():
				if ok {
					_ = writeEvent(c, ev)
				}
			default:
			}
			return nil
		}
	}
}

func writeEvent(c echo.Context, ev live.Event) error {
	if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", ev.Name, ev.Data); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}

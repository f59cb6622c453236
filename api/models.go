// Package api holds the request and response shapes of the HTTP boundary.
package api

import "github.com/coderepojon/authcore/domain"

// LoginRequest carries the credentials plus whatever device metadata the
// client chooses to report. Fields the client omits are filled from the
// request where possible (IP address, user agent).
type LoginRequest struct {
	Username string                `json:"username"`
	Password string                `json:"password"`
	Metadata *domain.TokenMetadata `json:"metadata,omitempty"`
}

// RefreshRequest presents the credential pair for rotation.
type RefreshRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse returns an issued or rotated pair with its session id.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	SessionID    string `json:"sessionId"`
}

// MessageResponse is the generic success body.
type MessageResponse struct {
	Message string `json:"message"`
}

// SessionsResponse lists the caller's distinct active sessions.
type SessionsResponse struct {
	Sessions []*domain.SessionInfo `json:"sessions"`
}

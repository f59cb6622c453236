package domain

import "time"

// TokenKind distinguishes the two credential kinds minted by the codec.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "ACCESS"
	TokenKindRefresh TokenKind = "REFRESH"
)

// TokenStatus is the lifecycle state of a stored token. The only legal
// transition is ACTIVE -> REVOKED.
type TokenStatus string

const (
	TokenStatusActive  TokenStatus = "ACTIVE"
	TokenStatusRevoked TokenStatus = "REVOKED"
)

// StoredToken is the persisted record of an issued credential. Records are
// never deleted; revocation flips Status and sets RevokedAt.
type StoredToken struct {
	ID         string         `bson:"_id,omitempty" json:"id"`
	TokenValue string         `bson:"token_value" json:"-"`
	UserID     string         `bson:"user_id" json:"userId"`
	Kind       TokenKind      `bson:"kind" json:"kind"`
	Status     TokenStatus    `bson:"status" json:"status"`
	SessionID  string         `bson:"session_id" json:"sessionId"`
	ExpiresAt  time.Time      `bson:"expires_at" json:"expiresAt"`
	CreatedAt  time.Time      `bson:"created_at" json:"createdAt"`
	RevokedAt  *time.Time     `bson:"revoked_at,omitempty" json:"revokedAt,omitempty"`
	Metadata   *TokenMetadata `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// TokenMetadata is the optional request snapshot attached at issuance.
// Every field is optional; callers populate only what they have. The
// snapshot is immutable after issuance and carried over unchanged when a
// pair is rotated.
type TokenMetadata struct {
	DeviceID        *string  `bson:"device_id,omitempty" json:"deviceId,omitempty"`
	Device          *string  `bson:"device,omitempty" json:"device,omitempty"`
	Browser         *string  `bson:"browser,omitempty" json:"browser,omitempty"`
	OS              *string  `bson:"os,omitempty" json:"os,omitempty"`
	IPAddress       *string  `bson:"ip_address,omitempty" json:"ipAddress,omitempty"`
	Country         *string  `bson:"country,omitempty" json:"country,omitempty"`
	City            *string  `bson:"city,omitempty" json:"city,omitempty"`
	UserAgent       *string  `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
	LoginMethod     *string  `bson:"login_method,omitempty" json:"loginMethod,omitempty"`
	MFAUsed         *bool    `bson:"mfa_used,omitempty" json:"mfaUsed,omitempty"`
	MFAType         *string  `bson:"mfa_type,omitempty" json:"mfaType,omitempty"`
	IsNewDevice     *bool    `bson:"is_new_device,omitempty" json:"isNewDevice,omitempty"`
	IsVPNOrProxy    *bool    `bson:"is_vpn_or_proxy,omitempty" json:"isVpnOrProxy,omitempty"`
	NetworkProvider *string  `bson:"network_provider,omitempty" json:"networkProvider,omitempty"`
	RiskScore       *float64 `bson:"risk_score,omitempty" json:"riskScore,omitempty"`
}

// SessionInfo is a per-session view derived from the stored tokens of one
// user: one entry per distinct active session id, with the metadata snapshot
// taken at issuance.
type SessionInfo struct {
	SessionID string         `json:"sessionId"`
	Current   bool           `json:"current"`
	CreatedAt time.Time      `json:"createdAt"`
	Metadata  *TokenMetadata `json:"metadata,omitempty"`
}

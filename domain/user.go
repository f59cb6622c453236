package domain

import "time"

// Role names used in access token claims and route guards.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User is the identity record this engine references but does not own.
// CurrentSessionID is the single "current session" pointer: overwritten on
// each fresh login, cleared on full logout. Historical tokens keep the
// session id they were issued under even after the pointer moves.
type User struct {
	ID               string    `bson:"_id,omitempty" json:"id"`
	Username         string    `bson:"username" json:"username"`
	PasswordHash     string    `bson:"password_hash" json:"-"`
	CurrentSessionID string    `bson:"current_session_id,omitempty" json:"currentSessionId,omitempty"`
	Roles            []string  `bson:"roles" json:"roles"`
	CreatedAt        time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasRole reports whether the user carries the given role name.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

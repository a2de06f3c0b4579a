package domain

// Identity is the current authenticated user. The zero value is anonymous.
type Identity struct {
	UserID string `json:"user_id,omitempty"`
}

var Anonymous = Identity{}

func (i Identity) IsAnonymous() bool {
	return i.UserID == ""
}

func (i Identity) String() string {
	if i.IsAnonymous() {
		return "anonymous"
	}
	return i.UserID
}

// IdentityChanged is published by the session provider on every sign-in,
// sign-out and session restore.
type IdentityChanged struct {
	Previous Identity
	Current  Identity
}

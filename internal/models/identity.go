package models

// IdentityKind distinguishes anonymous guests from authenticated users.
type IdentityKind string

const (
	IdentityGuest         IdentityKind = "guest"
	IdentityAuthenticated IdentityKind = "authenticated"
)

// Identity is the acting principal that owns one task snapshot. Key is
// the session marker for guests and the account identifier (email) for
// authenticated users.
type Identity struct {
	Kind IdentityKind `json:"kind"`
	Key  string       `json:"key"`
}

// GuestIdentity returns a guest identity bound to a session marker.
func GuestIdentity(sessionKey string) Identity {
	return Identity{Kind: IdentityGuest, Key: sessionKey}
}

// AuthenticatedIdentity returns an identity for an account key.
func AuthenticatedIdentity(accountKey string) Identity {
	return Identity{Kind: IdentityAuthenticated, Key: accountKey}
}

// IsGuest reports whether the identity is an anonymous guest.
func (i Identity) IsGuest() bool {
	return i.Kind == IdentityGuest
}

// DefaultMood is the initial mood value of a new session.
const DefaultMood = 50

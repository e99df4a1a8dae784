package domain

// IdentityKind discriminates the two classes of actor that can place pixels.
type IdentityKind string

const (
	// IdentityUser marks a registered account resolved from upstream auth.
	IdentityUser IdentityKind = "user"
	// IdentityAnon marks an anonymous visitor tracked by a session token.
	IdentityAnon IdentityKind = "anon"
)

// Identity is the resolved actor behind a request: a registered user or an
// anonymous session. The kind tag travels with the value through quota
// accounting and attribution, so the two populations stay distinct even when
// their raw identifiers happen to collide.
type Identity struct {
	Kind IdentityKind
	ID   string
}

// RegisteredIdentity builds the identity for an authenticated user id.
func RegisteredIdentity(userID string) Identity {
	return Identity{Kind: IdentityUser, ID: userID}
}

// AnonymousIdentity builds the identity for an anonymous session token.
func AnonymousIdentity(token string) Identity {
	return Identity{Kind: IdentityAnon, ID: token}
}

// IsZero reports whether the identity has not been resolved.
func (i Identity) IsZero() bool { return i.Kind == "" || i.ID == "" }

// Key returns the canonical subject string used as the quota and idempotency
// storage key: "user:<id>" or "anon:<token>".
func (i Identity) Key() string { return string(i.Kind) + ":" + i.ID }

// Display returns the attribution label exposed in API payloads. Registered
// users are shown by user id; anonymous session tokens are truncated so the
// full token never leaves the server.
func (i Identity) Display() string {
	switch i.Kind {
	case IdentityUser:
		return i.ID
	case IdentityAnon:
		if len(i.ID) > 8 {
			return "anon-" + i.ID[:8]
		}
		return "anon-" + i.ID
	default:
		return ""
	}
}

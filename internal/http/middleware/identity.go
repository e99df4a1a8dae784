// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the identity resolver: every inbound request is mapped
// to exactly one tagged Identity before it reaches a handler. Registered
// users arrive with a user id already validated by the upstream auth
// collaborator; everyone else gets (or keeps) an anonymous session token.
//
// Rules:
//   - A registered user always resolves to the same Registered{user_id}.
//   - An anonymous visitor resolves to a stable Anonymous{session_token} for
//     the lifetime of their session cookie. The token is a UUIDv4: minted
//     once, reused on every later request, and cryptographically random so
//     two visitors can never share one.
//   - The resolved Identity is stashed in the Gin context; handlers read it
//     with IdentityFrom and never reconstruct it themselves.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-pixelwar-backend/internal/domain"
)

const (
	// HeaderUserID carries the registered user id set by the upstream auth
	// layer. The core trusts it as already validated.
	HeaderUserID = "X-User-ID"

	// SessionCookieName is the anonymous session cookie.
	SessionCookieName = "pw_session"

	// ctxKeyIdentity is the Gin context key holding the resolved Identity.
	ctxKeyIdentity = "identity"
)

// IdentityOptions configures the identity resolver.
type IdentityOptions struct {
	// CookieMaxAge is the anonymous session cookie lifetime in seconds.
	// Values <= 0 default to 30 days.
	CookieMaxAge int
	// CookieSecure marks the session cookie Secure (HTTPS-only deployments).
	CookieSecure bool
}

// IdentityResolver returns middleware that resolves every request to a tagged
// Identity and stashes it in the Gin context. It also mirrors registered user
// ids under the "userID" key so logging and rate limiting can reuse them.
func IdentityResolver(opts IdentityOptions) gin.HandlerFunc {
	maxAge := opts.CookieMaxAge
	if maxAge <= 0 {
		maxAge = int((30 * 24 * 60 * 60)) // 30 days
	}
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" {
			who := domain.RegisteredIdentity(uid)
			c.Set(ctxKeyIdentity, who)
			c.Set("userID", uid)
			c.Next()
			return
		}

		token := ""
		if cookie, err := c.Request.Cookie(SessionCookieName); err == nil {
			token = strings.TrimSpace(cookie.Value)
		}
		// Reject cookies that are not UUIDs (tampered or legacy values) and
		// mint a fresh session instead of trusting them.
		if token != "" {
			if _, err := uuid.Parse(token); err != nil {
				token = ""
			}
		}
		if token == "" {
			token = uuid.NewString()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     SessionCookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   maxAge,
				HttpOnly: true,
				Secure:   opts.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		who := domain.AnonymousIdentity(token)
		c.Set(ctxKeyIdentity, who)
		c.Next()
	}
}

// IdentityFrom returns the Identity resolved for this request. The second
// return value is false when the resolver did not run (e.g., unit tests
// exercising a bare engine).
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(ctxKeyIdentity)
	if !ok {
		return domain.Identity{}, false
	}
	who, ok := v.(domain.Identity)
	return who, ok && !who.IsZero()
}

// KeyByIdentityOrIP returns a rate-limit keyFunc that buckets by the resolved
// Identity's canonical subject and falls back to the client IP when the
// resolver has not run.
func KeyByIdentityOrIP() keyFunc {
	return func(c *gin.Context) string {
		if who, ok := IdentityFrom(c); ok {
			return who.Key()
		}
		return "ip:" + c.ClientIP()
	}
}

package session

import (
	"fmt"
	"net/http"
	"strings"

	"examgate.org/internal/authz"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "

	// CookieName carries the session token on page navigations, where API
	// clients send a bearer header instead.
	CookieName = "examgate_session"
)

var _ authz.SessionResolver = (*Verifier)(nil)

// Resolve implements authz.SessionResolver. It looks for a bearer token
// first and falls back to the session cookie. Absent, malformed, expired and
// revoked credentials all resolve to an anonymous request; only a revocation
// store outage is an error, so the guard fails closed instead of treating
// the outage as "logged out".
func (v *Verifier) Resolve(r *http.Request) (*authz.Session, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return nil, nil
	}
	claims, err := v.Parse(token)
	if err != nil {
		return nil, nil
	}
	if v.revocation != nil {
		revoked, err := v.revocation.IsRevoked(r.Context(), claims.SessionID)
		if err != nil {
			return nil, fmt.Errorf("check revocation for session %s: %w", claims.SessionID, err)
		}
		if revoked {
			return nil, nil
		}
	}
	return &authz.Session{
		ID:        claims.SessionID,
		UserID:    claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func tokenFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header != "" {
		if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
			return ""
		}
		return strings.TrimSpace(header[len(bearer):])
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

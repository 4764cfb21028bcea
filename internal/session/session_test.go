package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevocations) Revoke(_ context.Context, sessionID string, _ time.Time) error {
	if f.revoked == nil {
		f.revoked = map[string]bool{}
	}
	f.revoked[sessionID] = true
	return f.err
}

func (f *fakeRevocations) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.revoked[sessionID], nil
}

func newVerifier(t *testing.T, opts ...VerifierOption) *Verifier {
	t.Helper()
	v, err := NewVerifier("test-secret", opts...)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return v
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	v := newVerifier(t)

	token, claims, err := v.Issue("u1", 30*time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if claims.SessionID == "" {
		t.Fatalf("expected session id")
	}

	parsed, err := v.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Subject != "u1" {
		t.Fatalf("unexpected subject: %s", parsed.Subject)
	}
	if parsed.SessionID != claims.SessionID {
		t.Fatalf("session id not preserved")
	}
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	v := newVerifier(t)

	if _, err := v.Parse(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty input")
	}
	if _, err := v.Parse("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage")
	}

	other := newVerifier(t, WithIssuer("someone-else"))
	token, _, err := other.Issue("u1", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := v.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected issuer mismatch rejection")
	}

	past := time.Now().Add(-2 * time.Hour)
	frozen := newVerifier(t, WithClock(func() time.Time { return past }))
	expired, _, err := frozen.Issue("u1", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := v.Parse(expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token rejection")
	}
}

func TestResolveBearerHeader(t *testing.T) {
	v := newVerifier(t)
	token, _, _ := v.Issue("u1", time.Minute)

	r := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	sess, err := v.Resolve(r)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sess == nil || sess.UserID != "u1" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if sess.ExpiresAt.Before(sess.IssuedAt) {
		t.Fatalf("inconsistent session timestamps: %+v", sess)
	}
}

func TestResolveSessionCookie(t *testing.T) {
	v := newVerifier(t)
	token, _, _ := v.Issue("u2", time.Minute)

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	sess, err := v.Resolve(r)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sess == nil || sess.UserID != "u2" {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestResolveAnonymousVariants(t *testing.T) {
	v := newVerifier(t)

	cases := []struct {
		name string
		mod  func(r *http.Request)
	}{
		{"no credentials", func(_ *http.Request) {}},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }},
		{"garbage bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			tc.mod(r)
			sess, err := v.Resolve(r)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if sess != nil {
				t.Fatalf("expected anonymous, got %+v", sess)
			}
		})
	}
}

func TestResolveRevokedSessionIsAnonymous(t *testing.T) {
	revocations := &fakeRevocations{}
	v := newVerifier(t, WithRevocationStore(revocations))

	token, claims, _ := v.Issue("u1", time.Minute)
	if err := revocations.Revoke(context.Background(), claims.SessionID, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	sess, err := v.Resolve(r)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sess != nil {
		t.Fatalf("revoked session must resolve as anonymous")
	}
}

func TestResolveRevocationOutageIsAnError(t *testing.T) {
	outage := errors.New("redis: connection pool timeout")
	v := newVerifier(t, WithRevocationStore(&fakeRevocations{err: outage}))

	token, _, _ := v.Issue("u1", time.Minute)
	r := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	sess, err := v.Resolve(r)
	if !errors.Is(err, outage) {
		t.Fatalf("expected outage error, got %v", err)
	}
	if sess != nil {
		t.Fatalf("outage must not yield a session")
	}
}

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"examgate.org/internal/authz"
	"examgate.org/internal/stream"
)

type stubResolver struct {
	session *authz.Session
	err     error
}

func (s *stubResolver) Resolve(*http.Request) (*authz.Session, error) {
	return s.session, s.err
}

type stubStore struct {
	base     authz.UserBase
	baseErr  error
	roles    []string
	perms    []string
	grantErr error

	baseCalls int
}

func (s *stubStore) GetUserBase(ctx context.Context, userID string) (authz.UserBase, error) {
	s.baseCalls++
	if s.baseErr != nil {
		return authz.UserBase{}, s.baseErr
	}
	return s.base, nil
}

func (s *stubStore) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	if s.grantErr != nil {
		return nil, s.grantErr
	}
	return s.roles, nil
}

func (s *stubStore) GetUserPermissions(ctx context.Context, userID string) ([]string, error) {
	if s.grantErr != nil {
		return nil, s.grantErr
	}
	return s.perms, nil
}

func activeSession() *authz.Session {
	now := time.Now()
	return &authz.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func newTestAPI(t *testing.T, resolver authz.SessionResolver, store authz.GrantStore) *API {
	t.Helper()
	builder, err := authz.NewBuilder(store)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	guard, err := authz.NewGuard(resolver, builder)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	return New(Options{
		Guard:     guard,
		Decisions: stream.New(),
		Version:   "test",
		LoginURL:  "/login",
	})
}

func doRequest(api *API, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestRequireAPIWithoutSessionIsUnauthorized(t *testing.T) {
	store := &stubStore{}
	api := newTestAPI(t, &stubResolver{}, store)

	rec := doRequest(api, httptest.NewRequest(http.MethodGet, "/v1/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["kind"] != "unauthenticated" {
		t.Fatalf("kind = %v, want unauthenticated", body["kind"])
	}
	if body["request_id"] == "" || body["request_id"] == nil {
		t.Fatalf("request_id missing from denial body: %v", body)
	}
	if store.baseCalls != 0 {
		t.Fatalf("anonymous request reached the grant store (%d reads)", store.baseCalls)
	}
}

func TestRequireAPISuspendedAccountIsForbidden(t *testing.T) {
	store := &stubStore{
		base:  authz.UserBase{EmailVerified: true, Status: authz.StatusSuspended},
		perms: []string{authz.PermExamRead},
	}
	api := newTestAPI(t, &stubResolver{session: activeSession()}, store)

	rec := doRequest(api, httptest.NewRequest(http.MethodGet, "/v1/exams", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if body := decodeBody(t, rec); body["kind"] != "account_suspended" {
		t.Fatalf("kind = %v, want account_suspended", body["kind"])
	}
}

func TestRequireAPIMissingPermissionIsForbidden(t *testing.T) {
	store := &stubStore{
		base:  authz.UserBase{EmailVerified: true, Status: authz.StatusActive},
		roles: []string{"student"},
	}
	api := newTestAPI(t, &stubResolver{session: activeSession()}, store)

	rec := doRequest(api, httptest.NewRequest(http.MethodGet, "/v1/exams", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if body := decodeBody(t, rec); body["kind"] != "forbidden" {
		t.Fatalf("kind = %v, want forbidden", body["kind"])
	}
}

func TestRequireAPIGrantReachesHandler(t *testing.T) {
	store := &stubStore{
		base:  authz.UserBase{EmailVerified: true, Status: authz.StatusActive},
		roles: []string{"student"},
		perms: []string{authz.PermExamRead},
	}
	api := newTestAPI(t, &stubResolver{session: activeSession()}, store)

	rec := doRequest(api, httptest.NewRequest(http.MethodGet, "/v1/me", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["user_id"] != "user-1" {
		t.Fatalf("user_id = %v, want user-1", body["user_id"])
	}
	if body["status"] != "active" {
		t.Fatalf("status = %v, want active", body["status"])
	}
}

func TestRequireAPIStoreOutageIsServerError(t *testing.T) {
	store := &stubStore{baseErr: context.DeadlineExceeded}
	api := newTestAPI(t, &stubResolver{session: activeSession()}, store)

	rec := doRequest(api, httptest.NewRequest(http.MethodGet, "/v1/me", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500: an outage must never grant or deny", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "authorization unavailable" {
		t.Fatalf("error = %v, want authorization unavailable", body["error"])
	}
}

func TestRequirePageUnauthenticatedRedirects(t *testing.T) {
	api := newTestAPI(t, &stubResolver{}, &stubStore{})

	rec := doRequest(api, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?reason=unauthenticated" {
		t.Fatalf("Location = %q", loc)
	}
}

func TestRequirePageDenialRedirectsWithoutContent(t *testing.T) {
	store := &stubStore{
		base:  authz.UserBase{EmailVerified: true, Status: authz.StatusActive},
		roles: []string{"student"},
	}
	api := newTestAPI(t, &stubResolver{session: activeSession()}, store)

	rec := doRequest(api, httptest.NewRequest(http.MethodGet, "/exams/manage", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?reason=forbidden" {
		t.Fatalf("Location = %q", loc)
	}
	if strings.Contains(rec.Body.String(), "Manage Exams") {
		t.Fatal("denied page response leaked protected content")
	}
}

func TestRequirePageCustomRedirectTarget(t *testing.T) {
	store := &stubStore{
		base: authz.UserBase{EmailVerified: true, Status: authz.StatusActive},
	}
	api := newTestAPI(t, &stubResolver{session: activeSession()}, store)

	handler := api.RequirePage(authz.Policy{
		Perms:             []string{authz.PermExamPublish},
		ForbiddenRedirect: "/dashboard",
	}, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run on denial")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/somewhere", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard?reason=forbidden" {
		t.Fatalf("Location = %q", loc)
	}
}

func TestRequirePageOutageIsServerError(t *testing.T) {
	store := &stubStore{baseErr: context.DeadlineExceeded}
	api := newTestAPI(t, &stubResolver{session: activeSession()}, store)

	rec := doRequest(api, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if rec.Header().Get("Location") != "" {
		t.Fatal("outage must not redirect")
	}
}

func TestRequirePageGrantRendersContent(t *testing.T) {
	store := &stubStore{
		base:  authz.UserBase{EmailVerified: true, Status: authz.StatusActive},
		roles: []string{"student"},
	}
	api := newTestAPI(t, &stubResolver{session: activeSession()}, store)

	rec := doRequest(api, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Signed in as user-1") {
		t.Fatalf("dashboard body missing user line: %s", rec.Body.String())
	}
}

func TestRequireAPIResolverOutageIsServerError(t *testing.T) {
	api := newTestAPI(t, &stubResolver{err: context.DeadlineExceeded}, &stubStore{})

	rec := doRequest(api, httptest.NewRequest(http.MethodGet, "/v1/me", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

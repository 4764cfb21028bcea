package httpapi

import (
	"net/http"
	"net/url"

	"examgate.org/internal/audit"
	"examgate.org/internal/authz"
	"examgate.org/internal/obs"
	"examgate.org/internal/stream"
)

const (
	surfaceAPI  = "api"
	surfacePage = "page"

	outcomeGranted = "granted"
	outcomeDenied  = "denied"
	outcomeError   = "error"
)

// denialMessage maps a denial reason to the human-readable error body.
func denialMessage(reason authz.Reason) string {
	switch reason {
	case authz.ReasonUnauthenticated:
		return "authentication required"
	case authz.ReasonEmailNotVerified:
		return "email address is not verified"
	case authz.ReasonAccountSuspended:
		return "account is suspended"
	case authz.ReasonAccountDeleted:
		return "account is deleted"
	default:
		return "insufficient permissions"
	}
}

func denialStatus(reason authz.Reason) int {
	if reason == authz.ReasonUnauthenticated {
		return http.StatusUnauthorized
	}
	return http.StatusForbidden
}

// RequireAPI wraps next with the API guard. Denials produce a JSON
// error body carrying a machine-readable kind; infrastructure failures
// produce 500 and never a grant.
func (a *API) RequireAPI(policy authz.Policy, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.guard == nil {
			writeError(w, r, http.StatusServiceUnavailable, "authorization unavailable")
			return
		}
		grant, denial, err := a.guard.Authorize(r, policy)
		if err != nil {
			a.recordDecision(r, surfaceAPI, outcomeError, "", "")
			audit.LogEvent(r.Context(), "authz.error", map[string]any{
				"surface": surfaceAPI,
				"path":    r.URL.Path,
				"error":   err.Error(),
			})
			writeError(w, r, http.StatusInternalServerError, "authorization unavailable")
			return
		}
		if denial != nil {
			a.recordDecision(r, surfaceAPI, outcomeDenied, string(denial.Reason), "")
			audit.LogEvent(r.Context(), "authz.denied", map[string]any{
				"surface": surfaceAPI,
				"path":    r.URL.Path,
				"reason":  string(denial.Reason),
			})
			payload := map[string]any{
				"error": denialMessage(denial.Reason),
				"kind":  string(denial.Reason),
			}
			if rid := RequestIDFromContext(r.Context()); rid != "" {
				payload["request_id"] = rid
			}
			writeJSON(w, denialStatus(denial.Reason), payload)
			return
		}
		ctx := authz.ContextWithGrant(r.Context(), grant)
		a.recordDecision(r, surfaceAPI, outcomeGranted, "", grant.Session.UserID)
		audit.LogEvent(ctx, "authz.granted", map[string]any{
			"surface": surfaceAPI,
			"path":    r.URL.Path,
		})
		next(w, r.WithContext(ctx))
	}
}

// RequirePage wraps next with the page guard. Denials redirect the
// browser instead of rendering an error body; the reason travels as an
// opaque query parameter so the landing page can explain the bounce.
func (a *API) RequirePage(policy authz.Policy, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.guard == nil {
			http.Error(w, "authorization unavailable", http.StatusServiceUnavailable)
			return
		}
		grant, denial, err := a.guard.Authorize(r, policy)
		if err != nil {
			a.recordDecision(r, surfacePage, outcomeError, "", "")
			audit.LogEvent(r.Context(), "authz.error", map[string]any{
				"surface": surfacePage,
				"path":    r.URL.Path,
				"error":   err.Error(),
			})
			http.Error(w, "authorization unavailable", http.StatusInternalServerError)
			return
		}
		if denial != nil {
			a.recordDecision(r, surfacePage, outcomeDenied, string(denial.Reason), "")
			audit.LogEvent(r.Context(), "authz.denied", map[string]any{
				"surface": surfacePage,
				"path":    r.URL.Path,
				"reason":  string(denial.Reason),
			})
			http.Redirect(w, r, a.redirectTarget(policy, denial.Reason), http.StatusFound)
			return
		}
		ctx := authz.ContextWithGrant(r.Context(), grant)
		a.recordDecision(r, surfacePage, outcomeGranted, "", grant.Session.UserID)
		audit.LogEvent(ctx, "authz.granted", map[string]any{
			"surface": surfacePage,
			"path":    r.URL.Path,
		})
		next(w, r.WithContext(ctx))
	}
}

// redirectTarget resolves the denial redirect for a page guard,
// preserving any query the target already carries.
func (a *API) redirectTarget(policy authz.Policy, reason authz.Reason) string {
	target := policy.ForbiddenRedirect
	if target == "" {
		target = a.loginURL
	}
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: a.loginURL}
	}
	q := u.Query()
	q.Set("reason", string(reason))
	u.RawQuery = q.Encode()
	return u.String()
}

func (a *API) recordDecision(r *http.Request, surface, outcome, reason, userID string) {
	obs.ObserveDecision(surface, outcome, reason)
	if a.decisions == nil {
		return
	}
	a.decisions.Publish(stream.DecisionEvent{
		RequestID: RequestIDFromContext(r.Context()),
		UserID:    userID,
		Surface:   surface,
		Path:      r.URL.Path,
		Outcome:   outcome,
		Reason:    reason,
	})
}

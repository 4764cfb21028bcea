package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"examgate.org/internal/audit"
	"examgate.org/internal/authz"
)

// handleMe returns the caller's authorization profile. UIs use it to
// decide which controls to render; the server-side guards remain the
// enforcement point regardless of what the client shows.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	grant, ok := authz.GrantFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "grant missing from context")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":        grant.Session.UserID,
		"email_verified": grant.Profile.EmailVerified,
		"status":         string(grant.Profile.Status),
		"roles":          grant.Profile.RoleNames(),
		"permissions":    grant.Profile.PermissionKeys(),
		"session": map[string]any{
			"id":         grant.Session.ID,
			"issued_at":  grant.Session.IssuedAt.UTC().Format(time.RFC3339),
			"expires_at": grant.Session.ExpiresAt.UTC().Format(time.RFC3339),
		},
	})
}

type examSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Questions int    `json:"questions"`
}

// TODO: proxy to the exam service once its listing API lands.
var sampleExams = []examSummary{
	{ID: "exm-001", Title: "Algebra Midterm", Status: "published", Questions: 24},
	{ID: "exm-002", Title: "Physics Final", Status: "draft", Questions: 40},
	{ID: "exm-003", Title: "Intro to Go", Status: "published", Questions: 18},
}

func (a *API) handleExams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"exams": sampleExams,
	})
}

type publishRequest struct {
	ExamID string `json:"exam_id"`
}

// handleExamPublish accepts a publish request for downstream
// processing. The guard has already checked the editor role and the
// publish permission, so the handler only validates the payload.
func (a *API) handleExamPublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req publishRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.ExamID = strings.TrimSpace(req.ExamID)
	if req.ExamID == "" {
		writeError(w, r, http.StatusBadRequest, "exam_id is required")
		return
	}
	userID, _ := authz.UserIDFromContext(r.Context())
	audit.LogEvent(r.Context(), "exam.publish.requested", map[string]any{
		"exam_id": req.ExamID,
	})
	writeJSON(w, http.StatusAccepted, map[string]any{
		"exam_id":      req.ExamID,
		"status":       "publish_requested",
		"requested_by": userID,
	})
}

// handleEvents streams guard decisions as Server-Sent Events for the
// audit dashboard.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	if a.decisions == nil {
		http.Error(w, "streaming disabled", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.decisions.Subscribe(ctx)

	// Send an initial comment to establish the stream
	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for event := range ch {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}

// --- pages ---

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{range .Lines}}<p>{{.}}</p>
{{end}}</body>
</html>
`))

type pageData struct {
	Title string
	Lines []string
}

func renderPage(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = pageTmpl.Execute(w, data)
}

func (a *API) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	grant, _ := authz.GrantFromContext(r.Context())
	renderPage(w, pageData{
		Title: "Dashboard",
		Lines: []string{
			fmt.Sprintf("Signed in as %s.", grant.Session.UserID),
			fmt.Sprintf("Roles: %s.", strings.Join(grant.Profile.RoleNames(), ", ")),
		},
	})
}

func (a *API) handleManagePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	renderPage(w, pageData{
		Title: "Manage Exams",
		Lines: []string{
			"Publish and retire exams from this page.",
		},
	})
}

// handleLoginPage is the landing target for page-guard redirects. The
// reason query parameter is advisory text for the user, never an input
// to any authorization decision.
func (a *API) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	lines := []string{"Sign in to continue."}
	if reason := r.URL.Query().Get("reason"); reason != "" {
		lines = append(lines, "You were redirected here: "+reason+".")
	}
	renderPage(w, pageData{
		Title: "Sign In",
		Lines: lines,
	})
}

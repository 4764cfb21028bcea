package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"examgate.org/internal/authz"
	"examgate.org/internal/obs"
	"examgate.org/internal/stream"
)

const serviceName = "examgate-api"

// ReadyProbe checks the dependencies a guarded request needs.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options wires the API's collaborators.
type Options struct {
	Guard      *authz.Guard
	Decisions  *stream.Stream
	ReadyProbe ReadyProbe
	Version    string

	// LoginURL is the default page-guard redirect target.
	LoginURL string

	// Per-IP token bucket; zero values disable rate limiting.
	RateBurst     int
	RatePerSecond int
}

// API is the HTTP layer: health endpoints, the guarded page and API
// surfaces, and the middleware chain around them.
type API struct {
	mux        *http.ServeMux
	guard      *authz.Guard
	decisions  *stream.Stream
	readyProbe ReadyProbe
	version    string
	loginURL   string
	rateBurst  int
	ratePerSec int
}

func New(opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		guard:      opts.Guard,
		decisions:  opts.Decisions,
		readyProbe: opts.ReadyProbe,
		version:    opts.Version,
		loginURL:   opts.LoginURL,
		rateBurst:  opts.RateBurst,
		ratePerSec: opts.RatePerSecond,
	}
	if a.loginURL == "" {
		a.loginURL = "/login"
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// Guarded API surface
	a.mux.HandleFunc("/v1/me", a.RequireAPI(authz.Policy{BlockDeleted: true}, a.handleMe))
	a.mux.HandleFunc("/v1/exams", a.RequireAPI(authz.Policy{
		Perms:          []string{authz.PermExamRead},
		BlockSuspended: true,
		BlockDeleted:   true,
	}, a.handleExams))
	a.mux.HandleFunc("/v1/exams/publish", a.RequireAPI(authz.Policy{
		Roles:                []string{"editor"},
		Perms:                []string{authz.PermExamPublish},
		RequireVerifiedEmail: true,
		BlockSuspended:       true,
		BlockDeleted:         true,
	}, a.handleExamPublish))
	a.mux.HandleFunc("/v1/events", a.RequireAPI(authz.Policy{
		Perms:        []string{authz.PermAuditRead},
		BlockDeleted: true,
	}, a.handleEvents))

	// Guarded page surface
	a.mux.HandleFunc("/dashboard", a.RequirePage(authz.Policy{
		BlockSuspended: true,
		BlockDeleted:   true,
	}, a.handleDashboardPage))
	a.mux.HandleFunc("/exams/manage", a.RequirePage(authz.Policy{
		Roles:                []string{"editor"},
		Perms:                []string{authz.PermExamPublish},
		RequireVerifiedEmail: true,
		BlockSuspended:       true,
		BlockDeleted:         true,
	}, a.handleManagePage))

	// Public pages
	a.mux.HandleFunc("/login", a.handleLoginPage)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = obs.Instrument(h)
	if a.rateBurst > 0 && a.ratePerSec > 0 {
		h = RateLimit(h, a.rateBurst, a.ratePerSec)
	}
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

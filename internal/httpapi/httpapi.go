// Package httpapi exposes the sale and accounting engine over JSON HTTP.
// Every line-scoped route lives under /api/v1/lines/{line}/.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"mothercare/backend/internal/domain"
	"mothercare/backend/internal/service"
)

const maxBodyBytes = 1 << 20

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	pinLimiter    *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		pinLimiter:    newAttemptLimiter(8, time.Minute),
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	staff := []string{domain.RoleCashier, domain.RoleAdmin}

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)

	mux.HandleFunc("/api/v1/lines/{line}/items", a.requireAuth(a.handleItems, staff...))
	mux.HandleFunc("/api/v1/lines/{line}/items/{id}", a.requireAuth(a.handleItem, staff...))
	mux.HandleFunc("/api/v1/lines/{line}/items/{id}/stock", a.requireAuth(a.handleStockAdjustment, staff...))
	mux.HandleFunc("/api/v1/lines/{line}/low-stock", a.requireAuth(a.handleLowStock, staff...))

	mux.HandleFunc("/api/v1/lines/{line}/sales", a.requireAuth(a.handleSales, staff...))
	mux.HandleFunc("/api/v1/lines/{line}/sales/{id}", a.requireAuth(a.handleSale, staff...))

	mux.HandleFunc("/api/v1/lines/{line}/sessions", a.requireAuth(a.handleSessions, staff...))
	mux.HandleFunc("/api/v1/lines/{line}/sessions/current", a.requireAuth(a.handleCurrentSession, staff...))
	mux.HandleFunc("/api/v1/lines/{line}/sessions/open", a.requireAuth(a.handleSessionOpen, staff...))
	mux.HandleFunc("/api/v1/lines/{line}/sessions/close", a.requireAuth(a.handleSessionClose, staff...))

	mux.HandleFunc("/api/v1/lines/{line}/reports", a.requireAuth(a.handleReports, staff...))
	mux.HandleFunc("/api/v1/lines/{line}/reports/{session}", a.requireAuth(a.handleReport, staff...))
	mux.HandleFunc("/api/v1/lines/{line}/partitions/sessions", a.requireAuth(a.handleSessionPartitions, staff...))
	mux.HandleFunc("/api/v1/lines/{line}/partitions/dates", a.requireAuth(a.handleDatePartitions, staff...))
	mux.HandleFunc("/api/v1/lines/{line}/summary", a.requireAuth(a.handleSummary, staff...))
	mux.HandleFunc("/api/v1/overview", a.requireAuth(a.handleOverview, staff...))

	mux.HandleFunc("/api/v1/categories", a.requireAuth(a.handleCategories, staff...))
	mux.HandleFunc("/api/v1/categories/{id}", a.requireAuth(a.handleCategory, staff...))
	mux.HandleFunc("/api/v1/users/cashiers", a.requireAuth(a.handleCashiers, domain.RoleAdmin))

	return a.withMiddleware(mux)
}

// requireAuth resolves the bearer token into an actor. Fine-grained checks
// happen in the service; roles here only fence whole route groups.
func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		actor, err := a.auth.ParseToken(strings.TrimSpace(token))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		if len(roles) > 0 && !roleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func roleAllowed(role string, allowed []string) bool {
	for _, candidate := range allowed {
		if role == candidate {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCashiers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"cashiers": a.auth.ListCashiers(r.Context())})
	case http.MethodPost:
		var req domain.CashierCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		cashier, err := a.auth.CreateCashier(r.Context(), req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"cashier": cashier})
	default:
		writeMethodNotAllowed(w)
	}
}

// statusRecorder remembers the status written by the wrapped handler for
// the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Cache-Control", "no-store")
		h.Set("Access-Control-Allow-Origin", a.allowedOrigin)
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		h.Set("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		switch r.Method {
		case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		startedAt := time.Now()
		next.ServeHTTP(rec, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(startedAt)).
			Str("remote", clientKey(r)).
			Msg("request")
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.New("request body too large")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError writes err as {"error": message}. Server errors are logged and
// replaced by a generic message.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("internal error")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// internal/httpx/httpx.go
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"lendex/internal/roles"
)

// Headers carrying the caller's resolved identity. Authentication itself
// happens upstream of the engine; these are trusted inputs here.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// ErrNoIdentity means the identity headers were missing or malformed.
var ErrNoIdentity = errors.New("missing or invalid caller identity")

// NewRouter builds the service router with the standard middleware stack.
func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Actor extracts the resolved caller identity from the request headers.
func Actor(r *http.Request) (roles.Actor, error) {
	id, err := uuid.Parse(r.Header.Get(HeaderUserID))
	if err != nil {
		return roles.Actor{}, ErrNoIdentity
	}
	role := roles.Role(r.Header.Get(HeaderUserRole))
	if !roles.Valid(role) {
		return roles.Actor{}, ErrNoIdentity
	}
	return roles.Actor{ID: id, Role: role}, nil
}

// WriteJSON writes v as a JSON response body.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the uniform error payload the client renders.
func WriteError(w http.ResponseWriter, code int, msg string) {
	WriteJSON(w, code, map[string]string{"error": msg})
}

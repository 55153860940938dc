// internal/ledger/handler.go
package ledger

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"lendex/internal/httpx"
	"lendex/internal/roles"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the lifecycle routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/books/{bookID}/request", h.handleRequest)
	r.Get("/issues", h.handleList)
	r.Get("/issues/{issueID}", h.handleGet)
	r.Post("/issues/{issueID}/approve", h.transition(Service.ApproveIssue))
	r.Post("/issues/{issueID}/reject", h.transition(Service.RejectIssue))
	r.Post("/issues/{issueID}/return", h.transition(Service.ReturnIssue))
	r.Post("/issues/{issueID}/reissue", h.transition(Service.ReissueIssue))
	r.Get("/dashboard", h.handleDashboard)
}

func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid book ID")
		return
	}

	issue, err := h.service.RequestIssue(r.Context(), actor, bookID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, issue)
}

// transition adapts the four one-shot transition operations, which share a
// request shape, into handlers.
func (h *Handler) transition(op func(Service, context.Context, roles.Actor, uuid.UUID) (*Issue, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := httpx.Actor(r)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, err.Error())
			return
		}
		issueID, err := uuid.Parse(chi.URLParam(r, "issueID"))
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid issue ID")
			return
		}

		issue, err := op(h.service, r.Context(), actor, issueID)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, issue)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}
	issueID, err := uuid.Parse(chi.URLParam(r, "issueID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid issue ID")
		return
	}

	issue, err := h.service.GetIssue(r.Context(), actor, issueID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, issue)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}

	scope := ListScope(r.URL.Query().Get("filter"))
	if scope == "" {
		scope = ScopeAll
	}

	issues, err := h.service.ListIssues(r.Context(), actor, scope)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if issues == nil {
		issues = []*Issue{}
	}
	httpx.WriteJSON(w, http.StatusOK, issues)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.Actor(r)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if roles.IsStaff(actor.Role) {
		stats, err := h.service.StaffDashboard(r.Context(), actor)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, stats)
		return
	}

	stats, err := h.service.MemberDashboard(r.Context(), actor)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}

// writeLedgerError maps the engine's error taxonomy onto HTTP statuses.
// State-machine refusals are conflicts; they carry the current status so
// the client can render it.
func writeLedgerError(w http.ResponseWriter, err error) {
	var ite *InvalidTransitionError
	switch {
	case errors.As(err, &ite):
		httpx.WriteJSON(w, http.StatusConflict, map[string]string{
			"error":          ite.Error(),
			"current_status": string(ite.Current),
		})
	case errors.Is(err, ErrBookUnavailable),
		errors.Is(err, ErrDuplicateActiveIssue),
		errors.Is(err, ErrReissueLimitReached):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnavailable):
		httpx.WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

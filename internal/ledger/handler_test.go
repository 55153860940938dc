// internal/ledger/handler_test.go
package ledger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lendex/internal/httpx"
	"lendex/internal/roles"
)

func newTestServer(t *testing.T) (*MemoryStore, *httptest.Server) {
	t.Helper()
	store := NewMemoryStore()
	router := chi.NewRouter()
	NewHandler(NewService(store)).Register(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return store, srv
}

func doAs(t *testing.T, srv *httptest.Server, actor roles.Actor, method, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set(httpx.HeaderUserID, actor.ID.String())
	req.Header.Set(httpx.HeaderUserRole, string(actor.Role))
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeIssue(t *testing.T, resp *http.Response) Issue {
	t.Helper()
	var issue Issue
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&issue))
	return issue
}

func TestHandlerLifecycle(t *testing.T) {
	store, srv := newTestServer(t)
	bookID := seedBook(store, 1)
	alice, librarian := member(), staff()

	resp := doAs(t, srv, alice, http.MethodPost, "/books/"+bookID.String()+"/request")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	issue := decodeIssue(t, resp)
	assert.Equal(t, StatusRequested, issue.Status)

	resp = doAs(t, srv, librarian, http.MethodPost, "/issues/"+issue.ID.String()+"/approve")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := decodeIssue(t, resp)
	assert.Equal(t, StatusIssued, approved.Status)
	assert.NotNil(t, approved.DueDate)

	resp = doAs(t, srv, alice, http.MethodPost, "/issues/"+issue.ID.String()+"/reissue")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeIssue(t, resp).ReissueCount)

	resp = doAs(t, srv, librarian, http.MethodPost, "/issues/"+issue.ID.String()+"/return")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, StatusReturned, decodeIssue(t, resp).Status)
}

func TestHandlerErrorMapping(t *testing.T) {
	store, srv := newTestServer(t)
	bookID := seedBook(store, 1)
	alice, bob, librarian := member(), member(), staff()

	resp := doAs(t, srv, alice, http.MethodPost, "/books/"+bookID.String()+"/request")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	issue := decodeIssue(t, resp)

	t.Run("no identity headers", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/issues", nil)
		require.NoError(t, err)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("malformed book id", func(t *testing.T) {
		resp := doAs(t, srv, alice, http.MethodPost, "/books/not-a-uuid/request")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("exhausted copies conflict", func(t *testing.T) {
		resp := doAs(t, srv, bob, http.MethodPost, "/books/"+bookID.String()+"/request")
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("member cannot approve", func(t *testing.T) {
		resp := doAs(t, srv, alice, http.MethodPost, "/issues/"+issue.ID.String()+"/approve")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("unknown issue", func(t *testing.T) {
		resp := doAs(t, srv, librarian, http.MethodPost, "/issues/"+uuid.NewString()+"/approve")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid transition carries current status", func(t *testing.T) {
		resp := doAs(t, srv, librarian, http.MethodPost, "/issues/"+issue.ID.String()+"/return")
		require.Equal(t, http.StatusConflict, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, string(StatusRequested), body["current_status"])
	})
}

func TestHandlerListAndDashboard(t *testing.T) {
	store, srv := newTestServer(t)
	bookID := seedBook(store, 2)
	alice, bob, librarian := member(), member(), staff()
	store.AddMember(alice.ID)
	store.AddMember(bob.ID)

	resp := doAs(t, srv, alice, http.MethodPost, "/books/"+bookID.String()+"/request")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = doAs(t, srv, bob, http.MethodPost, "/books/"+bookID.String()+"/request")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	t.Run("member listing is scoped to their own", func(t *testing.T) {
		resp := doAs(t, srv, alice, http.MethodGet, "/issues")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var issues []Issue
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&issues))
		require.Len(t, issues, 1)
		assert.Equal(t, alice.ID, issues[0].UserID)
	})

	t.Run("overdue filter is staff-only", func(t *testing.T) {
		resp := doAs(t, srv, alice, http.MethodGet, "/issues?filter=overdue")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = doAs(t, srv, librarian, http.MethodGet, "/issues?filter=overdue")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var issues []Issue
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&issues))
		assert.Empty(t, issues)
	})

	t.Run("dashboard branches on role", func(t *testing.T) {
		resp := doAs(t, srv, librarian, http.MethodGet, "/dashboard")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var staffStats StaffStats
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&staffStats))
		assert.Equal(t, 2, staffStats.PendingRequests)
		assert.Equal(t, 2, staffStats.TotalUsers)

		resp = doAs(t, srv, alice, http.MethodGet, "/dashboard")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var memberStats MemberStats
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&memberStats))
		assert.Equal(t, 1, memberStats.TotalRequested)
	})
}

package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "domainaudit/internal/db"
	"domainaudit/internal/db/repository"
	"domainaudit/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupAPI(t *testing.T) (http.Handler, *repository.AuditRepo) {
	t.Helper()

	writeDB, readDB := internaldb.OpenTestSQLite(t)
	repo := repository.NewAuditRepo(writeDB, readDB)
	svc := service.NewAuditService(repo, 10)
	h := NewHandler(svc, readDB, 5*time.Second, discardLogger())
	return NewRouter(h, []string{"*"}, discardLogger()), repo
}

func postLog(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/log", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "check-client/1.0")
	req.RemoteAddr = "192.0.2.7:51234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleLog_StoresOneRecord(t *testing.T) {
	router, repo := setupAPI(t)

	w := postLog(router, `{"domain":"example.com","results":{"dns":{"a":true}}}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	got, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "example.com", got.Domain)
	require.NotNil(t, got.ClientOrigin)
	assert.Equal(t, "192.0.2.7", *got.ClientOrigin)
	require.NotNil(t, got.UserAgent)
	assert.Equal(t, "check-client/1.0", *got.UserAgent)
	assert.JSONEq(t, `{"dns":{"a":true}}`, string(got.Results))
	assert.WithinDuration(t, time.Now().UTC(), got.Timestamp, 5*time.Second)
}

func TestHandleLog_IgnoresClientSuppliedTimestamp(t *testing.T) {
	router, repo := setupAPI(t)

	// A caller trying to backdate the record must not succeed: the stored
	// timestamp is the server receipt time and the stored origin is the
	// connection peer, whatever the body claims.
	w := postLog(router, `{"domain":"example.com","timestamp":"1999-01-01T00:00:00Z","client_origin":"10.0.0.1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), got.Timestamp, 5*time.Second)
	require.NotNil(t, got.ClientOrigin)
	assert.Equal(t, "192.0.2.7", *got.ClientOrigin)
}

func TestHandleLog_MissingDomain(t *testing.T) {
	router, repo := setupAPI(t)

	for _, body := range []string{`{}`, `{"domain":""}`, `{"domain":"   "}`} {
		w := postLog(router, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
		assert.Contains(t, w.Body.String(), "domain is required")
	}

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandleLog_InvalidJSON(t *testing.T) {
	router, repo := setupAPI(t)

	w := postLog(router, `{"domain":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON body")

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandleLog_StoreFailure(t *testing.T) {
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	repo := repository.NewAuditRepo(writeDB, readDB)
	svc := service.NewAuditService(repo, 10)
	h := NewHandler(svc, readDB, 5*time.Second, discardLogger())
	router := NewRouter(h, []string{"*"}, discardLogger())

	// Kill the write pool: ingestion must answer 500 without leaking detail.
	require.NoError(t, writeDB.Close())

	w := postLog(router, `{"domain":"example.com"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}

func TestHandleStats_TopDomains(t *testing.T) {
	router, _ := setupAPI(t)

	for _, name := range []string{"a", "a", "a", "b", "b", "c"} {
		w := postLog(router, `{"domain":"`+name+`"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/stats?limit=2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"domain":"a","count":3},{"domain":"b","count":2}]`, w.Body.String())
}

func TestHandleStats_EmptyStore(t *testing.T) {
	router, _ := setupAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestHandleStats_InvalidLimit(t *testing.T) {
	router, _ := setupAPI(t)

	for _, limit := range []string{"bogus", "-1", "0"} {
		req := httptest.NewRequest(http.MethodGet, "/stats?limit="+limit, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "limit %s", limit)
	}
}

func TestPreflight_NeverStoresARecord(t *testing.T) {
	router, repo := setupAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/log", nil)
	req.Header.Set("Origin", "https://checker.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.GreaterOrEqual(t, w.Code, 200)
	assert.Less(t, w.Code, 300)
	assert.Empty(t, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPreflight_BareOptions(t *testing.T) {
	router, repo := setupAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/log", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandleHealthz(t *testing.T) {
	router, _ := setupAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo_backend/internal/app/di"
	"todo_backend/internal/platform/config"
	"todo_backend/internal/platform/db"
	"todo_backend/internal/platform/metrics"
)

type testServer struct {
	router    *gin.Engine
	container *di.Container
}

// newTestServer wires the whole application on an in-memory SQLite database.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithLogger(t, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestServerWithLogger(t *testing.T, logger *slog.Logger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.OpenDB(db.ParseURL(":memory:", time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	require.NoError(t, db.Migrate(gdb, di.Models()...))

	cfg := config.Config{
		JWT:    config.JWTConfig{Secret: "e2e-secret", Algorithm: "HS256"},
		Bcrypt: config.BcryptConfig{Cost: 4},
	}
	c, err := di.NewContainer(cfg, gdb, nil)
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)

	r := NewRouter(c.AuthHandler, c.TodoHandler, Deps{
		Verifier: c.Tokens,
		Store:    sqlDB,
		Metrics:  metrics.New(),
		Logger:   logger,
	})
	return &testServer{router: r, container: c}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, APIPrefix+path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, APIPrefix+"/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, email, password string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/auth/users", "", gin.H{
		"first_name": "Ada", "last_name": "Lovelace", "mail": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res struct {
		UserID string `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res.UserID
}

func decodeInto[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

// TestEndToEnd_TodoLifecycle drives register, login, create, list, update and delete.
func TestEndToEnd_TodoLifecycle(t *testing.T) {
	s := newTestServer(t)

	userID := s.register(t, "ada@example.com", "password123")

	w := s.login(t, "ada@example.com", "password123")
	require.Equal(t, http.StatusOK, w.Code)
	tok := decodeInto[map[string]string](t, w)
	assert.Equal(t, "bearer", tok["token_type"])
	require.NotEmpty(t, tok["access_token"])

	w = s.do(t, http.MethodGet, "/auth/users/me", tok["access_token"], nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada@example.com", decodeInto[map[string]any](t, w)["mail"])

	w = s.do(t, http.MethodPost, "/todolists", "", gin.H{"title": "write tests", "user_id": userID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeInto[struct {
		TodoData struct {
			ID        string `json:"id"`
			UpdatedAt string `json:"updated_at"`
		} `json:"todo_data"`
	}](t, w)
	todoID := created.TodoData.ID

	w = s.do(t, http.MethodGet, "/todolists/"+userID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeInto[[]map[string]any](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, todoID, list[0]["id"])
	assert.Equal(t, "write tests", list[0]["title"])

	w = s.do(t, http.MethodPut, "/todolists/"+todoID, "", gin.H{"is_done": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeInto[map[string]any](t, w)
	assert.Equal(t, true, updated["is_done"])
	assert.Equal(t, "write tests", updated["title"])
	assert.Nil(t, updated["description"])

	w = s.do(t, http.MethodGet, "/todolists", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeInto[[]map[string]any](t, w), 1)

	w = s.do(t, http.MethodDelete, "/todolists/"+todoID, "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodDelete, "/todolists/"+todoID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "second delete")

	w = s.do(t, http.MethodGet, "/todolists/"+userID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestEndToEnd_DuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	firstID := s.register(t, "dup@example.com", "password123")

	w := s.do(t, http.MethodPost, "/auth/users", "", gin.H{
		"first_name": "Other", "last_name": "Person", "mail": "dup@example.com", "password": "different",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 最初の登録は影響を受けない
	w = s.login(t, "dup@example.com", "password123")
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/auth/users/me", decodeInto[map[string]string](t, w)["access_token"], nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decodeInto[map[string]any](t, w)
	assert.Equal(t, firstID, me["id"])
	assert.Equal(t, "Ada", me["first_name"])
}

func TestEndToEnd_CreateTodoForUnknownUser(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/todolists", "", gin.H{"title": "orphan", "user_id": "7b0f8c2e-4d1a-4f57-9a51-0f3f4a3c2b10"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", decodeInto[map[string]string](t, w)["error"])

	w = s.do(t, http.MethodPost, "/todolists", "", gin.H{"title": "orphan", "user_id": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/todolists", "", nil)
	assert.JSONEq(t, `[]`, w.Body.String(), "nothing may be persisted")
}

// TestEndToEnd_ResetTokenSingleUse verifies that a reset token works exactly once.
func TestEndToEnd_ResetTokenSingleUse(t *testing.T) {
	s := newTestServer(t)
	userID := s.register(t, "reset@example.com", "old-password")

	w := s.do(t, http.MethodPost, "/auth/forgot-password", "", gin.H{"mail": "reset@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/auth/forgot-password", "", gin.H{"mail": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// メール送信は行わないため、同じ鍵でトークンを発行する
	token, err := s.container.Tokens.IssueToken(userID, "reset@example.com", 15*time.Minute)
	require.NoError(t, err)

	w = s.do(t, http.MethodPost, "/auth/reset-password", "", gin.H{"token": token, "new_password": "new-password"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/auth/reset-password", "", gin.H{"token": token, "new_password": "third-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, http.StatusUnauthorized, s.login(t, "reset@example.com", "old-password").Code)
	assert.Equal(t, http.StatusUnauthorized, s.login(t, "reset@example.com", "third-password").Code)
	assert.Equal(t, http.StatusOK, s.login(t, "reset@example.com", "new-password").Code)
}

func TestRouter_MeRequiresToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/auth/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	w = s.do(t, http.MethodGet, "/auth/users/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `todo_backend_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestRouter_PanicIsLoggedAndCounted(t *testing.T) {
	var buf bytes.Buffer
	s := newTestServerWithLogger(t, slog.New(slog.NewJSONHandler(&buf, nil)))
	s.router.GET("/boom", func(*gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "req-panic")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-panic", w.Header().Get("X-Request-ID"))

	var sawPanic, sawRequest bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		assert.Equal(t, "req-panic", entry["req_id"])
		switch entry["msg"] {
		case "panic recovered":
			sawPanic = true
			assert.Equal(t, "boom", entry["panic"])
		case "http_request":
			sawRequest = true
			assert.Equal(t, "ERROR", entry["level"])
			assert.EqualValues(t, http.StatusInternalServerError, entry["status"])
		}
	}
	assert.True(t, sawPanic, "panic must be logged with the request id")
	assert.True(t, sawRequest, "request line must still be written")

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `todo_backend_http_requests_total{method="GET",route="/boom",status="500"} 1`)
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/askdb/askdb/internal/executor"
	"github.com/askdb/askdb/internal/learning"
	"github.com/askdb/askdb/internal/prompt"
	"github.com/askdb/askdb/internal/service"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const testJWTSecret = "test-secret-for-jwt-integration-tests"

type stubComposer struct{}

func (stubComposer) Compose(_ context.Context, q string) (*prompt.Prompt, error) {
	return &prompt.Prompt{Text: q}, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, _ string) (string, error) {
	return "SELECT COUNT(*) AS SiparisAdedi FROM TOHOM_SIPARIS", nil
}

type dbSource struct{ db *sqlx.DB }

func (s dbSource) DB() *sqlx.DB { return s.db }

// testEnv holds all the shared state for integration tests.
type testEnv struct {
	server  *Server
	authSvc *service.AuthService
}

// newTestEnv creates a fully wired Server over an in-memory SQLite database
// and a temporary learning store.
func newTestEnv(t *testing.T, cfg Config, jwtSecret string) *testEnv {
	t.Helper()

	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	db.MustExec(`CREATE TABLE TOHOM_SIPARIS (SIPARIS_ID INTEGER PRIMARY KEY)`)
	db.MustExec(`INSERT INTO TOHOM_SIPARIS (SIPARIS_ID) VALUES (1), (2), (3)`)

	mem, err := learning.Open(t.TempDir())
	if err != nil {
		t.Fatalf("learning.Open: %v", err)
	}
	t.Cleanup(func() { mem.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assistant := service.NewAssistant(stubComposer{}, stubGenerator{}, executor.New(dbSource{db}, 0, time.Second, logger), mem, logger)

	up := func(context.Context) error { return nil }
	health := service.Health{
		Database: func(ctx context.Context) error { return db.PingContext(ctx) },
		LLM:      func(context.Context) error { return errors.New("ollama unreachable") },
		RAG:      up,
	}

	authSvc := service.NewAuthService(jwtSecret)
	return &testEnv{
		server:  New(cfg, assistant, health, authSvc, logger),
		authSvc: authSvc,
	}
}

// do executes an HTTP request against the server and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("jsonBody: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), "")
	rr := env.do(t, "GET", "/healthz", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestReadyzDegraded(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), "")
	rr := env.do(t, "GET", "/readyz", nil, nil)
	assertStatus(t, rr, http.StatusServiceUnavailable)

	var resp struct {
		Status string               `json:"status"`
		Checks service.HealthReport `json:"checks"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Status != "degraded" || !resp.Checks.Database || resp.Checks.LLM {
		t.Errorf("readyz = %+v", resp)
	}
}

func TestAPIHealth(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), "")
	rr := env.do(t, "GET", "/api/v1/health", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	var report service.HealthReport
	decodeJSON(t, rr, &report)
	if !report.Database || report.LLM || !report.RAG {
		t.Errorf("health = %+v", report)
	}
	if report.Errors["llm"] != "ollama unreachable" {
		t.Errorf("errors = %v", report.Errors)
	}
}

// ---------------------------------------------------------------------------
// Chat end-to-end
// ---------------------------------------------------------------------------

func TestChatEndToEnd(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), "")
	rr := env.do(t, "POST", "/api/v1/chat", jsonBody(t, map[string]string{"message": "kaç sipariş var"}), nil)
	assertStatus(t, rr, http.StatusOK)

	var resp map[string]interface{}
	decodeJSON(t, rr, &resp)
	if resp["success"] != true || resp["total_count"] != float64(1) {
		t.Errorf("chat = %v", resp)
	}
	if resp["message"] != "**SiparisAdedi**: 3,00" {
		t.Errorf("message = %v", resp["message"])
	}
}

// ---------------------------------------------------------------------------
// Reviewer authentication
// ---------------------------------------------------------------------------

func TestReviewerRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), testJWTSecret)
	token, err := env.authSvc.IssueReviewerToken("ayse", time.Hour)
	if err != nil {
		t.Fatalf("IssueReviewerToken: %v", err)
	}

	correction := map[string]string{
		"question":    "kaç sipariş var",
		"wrong_sql":   "SELECT 1",
		"correct_sql": "SELECT COUNT(*) FROM TOHOM_SIPARIS",
	}
	feedback := map[string]interface{}{"question": "kaç sipariş var", "sql": "SELECT 1", "is_correct": false}

	tests := []struct {
		name    string
		path    string
		body    interface{}
		headers map[string]string
		want    int
	}{
		{"correct without token", "/api/v1/correct", correction, nil, http.StatusUnauthorized},
		{"feedback without token", "/api/v1/feedback", feedback, nil, http.StatusUnauthorized},
		{"correct with bad token", "/api/v1/correct", correction, map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"correct with token", "/api/v1/correct", correction, map[string]string{"Authorization": "Bearer " + token}, http.StatusOK},
		{"feedback with token", "/api/v1/feedback", feedback, map[string]string{"Authorization": "Bearer " + token}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "POST", tt.path, jsonBody(t, tt.body), tt.headers)
			assertStatus(t, rr, tt.want)
		})
	}

	// Read-only endpoints stay open.
	rr := env.do(t, "GET", "/api/v1/stats", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	var stats service.Stats
	decodeJSON(t, rr, &stats)
	if stats.CorrectionsCount != 1 || stats.Feedback.Total != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestReviewerRoutesOpenWithoutSecret(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), "")
	rr := env.do(t, "POST", "/api/v1/feedback", jsonBody(t, map[string]interface{}{
		"question": "q", "sql": "SELECT 1", "is_correct": true,
	}), nil)
	assertStatus(t, rr, http.StatusOK)
}

// ---------------------------------------------------------------------------
// Middleware wiring
// ---------------------------------------------------------------------------

func TestGenerationRoutesRateLimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 2
	env := newTestEnv(t, cfg, "")

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		rr := env.do(t, "POST", "/api/v1/sql/generate", jsonBody(t, map[string]string{"question": "kaç sipariş var"}), nil)
		if rr.Code != want {
			t.Errorf("request %d: status = %d, want %d", i, rr.Code, want)
		}
	}

	// Validation is not a generation route.
	for i := 0; i < 5; i++ {
		rr := env.do(t, "POST", "/api/v1/sql/validate", jsonBody(t, map[string]string{"sql": "SELECT 1"}), nil)
		assertStatus(t, rr, http.StatusOK)
	}
}

func TestRequestBodyLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBodySize = 64
	env := newTestEnv(t, cfg, "")

	big := `{"sql":"SELECT ` + strings.Repeat("A", 200) + `"}`
	rr := env.do(t, "POST", "/api/v1/sql/validate", strings.NewReader(big), nil)
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestCORSHeaders(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), "")

	req := httptest.NewRequest("OPTIONS", "/api/v1/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	env.server.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("expected Access-Control-Allow-Origin header")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), "")
	rr := env.do(t, "GET", "/api/v1/chat", nil, nil)
	assertStatus(t, rr, http.StatusMethodNotAllowed)
}

func TestErrorResponseFormat(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), "")
	rr := env.do(t, "POST", "/api/v1/sql/run", jsonBody(t, map[string]string{"sql": "DELETE FROM TOHOM_SIPARIS"}), nil)
	assertStatus(t, rr, http.StatusUnprocessableEntity)

	var resp struct {
		Error struct {
			Code    int                    `json:"code"`
			Message string                 `json:"message"`
			Context map[string]interface{} `json:"context"`
		} `json:"error"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Error.Code != 422 || resp.Error.Message != "DELETE statements are not allowed: only SELECT statements can be executed" {
		t.Errorf("error = %+v", resp.Error)
	}
	if resp.Error.Context["stage"] != "validation" {
		t.Errorf("stage = %v", resp.Error.Context["stage"])
	}
}

func TestOnShutdownHooksRunInOrder(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), "")
	var order []int
	env.server.OnShutdown(func() { order = append(order, 1) })
	env.server.OnShutdown(func() { order = append(order, 2) })
	env.server.runShutdownHooks()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order = %v", order)
	}
}

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quillhq/convoexport/internal/pipeline"
)

func newTestServer(token string) *Server {
	return NewServer(8460, token, pipeline.New(0, nil), nil)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer("")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer("")

	req := httptest.NewRequest("GET", "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body struct {
		Service   string   `json:"service"`
		Platforms []string `json:"platforms"`
		Storage   bool     `json:"storage"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Service != "convoexport" {
		t.Errorf("expected service convoexport, got %q", body.Service)
	}
	if len(body.Platforms) != 4 {
		t.Errorf("expected 4 platforms, got %v", body.Platforms)
	}
	if body.Storage {
		t.Error("expected storage=false without a store")
	}
}

func TestExportEndpoint_Claude(t *testing.T) {
	srv := newTestServer("")

	reqBody := `{"platform":"claude","payload":{"uuid":"c1","name":"Test","chat_messages":[{"uuid":"m1","sender":"human","content":[{"type":"text","text":"Hi"}],"created_at":"2024-01-01T00:00:00Z"}]}}`
	req := httptest.NewRequest("POST", "/api/v1/exports", strings.NewReader(reqBody))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp ExportResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(resp.Files))
	}
	if resp.Files[0].Filename != "claude_conversation_c1.csv" {
		t.Errorf("filename = %q", resp.Files[0].Filename)
	}
	if !strings.Contains(resp.Files[0].Content, "c1,Test,m1,,human,Hi") {
		t.Errorf("content = %q", resp.Files[0].Content)
	}
}

func TestExportEndpoint_UnsupportedPlatform(t *testing.T) {
	srv := newTestServer("")

	req := httptest.NewRequest("POST", "/api/v1/exports", strings.NewReader(`{"platform":"gemini","payload":{}}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["reason"] != pipeline.ReasonUnsupportedPlatform {
		t.Errorf("reason = %q", body["reason"])
	}
}

func TestExportEndpoint_MissingStructure(t *testing.T) {
	srv := newTestServer("")

	req := httptest.NewRequest("POST", "/api/v1/exports", strings.NewReader(`{"platform":"chatgpt","payload":{"title":"no mapping"}}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer("secret-token")

	req := httptest.NewRequest("POST", "/api/v1/exports", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/api/v1/exports", strings.NewReader(`{"platform":"gemini","payload":{}}`))
	req.Header.Set("Authorization", "Bearer secret-token")
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("expected auth to pass with token")
	}

	// Health stays open.
	req = httptest.NewRequest("GET", "/health", nil)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for health, got %d", w.Code)
	}
}

func TestCaptureEndpoints_NoStore(t *testing.T) {
	srv := newTestServer("")

	req := httptest.NewRequest("POST", "/api/v1/captures", strings.NewReader(`{"platform":"claude","payload":{}}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without storage, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/v1/captures", nil)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without storage, got %d", w.Code)
	}
}

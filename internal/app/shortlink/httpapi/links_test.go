package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"shortl.local/gee"
	"shortl.local/gee/middleware"
	"shortl.local/internal/app/shortlink"
	"shortl.local/internal/app/shortlink/events"
	"shortl.local/internal/app/shortlink/repo"
	"shortl.local/internal/platform/spa"
)

type recordingCollector struct {
	mu     sync.Mutex
	events []events.LinkEvent
}

func (c *recordingCollector) Collect(e events.LinkEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *recordingCollector) Close() {}

// setupTestServer wires the real service over an in-memory SQLite store.
func setupTestServer(t *testing.T) (*gee.Engine, *recordingCollector) {
	t.Helper()

	store, err := repo.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	svc := shortlink.NewService(store, nil, shortlink.Options{})

	dist := t.TempDir()
	if err := os.WriteFile(filepath.Join(dist, "index.html"), []byte("<html>shortl</html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	collector := &recordingCollector{}
	r := newEngine(svc, collector, spa.NewServer(dist, nil).Handler())
	return r, collector
}

func newEngine(svc LinkService, collector events.Collector, frontend gee.HandlerFunc) *gee.Engine {
	r := gee.New()
	r.Use(gee.Recovery(), middleware.ReqID(), middleware.AccessLog())
	RegisterWebRoutes(r, frontend)
	RegisterAPIRoutes(r.Group("/api"), svc, collector)
	RegisterPublicRoutes(r, svc, collector)
	r.GET("/healthz", func(ctx *gee.Context) {
		ctx.String(http.StatusOK, "ok")
	})
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestShortenRedirectStatsScenario(t *testing.T) {
	r, collector := setupTestServer(t)

	w := do(r, http.MethodPost, "/api/shorten", `{"url":"https://example.com/a"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("shorten: status %d body %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("shorten: Content-Type %q", ct)
	}
	var created map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("shorten: bad json %q", w.Body.String())
	}
	if len(created) != 1 {
		t.Fatalf("shorten: expected exactly one field, got %v", created)
	}
	token := created["shortl"]
	if len(token) != 6 {
		t.Fatalf("shorten: token %q", token)
	}

	w = do(r, http.MethodGet, "/"+token, "")
	if w.Code != http.StatusFound {
		t.Fatalf("redirect: status %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "https://example.com/a" {
		t.Fatalf("redirect: Location %q", loc)
	}

	w = do(r, http.MethodGet, "/api/stats?shortl="+token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("stats: status %d", w.Code)
	}
	var stats StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("stats: bad json %q", w.Body.String())
	}
	want := StatsResponse{URL: "https://example.com/a", Token: token, ViewCount: 1, ShortenCount: 0}
	if stats != want {
		t.Fatalf("stats: got %+v, want %+v", stats, want)
	}

	// Shortening again returns the same token and counts the repeat.
	w = do(r, http.MethodPost, "/api/shorten", `{"url":"https://example.com/a"}`)
	if !strings.Contains(w.Body.String(), token) {
		t.Fatalf("re-shorten: %q does not carry %q", w.Body.String(), token)
	}
	w = do(r, http.MethodGet, "/api/stats?url=https://example.com/a", "")
	if !strings.Contains(w.Body.String(), `"shorten_count":1`) {
		t.Fatalf("stats by url: %q", w.Body.String())
	}

	if len(collector.events) != 3 {
		t.Fatalf("events: got %d, want 3", len(collector.events))
	}
	if collector.events[1].Type != events.TypeRedirected || collector.events[1].Token != token {
		t.Fatalf("unexpected redirect event %+v", collector.events[1])
	}
}

func TestShorten_Errors(t *testing.T) {
	r, collector := setupTestServer(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
	}{
		{"javascript url", `{"url":"javascript:alert(1)"}`, http.StatusBadRequest, msgInvalidURL},
		{"bare host", `{"url":"google.com"}`, http.StatusBadRequest, msgInvalidURL},
		{"missing url", `{}`, http.StatusBadRequest, msgInvalidURL},
		{"malformed json", `{"url":`, http.StatusBadRequest, "Invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/shorten", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status: got %d, want %d", w.Code, tt.wantCode)
			}
			if w.Body.String() != tt.wantBody {
				t.Fatalf("body: got %q, want %q", w.Body.String(), tt.wantBody)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
				t.Fatalf("Content-Type: got %q", ct)
			}
		})
	}

	if len(collector.events) != 0 {
		t.Fatalf("failed requests must not publish events: %v", collector.events)
	}

	w := do(r, http.MethodGet, "/api/stats?url=javascript:alert(1)", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("invalid url must not be stored, stats status %d", w.Code)
	}
}

func TestShorten_WrongMethod(t *testing.T) {
	svc := &stubService{}
	r := newEngine(svc, &recordingCollector{}, func(ctx *gee.Context) {})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := do(r, method, "/api/shorten", "")
		if w.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: status %d", method, w.Code)
		}
		if w.Body.String() != "Only POST requests allowed" {
			t.Fatalf("%s: body %q", method, w.Body.String())
		}
		if allow := w.Header().Get("Allow"); allow != http.MethodPost {
			t.Fatalf("%s: Allow %q", method, allow)
		}
	}
	if svc.calls != 0 {
		t.Fatalf("service called %d times", svc.calls)
	}
}

func TestStats_Errors(t *testing.T) {
	r, _ := setupTestServer(t)

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/api/stats", http.StatusBadRequest, msgWrongParams},
		{"/api/stats?url=&shortl=", http.StatusBadRequest, msgWrongParams},
		{"/api/stats?shortl=nopeXX", http.StatusNotFound, msgLinkNotFound},
		{"/api/stats?url=https://nowhere.example", http.StatusNotFound, msgLinkNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(r, http.MethodGet, tt.path, "")
			if w.Code != tt.wantCode || w.Body.String() != tt.wantBody {
				t.Fatalf("got %d %q, want %d %q", w.Code, w.Body.String(), tt.wantCode, tt.wantBody)
			}
		})
	}
}

func TestRedirect_UnknownToken(t *testing.T) {
	r, collector := setupTestServer(t)

	w := do(r, http.MethodGet, "/zzzzzz", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: got %d", w.Code)
	}
	if len(collector.events) != 0 {
		t.Fatalf("unexpected events %v", collector.events)
	}
}

func TestWebRoutes(t *testing.T) {
	r, _ := setupTestServer(t)

	w := do(r, http.MethodGet, "/", "")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/home" {
		t.Fatalf("root: %d %q", w.Code, w.Header().Get("Location"))
	}

	for _, path := range []string{"/home", "/home/", "/home/some/client/route"} {
		w := do(r, http.MethodGet, path, "")
		if w.Code != http.StatusOK || w.Body.String() != "<html>shortl</html>" {
			t.Fatalf("%s: %d %q", path, w.Code, w.Body.String())
		}
	}

	w = do(r, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", w.Code, w.Body.String())
	}
}

// stubService returns fixed errors, for the status mapping.
type stubService struct {
	err   error
	calls int
}

func (s *stubService) Shorten(ctx context.Context, longURL string) (shortlink.Link, error) {
	s.calls++
	return shortlink.Link{}, s.err
}

func (s *stubService) ResolveRedirect(ctx context.Context, token string) (string, error) {
	s.calls++
	return "", s.err
}

func (s *stubService) GetStats(ctx context.Context, longURL, token string) (shortlink.Link, error) {
	s.calls++
	return shortlink.Link{}, s.err
}

func TestErrorMapping(t *testing.T) {
	storeErr := errors.Join(shortlink.ErrStoreUnavailable, errors.New("pq: password authentication failed for user shortl"))

	tests := []struct {
		name     string
		err      error
		method   string
		path     string
		body     string
		wantCode int
		wantBody string
	}{
		{"shorten collision", shortlink.ErrTokenCollision, http.MethodPost, "/api/shorten", `{"url":"https://x.example"}`, http.StatusInternalServerError, msgTokenCollision},
		{"shorten store", storeErr, http.MethodPost, "/api/shorten", `{"url":"https://x.example"}`, http.StatusInternalServerError, msgServerError},
		{"stats store", storeErr, http.MethodGet, "/api/stats?shortl=abcDEF", "", http.StatusInternalServerError, msgServerError},
		{"redirect store", storeErr, http.MethodGet, "/abcDEF", "", http.StatusInternalServerError, msgRedirectError},
		{"redirect not found", shortlink.ErrNotFound, http.MethodGet, "/abcDEF", "", http.StatusNotFound, msgLinkNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(&stubService{err: tt.err}, &recordingCollector{}, func(ctx *gee.Context) {})
			w := do(r, tt.method, tt.path, tt.body)
			if w.Code != tt.wantCode || w.Body.String() != tt.wantBody {
				t.Fatalf("got %d %q, want %d %q", w.Code, w.Body.String(), tt.wantCode, tt.wantBody)
			}
			if bytes.Contains(w.Body.Bytes(), []byte("password")) {
				t.Fatalf("internal detail leaked: %q", w.Body.String())
			}
		})
	}
}

func TestResponsesCarryRequestID(t *testing.T) {
	r, _ := setupTestServer(t)

	for _, path := range []string{"/", "/api/stats", "/zzzzzz", "/a/b/c"} {
		w := do(r, http.MethodGet, path, "")
		if w.Header().Get(middleware.RequestIDHeader) == "" {
			t.Fatalf("%s: missing request id", path)
		}
	}
}

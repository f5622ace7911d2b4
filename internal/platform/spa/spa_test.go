package spa

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shortl.local/gee"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newEngine(s *Server) *gee.Engine {
	r := gee.New()
	r.GET("/home", s.Handler())
	r.GET("/home/*filepath", s.Handler())
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServer_Routes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", "<html>app</html>")
	writeFile(t, root, "main.js", "console.log(1)")
	writeFile(t, root, "assets/logo.svg", "<svg/>")
	writeFile(t, root, "notes.xyz", "raw")
	writeFile(t, filepath.Dir(root), "secret.txt", "top secret")

	r := newEngine(NewServer(root, nil))

	tests := []struct {
		path     string
		wantType string
		wantBody string
	}{
		{"/home", "text/html", "<html>app</html>"},
		{"/home/", "text/html", "<html>app</html>"},
		{"/home/main.js", "text/javascript", "console.log(1)"},
		{"/home/assets/logo.svg", "image/svg+xml", "<svg/>"},
		{"/home/notes.xyz", "text/plain", "raw"},
		{"/home/dashboard/settings", "text/html", "<html>app</html>"},
		{"/home/assets", "text/html", "<html>app</html>"},
		{"/home/../secret.txt", "text/html", "<html>app</html>"},
		{"/home/assets/../../secret.txt", "text/html", "<html>app</html>"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(r, tt.path)
			if w.Code != http.StatusOK {
				t.Fatalf("status: got %d", w.Code)
			}
			if got := w.Header().Get("Content-Type"); got != tt.wantType {
				t.Fatalf("Content-Type: got %q, want %q", got, tt.wantType)
			}
			if w.Body.String() != tt.wantBody {
				t.Fatalf("body: got %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestServer_MissingIndex(t *testing.T) {
	r := newEngine(NewServer(t.TempDir(), nil))

	w := get(r, "/home")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Fatalf("Content-Type: got %q", got)
	}
}

func TestServer_UsesCache(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", "v1")

	cache, err := NewFileCache(1<<20, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()
	r := newEngine(NewServer(root, cache))

	if body := get(r, "/home").Body.String(); body != "v1" {
		t.Fatalf("first read: %q", body)
	}
	cache.Wait()

	writeFile(t, root, "index.html", "v2")
	if body := get(r, "/home").Body.String(); body != "v1" {
		t.Fatalf("expected cached v1, got %q", body)
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"favicon.ico": "image/x-icon",
		"a.HTML":      "text/html",
		"a.json":      "application/json",
		"a.css":       "text/css",
		"a.png":       "image/png",
		"a.jpg":       "image/jpeg",
		"a.wav":       "audio/wav",
		"a.mp3":       "audio/mpeg",
		"a.pdf":       "application/pdf",
		"a.doc":       "application/msword",
		"a.woff2":     "text/plain",
		"Makefile":    "text/plain",
	}
	for name, want := range tests {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestCleanRel(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		"/":                "",
		"main.js":          "main.js",
		"a/../b.js":        "b.js",
		"../../etc/passwd": "etc/passwd",
		"a//b":             "a/b",
	}
	for in, want := range tests {
		if got := cleanRel(in); got != want {
			t.Errorf("cleanRel(%q) = %q, want %q", in, got, want)
		}
	}
}

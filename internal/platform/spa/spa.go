package spa

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"shortl.local/gee"
)

var mimeTypes = map[string]string{
	".ico":  "image/x-icon",
	".html": "text/html",
	".js":   "text/javascript",
	".json": "application/json",
	".css":  "text/css",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".svg":  "image/svg+xml",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
}

// ContentType maps a file name to the type sent for it. Unknown extensions
// are served as text/plain.
func ContentType(name string) string {
	if ct, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "text/plain"
}

// Server serves a built single-page app from root. Paths that do not name a
// file fall back to index.html so client-side routes work on reload.
type Server struct {
	root  string
	cache *FileCache // optional
}

func NewServer(root string, cache *FileCache) *Server {
	return &Server{root: root, cache: cache}
}

// Handler serves routes registered as /home and /home/*filepath.
func (s *Server) Handler() gee.HandlerFunc {
	return func(ctx *gee.Context) {
		rel := cleanRel(ctx.Param("filepath"))
		if rel != "" {
			data, err := s.readFile(rel)
			if err == nil {
				ctx.Data(http.StatusOK, ContentType(rel), data)
				return
			}
			if !errors.Is(err, fs.ErrNotExist) {
				slog.Error("static file read failed", "path", rel, "err", err)
			}
		}

		data, err := s.readFile("index.html")
		if err != nil {
			slog.Error("index.html unavailable", "root", s.root, "err", err)
			ctx.AbortWithError(http.StatusNotFound, "The frontend files have not been found. Please contact the server admin.")
			return
		}
		ctx.Data(http.StatusOK, "text/html", data)
	}
}

// cleanRel turns a request suffix into a slash-separated path that cannot
// leave the root. "" means the app root.
func cleanRel(p string) string {
	rel := strings.TrimPrefix(path.Clean("/"+p), "/")
	if rel == "." {
		return ""
	}
	return rel
}

func (s *Server) readFile(rel string) ([]byte, error) {
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if s.cache != nil {
		if data, ok := s.cache.Get(full); ok {
			return data, nil
		}
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fs.ErrNotExist
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(full, data)
	}
	return data, nil
}

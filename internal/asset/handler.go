// Package asset serves the built browser client: the page, its scripts and the editor's
// WebAssembly module.
package asset

import (
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

func init() {
	// Browsers only stream-compile wasm served with this type.
	mime.AddExtensionType(".wasm", "application/wasm")
}

// Handler serves files from a directory, falling back to index.html for client routes.
type Handler struct {
	dir string
}

// NewHandler creates a handler for dir. A missing directory is logged, not fatal; the
// API still works without the browser client.
func NewHandler(dir string) *Handler {
	if _, err := os.Stat(dir); err != nil {
		slog.Warn("web client directory unavailable", "dir", dir, "error", err)
	}
	return &Handler{dir: dir}
}

// Serve returns an http.Handler for GET requests below prefix.
func (h *Handler) Serve(prefix string) http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix(prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		if name == "/" || !h.exists(name) {
			if path.Ext(name) != "" {
				http.NotFound(w, r)
				return
			}
			// Client-side route
			r.URL.Path = "/"
			name = "/index.html"
		}
		w.Header().Set("Cache-Control", cacheControl(name))
		fs.ServeHTTP(w, r)
	}))
}

func (h *Handler) exists(name string) bool {
	info, err := os.Stat(filepath.Join(h.dir, filepath.FromSlash(name)))
	return err == nil && !info.IsDir()
}

// cacheControl lets fingerprinted bundles be cached forever. The page and the wasm
// module keep their names across builds, so they are revalidated.
func cacheControl(name string) string {
	base := path.Base(name)
	if base == "index.html" || strings.HasSuffix(base, ".wasm") || base == "wasm_exec.js" {
		return "no-cache"
	}
	return "public, max-age=31536000, immutable"
}

package server

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/harunnryd/thinx/internal/logger"
	"github.com/harunnryd/thinx/internal/pathutil"

	"github.com/go-chi/chi/v5"
)

func (s *Server) page(name, missing string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.serveFile(w, r, filepath.Join(s.cfg.Paths.Web, name), missing)
	}
}

// handleWebFile serves single top-level files such as avatar.png.
func (s *Server) handleWebFile(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(s.cfg.Paths.Web, chi.URLParam(r, "filename"))
	if !pathutil.Within(path, []string{s.cfg.Paths.Web}) {
		writeText(w, http.StatusNotFound, "File not found")
		return
	}
	s.serveFile(w, r, path, "File not found")
}

// handleImage serves any file under the allowed roots. Everything else,
// including a path that does not exist, is a 404.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("path")
	if raw == "" {
		writeText(w, http.StatusBadRequest, "No path specified")
		return
	}

	resolved, err := pathutil.Canonical(raw)
	if err != nil || !pathutil.Within(resolved, s.cfg.Paths.AllowedRoots) {
		logger.FromContext(r.Context()).Warn("Image path rejected", "path", raw)
		writeText(w, http.StatusNotFound, "File not found or not allowed")
		return
	}
	s.serveFile(w, r, resolved, "File not found or not allowed")
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, path, missing string) {
	f, err := os.Open(path)
	if err != nil {
		writeText(w, http.StatusNotFound, missing)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeText(w, http.StatusNotFound, missing)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/harunnryd/thinx/internal/config"
	"github.com/harunnryd/thinx/internal/errors"
	"github.com/harunnryd/thinx/internal/logger"
)

const uploadTimestampLayout = "20060102_150405"

var unsafeFilenameChars = regexp.MustCompile(`[^\w\s\-.]`)

// sanitizeFilename keeps ASCII word characters, whitespace, dashes and dots.
func sanitizeFilename(name string) string {
	ascii := strings.Map(func(r rune) rune {
		if r > 127 {
			return -1
		}
		return r
	}, name)
	safe := strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(ascii, ""))
	if safe == "" || safe == "." || safe == ".." {
		return "upload"
	}
	return safe
}

type uploadResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	// The byte ceiling bounds uploads, not server.read_timeout.
	if err := http.NewResponseController(w).SetReadDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Debug("Could not clear read deadline", "error", err)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No file provided"})
		return
	}
	part, err := reader.NextPart()
	if err != nil || part.FormName() != "file" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No file provided"})
		return
	}
	defer part.Close()

	maxBytes := s.cfg.Upload.MaxBytes
	if maxBytes <= 0 {
		maxBytes = config.DefaultUploadMaxBytes
	}

	name := s.now().Format(uploadTimestampLayout) + "_" + sanitizeFilename(part.FileName())
	dir, err := filepath.Abs(s.cfg.Paths.Downloads)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Error("Upload error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	path := filepath.Join(dir, name)

	size, err := writeBounded(path, part, maxBytes)
	switch {
	case errors.Is(err, errors.ErrTooLarge):
		log.Warn("Upload rejected", "filename", name, "limit", maxBytes)
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
			Error: fmt.Sprintf("File too large (max %dMB)", maxBytes/(1024*1024)),
		})
		return
	case err != nil:
		log.Error("Upload error", "filename", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	log.Info("Uploaded", "filename", name, "size", size)
	writeJSON(w, http.StatusOK, uploadResponse{Success: true, Filename: name, Path: path, Size: size})
}

// writeBounded copies src into path and removes the partial file as soon as
// more than limit bytes arrive.
func writeBounded(path string, src io.Reader, limit int64) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(f, io.LimitReader(src, limit+1))
	closeErr := f.Close()
	if err == nil && n > limit {
		err = errors.TooLarge(fmt.Sprintf("upload exceeds %d bytes", limit))
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return n, nil
}

package net

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"drawoverlay/internal/state"
)

// ImageField is the multipart field carrying the PNG payload.
const ImageField = "image"

var ErrNoImage = errors.New("no image provided")

// UploadResponse is the JSON body of every upload reply.
type UploadResponse struct {
	Success bool   `json:"success"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
}

// UploadHandler stores one posted image per request under Dir and answers
// with its root-relative path. It performs no authentication, quota or
// content-type checks.
type UploadHandler struct {
	Dir      string
	MaxBytes int64

	// OnSaved is called with the public path after a successful write.
	OnSaved func(path string)

	now func() time.Time
}

func NewUploadHandler(dir string, maxBytes int64) *UploadHandler {
	return &UploadHandler{Dir: dir, MaxBytes: maxBytes, now: time.Now}
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slog.Default().With("component", "upload", "remote", r.RemoteAddr)
	log.Debug("request received", "content_type", r.Header.Get("Content-Type"))

	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}

	file, header, err := r.FormFile(ImageField)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
		log.Warn("upload without image", "err", err)
		writeJSON(w, http.StatusBadRequest, UploadResponse{Message: ErrNoImage.Error()})
		return
	case err != nil:
		log.Error("reading form failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, UploadResponse{Message: err.Error()})
		return
	}
	defer file.Close()

	log.Info("file received", "name", header.Filename, "type", header.Header.Get("Content-Type"), "size", header.Size)

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error("reading payload failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, UploadResponse{Message: err.Error()})
		return
	}

	name, err := h.store(data)
	if err != nil {
		log.Error("saving failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, UploadResponse{Message: err.Error()})
		return
	}

	path := "/" + name
	log.Info("saved", "path", path, "bytes", len(data))
	writeJSON(w, http.StatusOK, UploadResponse{Success: true, Path: path})

	if h.OnSaved != nil {
		h.OnSaved(path)
	}
}

// store writes data under a fresh name. Files are created exclusively so a
// name collision retries instead of overwriting.
func (h *UploadHandler) store(data []byte) (string, error) {
	now := time.Now
	if h.now != nil {
		now = h.now
	}

	for attempt := 0; attempt < 3; attempt++ {
		name := state.NewImageName(now())
		f, err := os.OpenFile(filepath.Join(h.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", err
		}
		return name, f.Close()
	}
	return "", fmt.Errorf("could not allocate a unique file name in %s", h.Dir)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response failed", "err", err)
	}
}

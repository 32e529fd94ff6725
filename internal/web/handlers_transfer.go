package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/JonMunkholm/clueboard/internal/apperr"
	"github.com/JonMunkholm/clueboard/internal/board"
	"github.com/JonMunkholm/clueboard/internal/logging"
	"github.com/google/uuid"
)

// handleExport streams the whole board as a JSON attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.board.Export(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="clueboard.json"`)
	w.WriteHeader(http.StatusOK)
	if err := board.WriteDocument(w, doc); err != nil {
		logging.FromContext(r.Context()).Error("export write failed", "error", err)
	}
}

// handleImport replaces the board with an uploaded JSON document.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.formFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(header.Filename, ".json") {
		s.respondError(w, r, apperr.BadFile("invalid file"))
		return
	}

	if err := s.acquireTransfer(r); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.transfers.Release()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, apperr.BadFile("failed to read file"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Upload.ImportTimeout)
	defer cancel()

	res, err := s.board.Import(ctx, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
		board.ImportResult
	}{"data imported", res})
}

// handleUpload stores an image under a fresh name and returns its URL.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.formFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	ext, ok := s.imageExt(header.Filename)
	if !ok {
		s.respondError(w, r, apperr.BadFile("file type not allowed"))
		return
	}

	if err := s.acquireTransfer(r); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.transfers.Release()

	name := uuid.NewString() + "." + ext
	if err := saveFile(s.uploadDir(), name, file); err != nil {
		s.respondError(w, r, apperr.Internal(fmt.Errorf("save upload: %w", err)))
		return
	}

	logging.FromContext(r.Context()).Info("image uploaded", "file", name, "size", header.Size)
	writeJSON(w, http.StatusOK, struct {
		URL string `json:"url"`
	}{path.Join("/static/uploads", name)})
}

// formFile limits the body and returns the multipart "file" part.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, apperr.BadFile(fmt.Sprintf("file exceeds %d bytes", maxErr.Limit))
		}
		return nil, nil, apperr.BadFile("invalid multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, apperr.BadFile("no file provided")
	}
	if header.Filename == "" {
		file.Close()
		return nil, nil, apperr.BadFile("no file selected")
	}
	return file, header, nil
}

// imageExt returns the lower-cased extension when it is an accepted image type.
func (s *Server) imageExt(filename string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filepath.Base(filename)), "."))
	if ext == "" || !slices.Contains(s.cfg.Upload.ImageExtensions, ext) {
		return "", false
	}
	return ext, true
}

func saveFile(dir, name string, src io.Reader) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

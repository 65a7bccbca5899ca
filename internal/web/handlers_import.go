package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/ContentImport/internal/core"
	"github.com/JonMunkholm/ContentImport/internal/logging"
)

// importResponse is the JSON body returned by POST /api/import.
type importResponse struct {
	BatchID    string         `json:"batch_id"`
	Success    bool           `json:"success"`
	Status     core.Status    `json:"status"`
	Message    string         `json:"message"`
	Created    int            `json:"created"`
	DurationMS int64          `json:"duration_ms"`
	Files      []fileResponse `json:"files"`
}

type fileResponse struct {
	File    string          `json:"file"`
	Created int             `json:"created"`
	Skipped int             `json:"skipped"`
	Message string          `json:"message"`
	Errors  []errorResponse `json:"errors,omitempty"`
}

type errorResponse struct {
	Kind    core.ErrorKind `json:"kind"`
	Code    string         `json:"code"`
	Row     int            `json:"row,omitempty"`
	Message string         `json:"message"`
}

// stagedFile is an upload written to local disk for the importer.
type stagedFile struct {
	original string
	path     string
}

// handleImport stages the uploaded files, imports them as one batch and
// returns the outcome. Staged files are removed on every path.
//
// Form fields: "files" (one or more) and "imageTypes" (repeated, e.g.
// ".png"). Without imageTypes the configured defaults apply.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxRequestSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("%w: request exceeds %d bytes", core.ErrInvalidRequest, maxSize), http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.respondError(w, r, core.ErrNoFiles, http.StatusBadRequest)
		return
	}
	if limit := s.cfg.Upload.MaxFiles; limit > 0 && len(headers) > limit {
		s.respondError(w, r, fmt.Errorf("%w: %d files, at most %d allowed", core.ErrInvalidRequest, len(headers), limit), http.StatusBadRequest)
		return
	}

	imageTypes := normalizeImageTypes(r.MultipartForm.Value["imageTypes"])
	if len(imageTypes) == 0 {
		imageTypes = s.cfg.Import.AllowedImageTypes
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer s.limiter.Release()

	staged, err := s.stage(headers)
	defer cleanupStaged(r.Context(), staged)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	if t := s.cfg.Upload.Timeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	paths := make([]string, len(staged))
	for i, f := range staged {
		paths[i] = f.path
	}

	outcome, err := s.importer.ImportBatch(ctx, paths, imageTypes)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	logging.FromContext(r.Context()).Info("import request completed",
		"batch_id", outcome.BatchID,
		"status", outcome.Status.String(),
		"files", len(staged),
	)

	status := http.StatusOK
	if !outcome.Success() {
		status = http.StatusBadRequest
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		ImportResult(buildResponse(outcome, staged)).Render(r.Context(), w) //nolint:errcheck
		return
	}
	writeJSON(w, status, buildResponse(outcome, staged))
}

// stage copies each upload to <staging dir>/<uuid><ext>. The returned slice
// holds every file written so far, even on error.
func (s *Server) stage(headers []*multipart.FileHeader) ([]stagedFile, error) {
	dir := s.cfg.Upload.StagingDir
	if dir == "" {
		dir = os.TempDir()
	}

	staged := make([]stagedFile, 0, len(headers))
	for _, h := range headers {
		name := filepath.Base(h.Filename)
		dst := filepath.Join(dir, uuid.NewString()+strings.ToLower(filepath.Ext(name)))

		if err := copyUpload(h, dst); err != nil {
			return staged, fmt.Errorf("stage %s: %w", name, err)
		}
		staged = append(staged, stagedFile{original: name, path: dst})
	}
	return staged, nil
}

func copyUpload(h *multipart.FileHeader, dst string) (err error) {
	src, err := h.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	_, err = io.Copy(out, src)
	return err
}

func cleanupStaged(ctx context.Context, staged []stagedFile) {
	for _, f := range staged {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.FromContext(ctx).Warn("staged file not removed", "path", f.path, "error", err)
		}
	}
}

// normalizeImageTypes lower-cases the values, adds a missing leading dot and
// drops blanks and repeats.
func normalizeImageTypes(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			ext := strings.ToLower(strings.TrimSpace(part))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			if !seen[ext] {
				seen[ext] = true
				out = append(out, ext)
			}
		}
	}
	return out
}

// buildResponse reports files by their uploaded names rather than the
// staging paths.
func buildResponse(outcome *core.ImportOutcome, staged []stagedFile) importResponse {
	names := make(map[string]string, len(staged))
	for _, f := range staged {
		names[f.path] = f.original
	}
	display := func(s string) string {
		for path, name := range names {
			s = strings.ReplaceAll(s, path, name)
		}
		return s
	}

	resp := importResponse{
		BatchID:    outcome.BatchID,
		Success:    outcome.Success(),
		Status:     outcome.Status,
		Message:    display(outcome.Message()),
		Created:    outcome.Created(),
		DurationMS: outcome.Duration.Round(time.Millisecond).Milliseconds(),
		Files:      make([]fileResponse, len(outcome.Files)),
	}
	for i, fr := range outcome.Files {
		out := fileResponse{
			File:    display(fr.Path),
			Created: fr.Created,
			Skipped: fr.Skipped,
			Message: display(fr.Message()),
		}
		for _, e := range fr.Errors {
			out.Errors = append(out.Errors, errorResponse{
				Kind:    e.Kind,
				Code:    core.MapError(e).Code,
				Row:     e.Row,
				Message: display(e.Error()),
			})
		}
		resp.Files[i] = out
	}
	return resp
}

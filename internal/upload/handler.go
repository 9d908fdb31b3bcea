// Package upload validates incoming audio files and persists them as
// pipeline artifacts.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/echopost/echopost/internal/pipeline"
	"github.com/echopost/echopost/internal/store"
)

// allowedFormats is the audio extension allow-list.
var allowedFormats = map[string]bool{
	"mp3":  true,
	"wav":  true,
	"m4a":  true,
	"ogg":  true,
	"flac": true,
}

// AllowedFormats returns the supported upload formats.
func AllowedFormats() []string {
	return []string{"mp3", "wav", "m4a", "ogg", "flac"}
}

// Storage is the slice of the artifact store the handler needs.
type Storage interface {
	PutAudio(ctx context.Context, rec *store.UploadedAudio) (string, error)
	GetAudio(ctx context.Context, id string) (*store.UploadedAudio, error)
	DeleteAudio(ctx context.Context, id string) error
}

// Handler validates and stores uploaded audio files.
type Handler struct {
	storage     Storage
	uploadDir   string
	maxBytes    int64
	maxDuration float64
	logger      *slog.Logger
}

// NewHandler creates an upload handler. maxDurationSeconds of 0 disables the
// duration check.
func NewHandler(storage Storage, uploadDir string, maxBytes int64, maxDurationSeconds int, logger *slog.Logger) *Handler {
	return &Handler{
		storage:     storage,
		uploadDir:   uploadDir,
		maxBytes:    maxBytes,
		maxDuration: float64(maxDurationSeconds),
		logger:      logger,
	}
}

// Save validates the upload, writes it to the upload directory, and persists
// an UploadedAudio record. declaredDuration is the caller-supplied duration in
// seconds, used for formats whose duration cannot be probed from the file;
// pass 0 when unknown.
func (h *Handler) Save(ctx context.Context, filename string, declaredDuration float64, file io.Reader) (*store.UploadedAudio, error) {
	format, problems := validateFilename(filename)
	if len(problems) > 0 {
		return nil, &pipeline.ValidationError{Problems: problems}
	}

	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	id := uuid.NewString()
	storedName := fmt.Sprintf("%s_%s_%s", id, time.Now().Format("20060102_150405"), sanitizeFilename(filename))
	storedPath := filepath.Join(h.uploadDir, storedName)

	size, err := h.writeFile(storedPath, file)
	if err != nil {
		var validationErr *pipeline.ValidationError
		if errors.As(err, &validationErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	duration := declaredDuration
	if format == "wav" {
		if probed, err := probeWAVDuration(storedPath); err == nil {
			duration = probed
		}
	}
	if h.maxDuration > 0 && duration > h.maxDuration {
		_ = os.Remove(storedPath)
		return nil, &pipeline.ValidationError{Problems: []string{
			fmt.Sprintf("audio too long: maximum duration is %.1f minutes", h.maxDuration/60),
		}}
	}

	rec := &store.UploadedAudio{
		ID:              id,
		Filename:        filepath.Base(filename),
		StoredPath:      storedPath,
		SizeBytes:       size,
		DurationSeconds: duration,
		Format:          format,
	}
	if _, err := h.storage.PutAudio(ctx, rec); err != nil {
		_ = os.Remove(storedPath)
		return nil, fmt.Errorf("failed to persist audio record: %w", err)
	}

	h.logger.Info("Audio uploaded",
		"audio_id", rec.ID,
		"filename", rec.Filename,
		"size_bytes", rec.SizeBytes,
		"format", rec.Format,
	)
	return rec, nil
}

// Delete removes an uploaded file and its record.
func (h *Handler) Delete(ctx context.Context, audioID string) error {
	rec, err := h.storage.GetAudio(ctx, audioID)
	if err != nil {
		return err
	}

	if err := os.Remove(rec.StoredPath); err != nil && !os.IsNotExist(err) {
		h.logger.Warn("Failed to remove stored file", "path", rec.StoredPath, "error", err)
	}

	if err := h.storage.DeleteAudio(ctx, audioID); err != nil {
		return err
	}

	h.logger.Info("Audio deleted", "audio_id", audioID)
	return nil
}

// writeFile copies the upload to disk, enforcing the size cap and rejecting
// empty files. The partial file is removed on any failure.
func (h *Handler) writeFile(path string, file io.Reader) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(out, io.LimitReader(file, h.maxBytes+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}

	if written == 0 {
		_ = os.Remove(path)
		return 0, &pipeline.ValidationError{Problems: []string{"file is empty"}}
	}
	if written > h.maxBytes {
		_ = os.Remove(path)
		return 0, &pipeline.ValidationError{Problems: []string{
			fmt.Sprintf("file too large: maximum size is %.1fMB", float64(h.maxBytes)/(1024*1024)),
		}}
	}
	return written, nil
}

func validateFilename(filename string) (format string, problems []string) {
	if strings.TrimSpace(filename) == "" {
		return "", []string{"no filename provided"}
	}

	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return "", []string{"file has no extension"}
	}

	format = strings.ToLower(ext)
	if !allowedFormats[format] {
		return "", []string{
			fmt.Sprintf("invalid file format %q: supported formats are %s", format, strings.Join(AllowedFormats(), ", ")),
		}
	}
	return format, nil
}

// sanitizeFilename strips path components and any character outside a safe
// set, so stored names are filesystem-neutral.
func sanitizeFilename(filename string) string {
	base := filepath.Base(filename)
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/echopost/echopost/internal/pipeline"
	"github.com/echopost/echopost/internal/store"
)

// Storage is the slice of the artifact store the stage needs.
type Storage interface {
	GetAudio(ctx context.Context, id string) (*store.UploadedAudio, error)
	PutTranscript(ctx context.Context, rec *store.Transcript) (string, error)
	GetTranscript(ctx context.Context, id string) (*store.Transcript, error)
	UpdateTranscriptText(ctx context.Context, id, text string, editedAt time.Time) error
}

// Stage turns an uploaded audio reference into a persisted transcript.
type Stage struct {
	storage    Storage
	capability Capability
	logger     *slog.Logger
}

// NewStage creates a transcription stage.
func NewStage(storage Storage, capability Capability, logger *slog.Logger) *Stage {
	return &Stage{
		storage:    storage,
		capability: capability,
		logger:     logger,
	}
}

// Transcribe invokes the speech-to-text capability for an uploaded audio file
// and persists the result as a new transcript version. Nothing is persisted
// on capability failure, so the caller may retry without side effects.
func (s *Stage) Transcribe(ctx context.Context, audioID string) (*store.Transcript, error) {
	audio, err := s.storage.GetAudio(ctx, audioID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("audio %s: %w", audioID, pipeline.ErrInvalidReference)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Starting transcription",
		"audio_id", audioID,
		"path", audio.StoredPath,
		"duration_seconds", audio.DurationSeconds,
	)

	result, err := s.capability.Transcribe(ctx, audio.StoredPath)
	if err != nil {
		s.logger.Error("Transcription capability failed", "audio_id", audioID, "error", err)
		return nil, &pipeline.CapabilityError{Capability: "transcription", Cause: err}
	}

	rec := &store.Transcript{
		AudioID:               audioID,
		Text:                  result.Text,
		Language:              result.Language,
		Confidence:            result.Confidence,
		ProcessingTimeSeconds: result.ElapsedSeconds,
	}
	if _, err := s.storage.PutTranscript(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist transcript: %w", err)
	}

	s.logger.Info("Transcription complete",
		"audio_id", audioID,
		"transcript_id", rec.ID,
		"language", rec.Language,
		"processing_seconds", rec.ProcessingTimeSeconds,
	)
	return rec, nil
}

// Edit applies user-provided text to an existing transcript. This is the only
// mutation path for transcript text outside the stage itself.
func (s *Stage) Edit(ctx context.Context, transcriptID, text string) (*store.Transcript, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &pipeline.ValidationError{Problems: []string{"transcript text cannot be empty"}}
	}

	if _, err := s.storage.GetTranscript(ctx, transcriptID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("transcript %s: %w", transcriptID, pipeline.ErrInvalidReference)
		}
		return nil, err
	}

	editedAt := time.Now().UTC()
	if err := s.storage.UpdateTranscriptText(ctx, transcriptID, text, editedAt); err != nil {
		return nil, fmt.Errorf("failed to update transcript: %w", err)
	}

	s.logger.Info("Transcript edited", "transcript_id", transcriptID)
	return s.storage.GetTranscript(ctx, transcriptID)
}

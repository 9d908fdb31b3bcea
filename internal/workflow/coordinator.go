package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/echopost/echopost/internal/generate"
	"github.com/echopost/echopost/internal/pipeline"
	"github.com/echopost/echopost/internal/store"
)

// Coordinator owns the stage sequence for every session. It enforces stage
// preconditions before delegating to a stage, and durably saves the session
// state after every transition so an interrupted session resumes where it
// stopped. A failed operation never moves the stage pointer.
type Coordinator struct {
	storage     Storage
	uploads     Uploader
	transcriber Transcriber
	generator   Generator
	exporter    Exporter
	logger      *slog.Logger
}

// New creates a workflow coordinator.
func New(storage Storage, uploads Uploader, transcriber Transcriber, generator Generator, exporter Exporter, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		storage:     storage,
		uploads:     uploads,
		transcriber: transcriber,
		generator:   generator,
		exporter:    exporter,
		logger:      logger,
	}
}

// Resume loads the persisted state for a session, falling back to a fresh
// state at UPLOAD when none exists or the saved record is unusable. Corrupt
// state is never an initialization error.
func (c *Coordinator) Resume(ctx context.Context, sessionID string) (*State, error) {
	rec, err := c.storage.LoadWorkflowState(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return NewState(sessionID), nil
	}
	if err != nil {
		c.logger.Warn("Failed to load workflow state, starting fresh", "session_id", sessionID, "error", err)
		return NewState(sessionID), nil
	}

	stage, ok := ParseStage(rec.CurrentStage)
	if !ok {
		c.logger.Warn("Discarding corrupt workflow state",
			"session_id", sessionID,
			"stage", rec.CurrentStage,
		)
		return NewState(sessionID), nil
	}

	return &State{
		SessionID:    sessionID,
		CurrentStage: stage,
		AudioID:      rec.AudioID,
		TranscriptID: rec.TranscriptID,
		PostSetID:    rec.PostSetID,
	}, nil
}

// Upload runs the upload stage: validate and store the file, then advance the
// session to TRANSCRIBE. A new file starts a new pipeline run, so stale
// transcript and post set references are dropped (the records themselves are
// kept addressable).
func (c *Coordinator) Upload(ctx context.Context, state *State, filename string, declaredDuration float64, file io.Reader) (*store.UploadedAudio, error) {
	rec, err := c.uploads.Save(ctx, filename, declaredDuration, file)
	if err != nil {
		return nil, err
	}

	state.AudioID = rec.ID
	state.TranscriptID = ""
	state.PostSetID = ""
	return rec, c.transition(ctx, state, StageTranscribe)
}

// Transcribe runs the transcription stage for the session's audio and
// advances to GENERATE. Requires a prior successful upload.
func (c *Coordinator) Transcribe(ctx context.Context, state *State) (*store.Transcript, error) {
	if state.AudioID == "" {
		return nil, fmt.Errorf("no audio uploaded for session %s: %w", state.SessionID, pipeline.ErrInvalidReference)
	}

	transcript, err := c.transcriber.Transcribe(ctx, state.AudioID)
	if err != nil {
		return nil, err
	}

	state.TranscriptID = transcript.ID
	return transcript, c.transition(ctx, state, StageGenerate)
}

// EditTranscript applies a user edit to the session's transcript. Editing
// leaves any existing post set untouched; regenerating afterwards is the
// caller's decision.
func (c *Coordinator) EditTranscript(ctx context.Context, state *State, text string) (*store.Transcript, error) {
	if state.TranscriptID == "" {
		return nil, fmt.Errorf("no transcript for session %s: %w", state.SessionID, pipeline.ErrInvalidReference)
	}

	transcript, err := c.transcriber.Edit(ctx, state.TranscriptID, text)
	if err != nil {
		return nil, err
	}
	return transcript, c.transition(ctx, state, StageGenerate)
}

// Generate runs the generation stage for the session's transcript. The
// session stays in GENERATE afterwards: the posts are ready for review,
// regeneration, or export.
func (c *Coordinator) Generate(ctx context.Context, state *State, platforms []generate.Platform, tone generate.Tone) (*generate.Result, error) {
	if state.TranscriptID == "" {
		return nil, fmt.Errorf("no transcript for session %s: %w", state.SessionID, pipeline.ErrInvalidReference)
	}

	result, err := c.generator.Generate(ctx, state.TranscriptID, platforms, tone)
	if err != nil {
		return nil, err
	}

	state.PostSetID = result.PostSet.ID
	return result, c.transition(ctx, state, StageGenerate)
}

// Regenerate replaces a single platform's post in the session's post set.
// The stage pointer does not move.
func (c *Coordinator) Regenerate(ctx context.Context, state *State, platform generate.Platform, tone generate.Tone) (string, *generate.LimitWarning, error) {
	if state.PostSetID == "" || state.TranscriptID == "" {
		return "", nil, fmt.Errorf("no generated posts for session %s: %w", state.SessionID, pipeline.ErrInvalidReference)
	}
	return c.generator.Regenerate(ctx, state.PostSetID, state.TranscriptID, platform, tone)
}

// Export writes the session's post set to the export directory and advances
// to EXPORT. Requires a post set with at least one platform entry.
func (c *Coordinator) Export(ctx context.Context, state *State) ([]string, error) {
	if state.PostSetID == "" {
		return nil, fmt.Errorf("no generated posts for session %s: %w", state.SessionID, pipeline.ErrInvalidReference)
	}

	postSet, err := c.storage.GetPostSet(ctx, state.PostSetID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("post set %s: %w", state.PostSetID, pipeline.ErrInvalidReference)
	}
	if err != nil {
		return nil, err
	}
	if len(postSet.PlatformPosts) == 0 {
		return nil, fmt.Errorf("post set %s has no platform entries: %w", state.PostSetID, pipeline.ErrInvalidReference)
	}

	paths, err := c.exporter.Export(ctx, postSet)
	if err != nil {
		return nil, err
	}
	return paths, c.transition(ctx, state, StageExport)
}

// ChangeFile returns the session to UPLOAD and drops all artifact references
// from the state. The underlying records stay addressable by id.
func (c *Coordinator) ChangeFile(ctx context.Context, state *State) error {
	state.AudioID = ""
	state.TranscriptID = ""
	state.PostSetID = ""
	return c.transition(ctx, state, StageUpload)
}

// ReviseTranscript returns the session to TRANSCRIBE so the transcript can be
// re-edited or re-transcribed. The existing post set reference is kept; the
// caller decides whether to prompt for regeneration.
func (c *Coordinator) ReviseTranscript(ctx context.Context, state *State) error {
	if state.AudioID == "" {
		return fmt.Errorf("no audio uploaded for session %s: %w", state.SessionID, pipeline.ErrInvalidReference)
	}
	return c.transition(ctx, state, StageTranscribe)
}

// Reset clears the session entirely: fresh state at UPLOAD, persisted state
// removed.
func (c *Coordinator) Reset(ctx context.Context, state *State) error {
	if err := c.storage.ClearWorkflowState(ctx, state.SessionID); err != nil {
		return err
	}

	state.CurrentStage = StageUpload
	state.AudioID = ""
	state.TranscriptID = ""
	state.PostSetID = ""

	c.logger.Info("Workflow reset", "session_id", state.SessionID)
	return nil
}

// transition moves the session to a stage and durably saves the state.
func (c *Coordinator) transition(ctx context.Context, state *State, stage Stage) error {
	previous := state.CurrentStage
	state.CurrentStage = stage

	rec := &store.StateRecord{
		SessionID:    state.SessionID,
		CurrentStage: string(state.CurrentStage),
		AudioID:      state.AudioID,
		TranscriptID: state.TranscriptID,
		PostSetID:    state.PostSetID,
	}
	if err := c.storage.SaveWorkflowState(ctx, rec); err != nil {
		state.CurrentStage = previous
		return fmt.Errorf("failed to save workflow state: %w", err)
	}

	c.logger.Debug("Workflow transition",
		"session_id", state.SessionID,
		"from", previous,
		"to", stage,
	)
	return nil
}

// DeleteAudio removes an uploaded file through the upload collaborator. When
// the session currently references the deleted audio it is returned to
// UPLOAD, matching ChangeFile semantics.
func (c *Coordinator) DeleteAudio(ctx context.Context, state *State, audioID string) error {
	if err := c.uploads.Delete(ctx, audioID); err != nil {
		return err
	}
	if state != nil && state.AudioID == audioID {
		return c.ChangeFile(ctx, state)
	}
	return nil
}

package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/echopost/echopost/internal/generate"
	"github.com/echopost/echopost/internal/pipeline"
	"github.com/echopost/echopost/internal/store"
	"github.com/echopost/echopost/internal/upload"
	"github.com/echopost/echopost/internal/workflow"
	"github.com/echopost/echopost/pkg/collections"
)

// sessionHeader names the client session. Browser clients that never set it
// share the default session, matching single-user desktop use.
const sessionHeader = "X-Session-ID"

func sessionID(c *gin.Context) string {
	if id := c.GetHeader(sessionHeader); id != "" {
		return id
	}
	return "default"
}

// resume loads the caller's workflow state, falling back to a fresh session.
func (s *Server) resume(c *gin.Context) *workflow.State {
	state, err := s.coordinator.Resume(c.Request.Context(), sessionID(c))
	if err != nil {
		// Resume treats unusable state as fresh, so this is unreachable in
		// practice; keep the fallback anyway.
		return workflow.NewState(sessionID(c))
	}
	return state
}

// statusForError maps the pipeline failure taxonomy to HTTP status codes.
func statusForError(err error) int {
	var validationErr *pipeline.ValidationError
	var capabilityErr *pipeline.CapabilityError

	switch {
	case errors.Is(err, pipeline.ErrInvalidReference), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrNoPlatformSelected):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrMismatchedTranscript):
		return http.StatusConflict
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &capabilityErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "echopost",
	})
}

// handleStorageHealth verifies the artifact database is reachable.
func (s *Server) handleStorageHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": s.store.Path(),
	})
}

// handleUpload accepts a multipart audio file and starts a new pipeline run
// for the session. An optional "duration" form field declares the duration in
// seconds for formats the server cannot probe.
func (s *Server) handleUpload(c *gin.Context) {
	state := s.resume(c)

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":           "missing audio file",
			"allowed_formats": upload.AllowedFormats(),
		})
		return
	}

	declaredDuration, _ := strconv.ParseFloat(c.PostForm("duration"), 64)

	file, err := fileHeader.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer file.Close()

	rec, err := s.coordinator.Upload(c.Request.Context(), state, fileHeader.Filename, declaredDuration, file)
	if err != nil {
		s.metrics.RecordUpload(false, 0)
		s.fail(c, err)
		return
	}
	s.metrics.RecordUpload(true, rec.SizeBytes)

	c.JSON(http.StatusCreated, gin.H{
		"audio": audioResponse(rec),
		"stage": state.CurrentStage,
	})
}

// handleDeleteFile removes an uploaded audio file and its stored record.
// Transcripts derived from it stay addressable.
func (s *Server) handleDeleteFile(c *gin.Context) {
	state := s.resume(c)

	audioID := c.Param("id")
	if err := s.coordinator.DeleteAudio(c.Request.Context(), state, audioID); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted": audioID,
		"stage":   state.CurrentStage,
	})
}

// handleTranscribe runs transcription for the session's uploaded audio.
func (s *Server) handleTranscribe(c *gin.Context) {
	state := s.resume(c)

	transcript, err := s.coordinator.Transcribe(c.Request.Context(), state)
	if err != nil {
		s.metrics.RecordTranscription(false, 0)
		s.fail(c, err)
		return
	}
	s.metrics.RecordTranscription(true, transcript.ProcessingTimeSeconds)

	c.JSON(http.StatusOK, gin.H{
		"transcript": transcriptResponse(transcript),
		"stage":      state.CurrentStage,
	})
}

func (s *Server) handleGetTranscript(c *gin.Context) {
	transcript, err := s.store.GetTranscript(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": transcriptResponse(transcript)})
}

// handleListTranscripts returns all transcript versions for an audio file,
// oldest first.
func (s *Server) handleListTranscripts(c *gin.Context) {
	audioID := c.Query("audio_id")
	if audioID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio_id query parameter is required"})
		return
	}

	transcripts, err := s.store.ListTranscripts(c.Request.Context(), audioID)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transcripts": collections.Apply(transcripts, transcriptResponse)})
}

type editTranscriptRequest struct {
	Text string `json:"text"`
}

// handleEditTranscript replaces the text of the session's transcript.
func (s *Server) handleEditTranscript(c *gin.Context) {
	state := s.resume(c)

	var req editTranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	// Edits go through the session so the stage pointer stays consistent.
	if c.Param("id") != state.TranscriptID {
		c.JSON(http.StatusConflict, gin.H{"error": "transcript is not the session's active transcript"})
		return
	}

	transcript, err := s.coordinator.EditTranscript(c.Request.Context(), state, req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transcript": transcriptResponse(transcript),
		"stage":      state.CurrentStage,
	})
}

type generateRequest struct {
	Platforms []string `json:"platforms"`
	Tone      string   `json:"tone"`
}

// handleGeneratePosts generates posts for the requested platforms from the
// session's transcript. Partial failures return the succeeded posts plus the
// failed platform list.
func (s *Server) handleGeneratePosts(c *gin.Context) {
	state := s.resume(c)

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	platforms := make([]generate.Platform, 0, len(req.Platforms))
	for _, name := range req.Platforms {
		platform, err := generate.ParsePlatform(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		platforms = append(platforms, platform)
	}

	tone, err := generate.ParseTone(req.Tone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	started := time.Now()
	result, err := s.coordinator.Generate(c.Request.Context(), state, platforms, tone)
	if err != nil {
		for _, platform := range platforms {
			s.metrics.RecordGeneration(string(platform), false, 0)
		}
		s.fail(c, err)
		return
	}

	elapsed := time.Since(started).Seconds()
	for platform := range result.PostSet.PlatformPosts {
		s.metrics.RecordGeneration(platform, true, elapsed)
	}
	for _, failure := range result.Failed {
		s.metrics.RecordGeneration(string(failure.Platform), false, 0)
	}

	c.JSON(http.StatusOK, gin.H{
		"post_set": postSetResponse(result.PostSet),
		"failed":   result.Failed,
		"warnings": result.Warnings,
		"stage":    state.CurrentStage,
	})
}

type regenerateRequest struct {
	Platform string `json:"platform"`
	Tone     string `json:"tone"`
}

// handleRegeneratePost replaces a single platform's post in the session's
// post set. Other platforms are untouched.
func (s *Server) handleRegeneratePost(c *gin.Context) {
	state := s.resume(c)

	var req regenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	platform, err := generate.ParsePlatform(req.Platform)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tone, err := generate.ParseTone(req.Tone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	started := time.Now()
	content, warning, err := s.coordinator.Regenerate(c.Request.Context(), state, platform, tone)
	if err != nil {
		s.metrics.RecordGeneration(string(platform), false, 0)
		s.fail(c, err)
		return
	}
	s.metrics.RecordGeneration(string(platform), true, time.Since(started).Seconds())

	resp := gin.H{
		"platform": platform,
		"content":  content,
	}
	if warning != nil {
		resp["warning"] = warning
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetPostSet(c *gin.Context) {
	postSet, err := s.store.GetPostSet(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post_set": postSetResponse(postSet)})
}

// handleExport writes the session's post set to the export directory.
func (s *Server) handleExport(c *gin.Context) {
	state := s.resume(c)

	paths, err := s.coordinator.Export(c.Request.Context(), state)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files": paths,
		"stage": state.CurrentStage,
	})
}

func (s *Server) handleWorkflowStatus(c *gin.Context) {
	state := s.resume(c)
	c.JSON(http.StatusOK, stateResponse(state))
}

func (s *Server) handleWorkflowReset(c *gin.Context) {
	state := s.resume(c)

	if err := s.coordinator.Reset(c.Request.Context(), state); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stateResponse(state))
}

func audioResponse(rec *store.UploadedAudio) gin.H {
	return gin.H{
		"id":               rec.ID,
		"filename":         rec.Filename,
		"size_bytes":       rec.SizeBytes,
		"duration_seconds": rec.DurationSeconds,
		"format":           rec.Format,
		"uploaded_at":      rec.UploadedAt,
	}
}

func transcriptResponse(t *store.Transcript) gin.H {
	return gin.H{
		"id":                      t.ID,
		"audio_id":                t.AudioID,
		"text":                    t.Text,
		"language":                t.Language,
		"confidence":              t.Confidence,
		"processing_time_seconds": t.ProcessingTimeSeconds,
		"edited":                  t.Edited,
		"created_at":              t.CreatedAt,
	}
}

func postSetResponse(p *store.PostSet) gin.H {
	return gin.H{
		"id":            p.ID,
		"transcript_id": p.TranscriptID,
		"tone":          p.Tone,
		"posts":         p.PlatformPosts,
		"created_at":    p.CreatedAt,
		"updated_at":    p.UpdatedAt,
	}
}

func stateResponse(state *workflow.State) gin.H {
	return gin.H{
		"session_id":    state.SessionID,
		"stage":         state.CurrentStage,
		"audio_id":      state.AudioID,
		"transcript_id": state.TranscriptID,
		"post_set_id":   state.PostSetID,
	}
}

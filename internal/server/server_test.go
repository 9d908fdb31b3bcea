package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echopost/echopost/internal/config"
	"github.com/echopost/echopost/internal/export"
	"github.com/echopost/echopost/internal/generate"
	"github.com/echopost/echopost/internal/server"
	"github.com/echopost/echopost/internal/store"
	"github.com/echopost/echopost/internal/transcribe"
	"github.com/echopost/echopost/internal/upload"
	"github.com/echopost/echopost/internal/workflow"
)

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(_ context.Context, _ string) (transcribe.Result, error) {
	return transcribe.Result{
		Text:           "we shipped the release today",
		Language:       "en",
		Confidence:     1.0,
		ElapsedSeconds: 0.1,
	}, nil
}

type fakeGenerator struct{}

func (fakeGenerator) Generate(_ context.Context, _ string, platform generate.Platform, _ generate.Tone) (string, error) {
	return "post for " + string(platform), nil
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Env:                "test",
		Port:               "8080",
		HSTSMaxAge:         31536000,
		CSPMode:            "relaxed",
		LogLevel:           "info",
		UploadDir:          filepath.Join(dir, "audio"),
		DataDir:            filepath.Join(dir, "data"),
		ExportDir:          filepath.Join(dir, "exports"),
		StaticDir:          dir,
		MaxUploadBytes:     1 << 20,
		MaxDurationSeconds: 600,
	}
	require.NoError(t, cfg.EnsureDirectories())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.Open(cfg.DatabasePath())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	uploads := upload.NewHandler(st, cfg.UploadDir, cfg.MaxUploadBytes, cfg.MaxDurationSeconds, logger)
	transcriber := transcribe.NewStage(st, fakeTranscriber{}, logger)
	generator := generate.NewStage(st, fakeGenerator{}, logger)
	exporter := export.New(cfg.ExportDir, logger)
	coordinator := workflow.New(st, uploads, transcriber, generator, exporter, logger)

	return server.New(cfg, logger, st, coordinator)
}

func doJSON(t *testing.T, srv *server.Server, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func uploadFile(t *testing.T, srv *server.Server, session, filename, content string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("duration", "30"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Session-ID", session)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.Contains(t, w.Body.String(), "echopost")
}

func TestStorageHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/health/storage", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFullPipelineOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	session := "e2e"

	// Upload
	w := uploadFile(t, srv, session, "memo.mp3", "fake mp3 bytes")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	payload := decode(t, w)
	assert.Equal(t, "TRANSCRIBE", payload["stage"])

	// Transcribe
	w = doJSON(t, srv, http.MethodPost, "/api/transcribe", session, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	payload = decode(t, w)
	assert.Equal(t, "GENERATE", payload["stage"])
	transcript := payload["transcript"].(map[string]any)
	assert.Equal(t, "we shipped the release today", transcript["text"])
	transcriptID := transcript["id"].(string)

	// Edit the transcript
	w = doJSON(t, srv, http.MethodPut, "/api/transcription/"+transcriptID, session,
		map[string]any{"text": "we shipped the big release today"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Generate
	w = doJSON(t, srv, http.MethodPost, "/api/generate-posts", session,
		map[string]any{"platforms": []string{"twitter", "linkedin"}, "tone": "casual"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	payload = decode(t, w)
	postSet := payload["post_set"].(map[string]any)
	posts := postSet["posts"].(map[string]any)
	assert.Equal(t, "post for twitter", posts["twitter"])
	assert.Equal(t, "post for linkedin", posts["linkedin"])
	postSetID := postSet["id"].(string)

	// Regenerate one platform
	w = doJSON(t, srv, http.MethodPost, "/api/regenerate-post", session,
		map[string]any{"platform": "twitter", "tone": "witty"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Fetch the post set by id
	w = doJSON(t, srv, http.MethodGet, "/api/posts/"+postSetID, session, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Export
	w = doJSON(t, srv, http.MethodPost, "/api/export", session, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	payload = decode(t, w)
	assert.Len(t, payload["files"], 3)
	assert.Equal(t, "EXPORT", payload["stage"])

	// Workflow state persisted across requests
	w = doJSON(t, srv, http.MethodGet, "/api/workflow", session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	payload = decode(t, w)
	assert.Equal(t, "EXPORT", payload["stage"])
	assert.Equal(t, postSetID, payload["post_set_id"])
}

func TestUploadMissingFile(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/upload", "s1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing audio file")
	assert.Contains(t, w.Body.String(), "mp3")
}

func TestUploadRejectsBadFormat(t *testing.T) {
	srv := newTestServer(t)

	w := uploadFile(t, srv, "s1", "notes.txt", "not audio")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid file format")
}

func TestTranscribeWithoutUpload(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/transcribe", "s1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateRejectsUnknownPlatform(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/generate-posts", "s1",
		map[string]any{"platforms": []string{"myspace"}, "tone": "casual"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported platform")
}

func TestGenerateRejectsEmptyPlatforms(t *testing.T) {
	srv := newTestServer(t)
	session := "s1"

	w := uploadFile(t, srv, session, "memo.mp3", "bytes")
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, srv, http.MethodPost, "/api/transcribe", session, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/generate-posts", session,
		map[string]any{"platforms": []string{}, "tone": "casual"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTranscriptNotFound(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/transcription/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEditForeignTranscriptRejected(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPut, "/api/transcription/not-mine", "s1",
		map[string]any{"text": "new text"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListTranscriptsRequiresAudioID(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/transcriptions", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkflowReset(t *testing.T) {
	srv := newTestServer(t)
	session := "s1"

	w := uploadFile(t, srv, session, "memo.mp3", "bytes")
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/workflow/reset", session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	payload := decode(t, w)
	assert.Equal(t, "UPLOAD", payload["stage"])
	assert.Empty(t, payload["audio_id"])
}

func TestDeleteFile(t *testing.T) {
	srv := newTestServer(t)
	session := "s1"

	w := uploadFile(t, srv, session, "memo.mp3", "bytes")
	require.Equal(t, http.StatusCreated, w.Code)
	payload := decode(t, w)
	audioID := payload["audio"].(map[string]any)["id"].(string)

	w = doJSON(t, srv, http.MethodDelete, "/api/files/"+audioID, session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	payload = decode(t, w)
	// Deleting the session's own audio returns it to the upload stage
	assert.Equal(t, "UPLOAD", payload["stage"])

	w = doJSON(t, srv, http.MethodDelete, "/api/files/"+audioID, session, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionsAreIsolated(t *testing.T) {
	srv := newTestServer(t)

	w := uploadFile(t, srv, "session-a", "memo.mp3", "bytes")
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/workflow", "session-b", nil)
	require.Equal(t, http.StatusOK, w.Code)
	payload := decode(t, w)
	assert.Equal(t, "UPLOAD", payload["stage"])

	w = doJSON(t, srv, http.MethodGet, "/api/workflow", "session-a", nil)
	payload = decode(t, w)
	assert.Equal(t, "TRANSCRIBE", payload["stage"])
}

package upload_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echopost/echopost/internal/pipeline"
	"github.com/echopost/echopost/internal/store"
	"github.com/echopost/echopost/internal/upload"
)

type fakeStorage struct {
	audio map[string]*store.UploadedAudio
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{audio: make(map[string]*store.UploadedAudio)}
}

func (f *fakeStorage) PutAudio(_ context.Context, rec *store.UploadedAudio) (string, error) {
	f.audio[rec.ID] = rec
	return rec.ID, nil
}

func (f *fakeStorage) GetAudio(_ context.Context, id string) (*store.UploadedAudio, error) {
	rec, ok := f.audio[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStorage) DeleteAudio(_ context.Context, id string) error {
	if _, ok := f.audio[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.audio, id)
	return nil
}

func newHandler(t *testing.T, storage *fakeStorage, maxBytes int64, maxDuration int) *upload.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return upload.NewHandler(storage, t.TempDir(), maxBytes, maxDuration, logger)
}

// wavBytes builds a minimal RIFF/WAVE file whose data length divided by the
// byte rate gives the wanted duration.
func wavBytes(byteRate uint32, seconds float64) []byte {
	dataSize := uint32(float64(byteRate) * seconds)

	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+dataSize))
	b.WriteString("WAVE")

	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))        // PCM
	binary.Write(&b, binary.LittleEndian, uint16(1))        // channels
	binary.Write(&b, binary.LittleEndian, uint32(16000))    // sample rate
	binary.Write(&b, binary.LittleEndian, byteRate)         // byte rate
	binary.Write(&b, binary.LittleEndian, uint16(2))        // block align
	binary.Write(&b, binary.LittleEndian, uint16(16))       // bits per sample

	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, dataSize)
	b.Write(make([]byte, dataSize))

	return b.Bytes()
}

func TestSaveValidFile(t *testing.T) {
	storage := newFakeStorage()
	handler := newHandler(t, storage, 1<<20, 600)

	rec, err := handler.Save(context.Background(), "My Memo.mp3", 30, strings.NewReader("fake mp3 bytes"))
	require.NoError(t, err)

	assert.Equal(t, "My Memo.mp3", rec.Filename)
	assert.Equal(t, "mp3", rec.Format)
	assert.Equal(t, int64(len("fake mp3 bytes")), rec.SizeBytes)
	assert.Equal(t, 30.0, rec.DurationSeconds)

	// Stored name embeds the record id and a sanitized original name
	base := filepath.Base(rec.StoredPath)
	assert.True(t, strings.HasPrefix(base, rec.ID+"_"), "stored name %q should start with the id", base)
	assert.True(t, strings.HasSuffix(base, "My_Memo.mp3"), "stored name %q should end with the sanitized name", base)

	_, err = os.Stat(rec.StoredPath)
	require.NoError(t, err)

	stored, err := storage.GetAudio(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.StoredPath, stored.StoredPath)
}

func TestSaveRejectsUnsupportedFormat(t *testing.T) {
	handler := newHandler(t, newFakeStorage(), 1<<20, 600)

	_, err := handler.Save(context.Background(), "notes.txt", 0, strings.NewReader("text"))

	var validationErr *pipeline.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Problems[0], "invalid file format")
}

func TestSaveRejectsMissingExtension(t *testing.T) {
	handler := newHandler(t, newFakeStorage(), 1<<20, 600)

	_, err := handler.Save(context.Background(), "noextension", 0, strings.NewReader("x"))

	var validationErr *pipeline.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestSaveRejectsEmptyFile(t *testing.T) {
	storage := newFakeStorage()
	handler := newHandler(t, storage, 1<<20, 600)

	_, err := handler.Save(context.Background(), "empty.mp3", 0, strings.NewReader(""))

	var validationErr *pipeline.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Empty(t, storage.audio)
}

func TestSaveRejectsOversizeFile(t *testing.T) {
	storage := newFakeStorage()
	handler := newHandler(t, storage, 16, 600)

	_, err := handler.Save(context.Background(), "big.mp3", 0, strings.NewReader(strings.Repeat("x", 64)))

	var validationErr *pipeline.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Problems[0], "file too large")
	assert.Empty(t, storage.audio)
}

func TestSaveProbesWAVDuration(t *testing.T) {
	storage := newFakeStorage()
	handler := newHandler(t, storage, 1<<20, 600)

	// Declared duration is ignored when the header is readable
	rec, err := handler.Save(context.Background(), "memo.wav", 1, bytes.NewReader(wavBytes(16000, 2)))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, rec.DurationSeconds, 0.01)
}

func TestSaveRejectsOverlongAudio(t *testing.T) {
	storage := newFakeStorage()
	handler := newHandler(t, storage, 1<<20, 1)

	_, err := handler.Save(context.Background(), "long.wav", 0, bytes.NewReader(wavBytes(16000, 3)))

	var validationErr *pipeline.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Problems[0], "audio too long")
	assert.Empty(t, storage.audio)
}

func TestSaveUsesDeclaredDurationForOpaqueFormats(t *testing.T) {
	storage := newFakeStorage()
	handler := newHandler(t, storage, 1<<20, 600)

	rec, err := handler.Save(context.Background(), "memo.m4a", 123.4, strings.NewReader("opaque"))
	require.NoError(t, err)
	assert.Equal(t, 123.4, rec.DurationSeconds)
}

func TestDeleteRemovesFileAndRecord(t *testing.T) {
	storage := newFakeStorage()
	handler := newHandler(t, storage, 1<<20, 600)

	rec, err := handler.Save(context.Background(), "memo.mp3", 0, strings.NewReader("bytes"))
	require.NoError(t, err)

	require.NoError(t, handler.Delete(context.Background(), rec.ID))

	_, err = os.Stat(rec.StoredPath)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, storage.audio)
}

func TestDeleteUnknownAudio(t *testing.T) {
	handler := newHandler(t, newFakeStorage(), 1<<20, 600)

	err := handler.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

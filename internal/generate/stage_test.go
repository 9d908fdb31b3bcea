package generate_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echopost/echopost/internal/generate"
	"github.com/echopost/echopost/internal/pipeline"
	"github.com/echopost/echopost/internal/store"
)

type fakeStorage struct {
	mu          sync.Mutex
	transcripts map[string]*store.Transcript
	postSets    map[string]*store.PostSet
	nextID      int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		transcripts: make(map[string]*store.Transcript),
		postSets:    make(map[string]*store.PostSet),
	}
}

func (f *fakeStorage) GetTranscript(_ context.Context, id string) (*store.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.transcripts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStorage) PutPostSet(_ context.Context, rec *store.PostSet) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rec.ID = fmt.Sprintf("posts-%d", f.nextID)
	f.postSets[rec.ID] = rec
	return rec.ID, nil
}

func (f *fakeStorage) GetPostSet(_ context.Context, id string) (*store.PostSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.postSets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStorage) UpdatePlatformPost(_ context.Context, postSetID, platform, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.postSets[postSetID]
	if !ok {
		return store.ErrNotFound
	}
	rec.PlatformPosts[platform] = content
	return nil
}

// fakeCapability returns a canned post per platform, or an error for
// platforms in failFor.
type fakeCapability struct {
	mu      sync.Mutex
	posts   map[generate.Platform]string
	failFor map[generate.Platform]error
	calls   int
}

func (f *fakeCapability) Generate(_ context.Context, _ string, platform generate.Platform, _ generate.Tone) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.failFor[platform]; ok {
		return "", err
	}
	if post, ok := f.posts[platform]; ok {
		return post, nil
	}
	return "post for " + string(platform), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedTranscript(storage *fakeStorage) {
	storage.transcripts["transcript-1"] = &store.Transcript{
		ID:   "transcript-1",
		Text: "today we shipped the new release",
	}
}

func TestGenerateAllPlatforms(t *testing.T) {
	storage := newFakeStorage()
	seedTranscript(storage)

	capability := &fakeCapability{}
	stage := generate.NewStage(storage, capability, testLogger())

	result, err := stage.Generate(context.Background(), "transcript-1", generate.AllPlatforms(), generate.ToneCasual)
	require.NoError(t, err)

	require.NotNil(t, result.PostSet)
	assert.Len(t, result.PostSet.PlatformPosts, 4)
	assert.Equal(t, "post for twitter", result.PostSet.PlatformPosts["twitter"])
	assert.Equal(t, "casual", result.PostSet.Tone)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 4, capability.calls)

	// Persisted under the returned id
	stored, err := storage.GetPostSet(context.Background(), result.PostSet.ID)
	require.NoError(t, err)
	assert.Equal(t, "transcript-1", stored.TranscriptID)
}

func TestGenerateNoPlatforms(t *testing.T) {
	storage := newFakeStorage()
	seedTranscript(storage)

	stage := generate.NewStage(storage, &fakeCapability{}, testLogger())

	_, err := stage.Generate(context.Background(), "transcript-1", nil, generate.ToneCasual)
	assert.ErrorIs(t, err, pipeline.ErrNoPlatformSelected)
}

func TestGenerateUnknownTranscript(t *testing.T) {
	stage := generate.NewStage(newFakeStorage(), &fakeCapability{}, testLogger())

	_, err := stage.Generate(context.Background(), "missing", generate.AllPlatforms(), generate.ToneCasual)
	assert.ErrorIs(t, err, pipeline.ErrInvalidReference)
}

func TestGenerateEmptyTranscript(t *testing.T) {
	storage := newFakeStorage()
	storage.transcripts["transcript-1"] = &store.Transcript{ID: "transcript-1", Text: "   "}

	stage := generate.NewStage(storage, &fakeCapability{}, testLogger())

	_, err := stage.Generate(context.Background(), "transcript-1", generate.AllPlatforms(), generate.ToneCasual)

	var validationErr *pipeline.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestGeneratePartialFailure(t *testing.T) {
	storage := newFakeStorage()
	seedTranscript(storage)

	capability := &fakeCapability{
		failFor: map[generate.Platform]error{
			generate.PlatformInstagram: errors.New("rate limited"),
		},
	}
	stage := generate.NewStage(storage, capability, testLogger())

	result, err := stage.Generate(context.Background(), "transcript-1", generate.AllPlatforms(), generate.ToneWitty)
	require.NoError(t, err)

	assert.Len(t, result.PostSet.PlatformPosts, 3)
	assert.NotContains(t, result.PostSet.PlatformPosts, "instagram")
	require.Len(t, result.Failed, 1)
	assert.Equal(t, generate.PlatformInstagram, result.Failed[0].Platform)
	assert.Contains(t, result.Failed[0].Cause, "rate limited")
}

func TestGenerateAllFail(t *testing.T) {
	storage := newFakeStorage()
	seedTranscript(storage)

	capability := &fakeCapability{
		failFor: map[generate.Platform]error{
			generate.PlatformTwitter:  errors.New("down"),
			generate.PlatformLinkedIn: errors.New("down"),
		},
	}
	stage := generate.NewStage(storage, capability, testLogger())

	_, err := stage.Generate(context.Background(), "transcript-1",
		[]generate.Platform{generate.PlatformTwitter, generate.PlatformLinkedIn}, generate.ToneCasual)

	var capabilityErr *pipeline.CapabilityError
	require.ErrorAs(t, err, &capabilityErr)
	assert.Equal(t, "generation", capabilityErr.Capability)

	// Nothing persisted
	assert.Empty(t, storage.postSets)
}

func TestGenerateLimitWarning(t *testing.T) {
	storage := newFakeStorage()
	seedTranscript(storage)

	capability := &fakeCapability{
		posts: map[generate.Platform]string{
			generate.PlatformTwitter: strings.Repeat("x", 300),
		},
	}
	stage := generate.NewStage(storage, capability, testLogger())

	result, err := stage.Generate(context.Background(), "transcript-1",
		[]generate.Platform{generate.PlatformTwitter}, generate.ToneCasual)
	require.NoError(t, err)

	// Over-limit posts are stored as generated and flagged
	assert.Len(t, result.PostSet.PlatformPosts["twitter"], 300)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, generate.PlatformTwitter, result.Warnings[0].Platform)
	assert.Equal(t, 300, result.Warnings[0].Length)
	assert.Equal(t, 280, result.Warnings[0].Limit)
}

func TestRegenerateReplacesSinglePlatform(t *testing.T) {
	storage := newFakeStorage()
	seedTranscript(storage)
	storage.postSets["posts-1"] = &store.PostSet{
		ID:           "posts-1",
		TranscriptID: "transcript-1",
		Tone:         "casual",
		PlatformPosts: map[string]string{
			"twitter":  "old tweet",
			"linkedin": "old linkedin",
		},
	}

	capability := &fakeCapability{
		posts: map[generate.Platform]string{generate.PlatformTwitter: "new tweet"},
	}
	stage := generate.NewStage(storage, capability, testLogger())

	content, warning, err := stage.Regenerate(context.Background(), "posts-1", "transcript-1",
		generate.PlatformTwitter, generate.ToneWitty)
	require.NoError(t, err)
	assert.Equal(t, "new tweet", content)
	assert.Nil(t, warning)

	assert.Equal(t, "new tweet", storage.postSets["posts-1"].PlatformPosts["twitter"])
	assert.Equal(t, "old linkedin", storage.postSets["posts-1"].PlatformPosts["linkedin"])
}

func TestRegenerateMismatchedTranscript(t *testing.T) {
	storage := newFakeStorage()
	seedTranscript(storage)
	storage.postSets["posts-1"] = &store.PostSet{
		ID:            "posts-1",
		TranscriptID:  "someone-elses-transcript",
		PlatformPosts: map[string]string{"twitter": "old"},
	}

	stage := generate.NewStage(storage, &fakeCapability{}, testLogger())

	_, _, err := stage.Regenerate(context.Background(), "posts-1", "transcript-1",
		generate.PlatformTwitter, generate.ToneCasual)
	assert.ErrorIs(t, err, pipeline.ErrMismatchedTranscript)
	assert.Equal(t, "old", storage.postSets["posts-1"].PlatformPosts["twitter"])
}

func TestRegenerateUnknownPostSet(t *testing.T) {
	storage := newFakeStorage()
	seedTranscript(storage)

	stage := generate.NewStage(storage, &fakeCapability{}, testLogger())

	_, _, err := stage.Regenerate(context.Background(), "missing", "transcript-1",
		generate.PlatformTwitter, generate.ToneCasual)
	assert.ErrorIs(t, err, pipeline.ErrInvalidReference)
}

func TestRegenerateCapabilityFailureKeepsOldPost(t *testing.T) {
	storage := newFakeStorage()
	seedTranscript(storage)
	storage.postSets["posts-1"] = &store.PostSet{
		ID:            "posts-1",
		TranscriptID:  "transcript-1",
		PlatformPosts: map[string]string{"twitter": "old tweet"},
	}

	capability := &fakeCapability{
		failFor: map[generate.Platform]error{generate.PlatformTwitter: errors.New("overloaded")},
	}
	stage := generate.NewStage(storage, capability, testLogger())

	_, _, err := stage.Regenerate(context.Background(), "posts-1", "transcript-1",
		generate.PlatformTwitter, generate.ToneCasual)

	var capabilityErr *pipeline.CapabilityError
	require.ErrorAs(t, err, &capabilityErr)
	assert.Equal(t, "old tweet", storage.postSets["posts-1"].PlatformPosts["twitter"])
}

package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/echopost/echopost/internal/pipeline"
	"github.com/echopost/echopost/internal/store"
	"github.com/echopost/echopost/pkg/channels"
)

// Storage is the slice of the artifact store the stage needs.
type Storage interface {
	GetTranscript(ctx context.Context, id string) (*store.Transcript, error)
	PutPostSet(ctx context.Context, rec *store.PostSet) (string, error)
	GetPostSet(ctx context.Context, id string) (*store.PostSet, error)
	UpdatePlatformPost(ctx context.Context, postSetID, platform, content string) error
}

// PlatformFailure names one platform whose generation call failed and why.
type PlatformFailure struct {
	Platform Platform `json:"platform"`
	Cause    string   `json:"cause"`
}

// LimitWarning flags a post that exceeds its platform's soft character limit.
// The post is stored as generated; the warning is for the caller to surface.
type LimitWarning struct {
	Platform Platform `json:"platform"`
	Length   int      `json:"length"`
	Limit    int      `json:"limit"`
}

// Result aggregates one generation stage invocation. Failed platforms do not
// suppress succeeded ones.
type Result struct {
	PostSet  *store.PostSet
	Failed   []PlatformFailure
	Warnings []LimitWarning
}

// Stage turns a transcript into a persisted set of platform posts.
type Stage struct {
	storage    Storage
	capability Capability
	logger     *slog.Logger
}

// NewStage creates a generation stage.
func NewStage(storage Storage, capability Capability, logger *slog.Logger) *Stage {
	return &Stage{
		storage:    storage,
		capability: capability,
		logger:     logger,
	}
}

type platformOutcome struct {
	platform Platform
	text     string
	err      error
}

// Generate invokes the text-generation capability once per requested platform
// and merges all completions into a single post set. Platforms run
// concurrently; the stage returns only after every completion is merged. A
// subset of platforms failing yields a partial result, not a total failure.
func (s *Stage) Generate(ctx context.Context, transcriptID string, platforms []Platform, tone Tone) (*Result, error) {
	if len(platforms) == 0 {
		return nil, pipeline.ErrNoPlatformSelected
	}

	transcript, err := s.storage.GetTranscript(ctx, transcriptID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("transcript %s: %w", transcriptID, pipeline.ErrInvalidReference)
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return nil, &pipeline.ValidationError{Problems: []string{"transcript has no text"}}
	}

	s.logger.Info("Starting post generation",
		"transcript_id", transcriptID,
		"platforms", platforms,
		"tone", tone,
	)

	outcomes := channels.FanIn(ctx, platforms, func(ctx context.Context, platform Platform) platformOutcome {
		text, err := s.capability.Generate(ctx, transcript.Text, platform, tone)
		return platformOutcome{platform: platform, text: text, err: err}
	})

	result := &Result{}
	posts := make(map[string]string, len(platforms))
	for outcome := range outcomes {
		if outcome.err != nil {
			s.logger.Error("Post generation failed",
				"platform", outcome.platform,
				"error", outcome.err,
			)
			result.Failed = append(result.Failed, PlatformFailure{
				Platform: outcome.platform,
				Cause:    outcome.err.Error(),
			})
			continue
		}
		posts[string(outcome.platform)] = outcome.text
		if warning := limitWarning(outcome.platform, outcome.text); warning != nil {
			result.Warnings = append(result.Warnings, *warning)
		}
	}

	if len(posts) == 0 {
		return nil, &pipeline.CapabilityError{
			Capability: "generation",
			Cause:      fmt.Errorf("all %d platforms failed", len(platforms)),
		}
	}

	rec := &store.PostSet{
		TranscriptID:  transcriptID,
		Tone:          string(tone),
		PlatformPosts: posts,
	}
	if _, err := s.storage.PutPostSet(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist post set: %w", err)
	}
	result.PostSet = rec

	s.logger.Info("Post generation complete",
		"post_set_id", rec.ID,
		"generated", len(posts),
		"failed", len(result.Failed),
	)
	return result, nil
}

// Regenerate re-runs generation for exactly one platform of an existing post
// set, replacing only that platform's entry. Concurrent regeneration of
// different platforms on the same set is safe: the store updates one platform
// row at a time.
func (s *Stage) Regenerate(ctx context.Context, postSetID, transcriptID string, platform Platform, tone Tone) (string, *LimitWarning, error) {
	postSet, err := s.storage.GetPostSet(ctx, postSetID)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, fmt.Errorf("post set %s: %w", postSetID, pipeline.ErrInvalidReference)
	}
	if err != nil {
		return "", nil, err
	}
	if postSet.TranscriptID != transcriptID {
		return "", nil, fmt.Errorf("post set %s belongs to transcript %s: %w",
			postSetID, postSet.TranscriptID, pipeline.ErrMismatchedTranscript)
	}

	transcript, err := s.storage.GetTranscript(ctx, transcriptID)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, fmt.Errorf("transcript %s: %w", transcriptID, pipeline.ErrInvalidReference)
	}
	if err != nil {
		return "", nil, err
	}

	text, err := s.capability.Generate(ctx, transcript.Text, platform, tone)
	if err != nil {
		s.logger.Error("Post regeneration failed", "platform", platform, "error", err)
		return "", nil, &pipeline.CapabilityError{Capability: "generation", Cause: err}
	}

	if err := s.storage.UpdatePlatformPost(ctx, postSetID, string(platform), text); err != nil {
		return "", nil, fmt.Errorf("failed to update platform post: %w", err)
	}

	s.logger.Info("Post regenerated", "post_set_id", postSetID, "platform", platform, "tone", tone)
	return text, limitWarning(platform, text), nil
}

func limitWarning(platform Platform, text string) *LimitWarning {
	limit := platform.CharacterLimit()
	length := len([]rune(text))
	if limit == 0 || length <= limit {
		return nil
	}
	return &LimitWarning{Platform: platform, Length: length, Limit: limit}
}

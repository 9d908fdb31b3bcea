package workflow

import (
	"context"
	"io"

	"github.com/echopost/echopost/internal/generate"
	"github.com/echopost/echopost/internal/store"
)

// Storage is the slice of the artifact store the coordinator needs.
type Storage interface {
	GetPostSet(ctx context.Context, id string) (*store.PostSet, error)
	SaveWorkflowState(ctx context.Context, rec *store.StateRecord) error
	LoadWorkflowState(ctx context.Context, sessionID string) (*store.StateRecord, error)
	ClearWorkflowState(ctx context.Context, sessionID string) error
}

// Uploader validates and stores incoming audio files.
type Uploader interface {
	Save(ctx context.Context, filename string, declaredDuration float64, file io.Reader) (*store.UploadedAudio, error)
	Delete(ctx context.Context, audioID string) error
}

// Transcriber runs the transcription stage.
type Transcriber interface {
	Transcribe(ctx context.Context, audioID string) (*store.Transcript, error)
	Edit(ctx context.Context, transcriptID, text string) (*store.Transcript, error)
}

// Generator runs the generation stage and single-platform regeneration.
type Generator interface {
	Generate(ctx context.Context, transcriptID string, platforms []generate.Platform, tone generate.Tone) (*generate.Result, error)
	Regenerate(ctx context.Context, postSetID, transcriptID string, platform generate.Platform, tone generate.Tone) (string, *generate.LimitWarning, error)
}

// Exporter writes a completed post set to external files.
type Exporter interface {
	Export(ctx context.Context, postSet *store.PostSet) ([]string, error)
}

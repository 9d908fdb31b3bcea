// Package workflow owns the pipeline stage sequence and per-session
// progress: which stage a session has reached and which artifacts it
// references. Stages advance linearly; moving backward is always an explicit
// caller action.
package workflow

// Stage is one phase of the pipeline.
type Stage string

const (
	StageUpload     Stage = "UPLOAD"
	StageTranscribe Stage = "TRANSCRIBE"
	StageGenerate   Stage = "GENERATE"
	StageExport     Stage = "EXPORT"
)

// ParseStage maps a persisted stage string back to a Stage. The second return
// is false for anything unrecognized, which callers treat as corrupt state.
func ParseStage(value string) (Stage, bool) {
	switch Stage(value) {
	case StageUpload, StageTranscribe, StageGenerate, StageExport:
		return Stage(value), true
	default:
		return "", false
	}
}

// State is the workflow pointer for one session. It references artifacts by
// id only; the artifact store owns the records themselves.
type State struct {
	SessionID    string
	CurrentStage Stage
	AudioID      string
	TranscriptID string
	PostSetID    string
}

// NewState returns a fresh state at the upload stage.
func NewState(sessionID string) *State {
	return &State{
		SessionID:    sessionID,
		CurrentStage: StageUpload,
	}
}

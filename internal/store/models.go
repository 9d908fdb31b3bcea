package store

import "time"

// UploadedAudio is the metadata record for a validated upload.
// Immutable once created; removed only by explicit cleanup.
type UploadedAudio struct {
	ID              string
	Filename        string
	StoredPath      string
	SizeBytes       int64
	DurationSeconds float64
	Format          string
	UploadedAt      time.Time
}

// Transcript is one transcription result for an uploaded audio file.
// Re-transcribing the same audio appends a new version; the latest version
// for an audio id is authoritative.
type Transcript struct {
	ID                    string
	AudioID               string
	Text                  string
	Language              string
	Confidence            float64
	ProcessingTimeSeconds float64
	Edited                bool
	EditedAt              *time.Time
	CreatedAt             time.Time
}

// PostSet is the collection of generated platform posts for one transcript
// and one tone choice. PlatformPosts is keyed by platform name.
type PostSet struct {
	ID            string
	TranscriptID  string
	Tone          string
	PlatformPosts map[string]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StateRecord is the persisted workflow pointer for one session. The stage is
// stored as a plain string; the workflow package interprets it and treats
// anything unrecognized as a fresh session.
type StateRecord struct {
	SessionID    string
	CurrentStage string
	AudioID      string
	TranscriptID string
	PostSetID    string
	UpdatedAt    time.Time
}

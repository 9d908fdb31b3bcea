// Package transcribe runs the speech-to-text stage of the pipeline.
package transcribe

import "context"

// Result is what the external speech-to-text capability reports for one call.
type Result struct {
	Text           string
	Language       string
	Confidence     float64
	ElapsedSeconds float64
}

// Capability is the external speech-to-text boundary. Implementations may
// take tens of seconds; the context carries cancellation.
type Capability interface {
	Transcribe(ctx context.Context, audioPath string) (Result, error)
}

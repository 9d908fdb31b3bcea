// Package generate runs the post-generation stage of the pipeline.
package generate

import "context"

// Capability is the external text-generation boundary: one call produces one
// platform's post text from a transcript.
type Capability interface {
	Generate(ctx context.Context, transcriptText string, platform Platform, tone Tone) (string, error)
}

// Package pipeline defines the failure taxonomy shared by the pipeline
// stages and the workflow coordinator. Every failure here is scoped to a
// single operation; none are fatal to the process.
package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidReference indicates an operation referenced an artifact id
	// that does not exist or is not part of the active session. Recoverable
	// by re-selecting a valid parent.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrNoPlatformSelected indicates a generation request with an empty
	// platform set.
	ErrNoPlatformSelected = errors.New("no platform selected")

	// ErrMismatchedTranscript indicates a regeneration target that does not
	// belong to the given transcript.
	ErrMismatchedTranscript = errors.New("post set does not belong to transcript")
)

// ValidationError reports bad input shape, size, or format. It is reported
// immediately and never retried automatically.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// CapabilityError wraps a failure of an external capability (transcription or
// generation). The caller may retry the same stage: nothing partial was
// persisted.
type CapabilityError struct {
	Capability string
	Cause      error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s capability failed: %v", e.Capability, e.Cause)
}

func (e *CapabilityError) Unwrap() error {
	return e.Cause
}

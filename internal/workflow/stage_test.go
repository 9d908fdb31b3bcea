package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/echopost/echopost/internal/workflow"
)

func TestParseStage(t *testing.T) {
	for _, stage := range []workflow.Stage{
		workflow.StageUpload,
		workflow.StageTranscribe,
		workflow.StageGenerate,
		workflow.StageExport,
	} {
		parsed, ok := workflow.ParseStage(string(stage))
		assert.True(t, ok)
		assert.Equal(t, stage, parsed)
	}
}

func TestParseStageRejectsUnknown(t *testing.T) {
	for _, value := range []string{"", "upload", "DONE", "garbage"} {
		_, ok := workflow.ParseStage(value)
		assert.False(t, ok, "value %q should not parse", value)
	}
}

func TestNewState(t *testing.T) {
	state := workflow.NewState("session-1")
	assert.Equal(t, "session-1", state.SessionID)
	assert.Equal(t, workflow.StageUpload, state.CurrentStage)
	assert.Empty(t, state.AudioID)
}

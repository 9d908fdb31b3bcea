package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Whisper transcribes audio through the OpenAI Whisper API.
type Whisper struct {
	apiKey string
	model  openai.AudioModel
}

// NewWhisper creates a Whisper-backed transcription capability. An empty
// model selects whisper-1.
func NewWhisper(apiKey, model string) *Whisper {
	audioModel := openai.AudioModelWhisper1
	if model != "" {
		audioModel = openai.AudioModel(model)
	}
	return &Whisper{
		apiKey: apiKey,
		model:  audioModel,
	}
}

// Transcribe sends the stored audio file to the Whisper API.
func (w *Whisper) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	// Validate API key
	if w.apiKey == "" {
		return Result{}, errors.New("API key required: set OPENAI_API_KEY or run 'echopost config set-key openai'")
	}

	audioFile, err := os.Open(audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer audioFile.Close()

	// Create OpenAI client
	client := openai.NewClient(option.WithAPIKey(w.apiKey))

	// Create transcription request
	params := openai.AudioTranscriptionNewParams{
		File:  audioFile,
		Model: w.model,
	}

	// Call Whisper API
	started := time.Now()
	resp, err := client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create transcription via Whisper API: %w", err)
	}

	// whisper-1 over the API reports neither detected language nor token
	// confidence; an accepted transcription is recorded at full confidence.
	return Result{
		Text:           resp.Text,
		Language:       "en",
		Confidence:     1.0,
		ElapsedSeconds: time.Since(started).Seconds(),
	}, nil
}

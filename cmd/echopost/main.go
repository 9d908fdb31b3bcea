package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/echopost/echopost/internal/config"
	"github.com/echopost/echopost/internal/export"
	"github.com/echopost/echopost/internal/generate"
	"github.com/echopost/echopost/internal/keyring"
	"github.com/echopost/echopost/internal/store"
	"github.com/echopost/echopost/internal/transcribe"
	"github.com/echopost/echopost/internal/upload"
	"github.com/echopost/echopost/internal/workflow"
)

// cliSession is the fixed session id for the local CLI. The CLI is a
// single-user surface; all invocations continue the same workflow.
const cliSession = "cli"

// CLI defines the echopost command structure.
type CLI struct {
	Upload     UploadCmd     `cmd:"" help:"Upload an audio file and start a new run"`
	Transcribe TranscribeCmd `cmd:"" help:"Transcribe the uploaded audio"`
	Edit       EditCmd       `cmd:"" help:"Edit the transcript in $EDITOR"`
	Generate   GenerateCmd   `cmd:"" help:"Generate posts for the selected platforms"`
	Regenerate RegenerateCmd `cmd:"" help:"Regenerate a single platform's post"`
	Export     ExportCmd     `cmd:"" help:"Export the generated posts to files"`
	Status     StatusCmd     `cmd:"" help:"Show the current workflow stage"`
	Reset      ResetCmd      `cmd:"" help:"Reset the workflow to the upload stage"`
	Config     ConfigCmd     `cmd:"" help:"Manage configuration"`
}

// app bundles the wired pipeline for one CLI invocation.
type app struct {
	cfg         *config.Config
	store       *store.Store
	coordinator *workflow.Coordinator
	state       *workflow.State
	ctx         context.Context
}

// newApp loads configuration, opens the artifact store, and resumes the CLI
// session.
func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	// Resolve API keys: environment variables take priority, fallback to keychain
	openAIKey := cfg.OpenAIAPIKey
	if openAIKey == "" {
		if secret, err := keyring.Get(keyring.OpenAI); err == nil {
			openAIKey = secret
		} else {
			slog.Debug("keychain lookup failed", "key", "openai", "error", err)
		}
	}
	anthropicKey := cfg.AnthropicAPIKey
	if anthropicKey == "" {
		if secret, err := keyring.Get(keyring.Anthropic); err == nil {
			anthropicKey = secret
		} else {
			slog.Debug("keychain lookup failed", "key", "anthropic", "error", err)
		}
	}

	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact store: %w", err)
	}

	logger := slog.Default()
	uploads := upload.NewHandler(st, cfg.UploadDir, cfg.MaxUploadBytes, cfg.MaxDurationSeconds, logger)
	transcriber := transcribe.NewStage(st, transcribe.NewWhisper(openAIKey, cfg.WhisperModel), logger)
	generator := generate.NewStage(st, generate.NewClaude(anthropicKey), logger)
	exporter := export.New(cfg.ExportDir, logger)
	coordinator := workflow.New(st, uploads, transcriber, generator, exporter, logger)

	ctx := context.Background()
	state, err := coordinator.Resume(ctx, cliSession)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &app{
		cfg:         cfg,
		store:       st,
		coordinator: coordinator,
		state:       state,
		ctx:         ctx,
	}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
}

// UploadCmd uploads an audio file and starts a new run.
type UploadCmd struct {
	File     string  `arg:"" required:"" help:"Path to audio file"`
	Duration float64 `flag:"" optional:"" help:"Declared duration in seconds (for formats without a readable header)"`
}

// Run executes the upload command.
func (c *UploadCmd) Run() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	rec, err := a.coordinator.Upload(a.ctx, a.state, filepath.Base(c.File), c.Duration, f)
	if err != nil {
		return err
	}

	fmt.Printf("Uploaded %s (%d bytes, %.1fs) as %s\n", rec.Filename, rec.SizeBytes, rec.DurationSeconds, rec.ID)
	fmt.Println("Next: echopost transcribe")

	return nil
}

// TranscribeCmd transcribes the session's uploaded audio.
type TranscribeCmd struct{}

// Run executes the transcribe command.
func (c *TranscribeCmd) Run() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	transcript, err := a.coordinator.Transcribe(a.ctx, a.state)
	if err != nil {
		return err
	}

	fmt.Printf("Transcribed in %.1fs:\n\n%s\n", transcript.ProcessingTimeSeconds, transcript.Text)
	fmt.Println("\nNext: echopost generate (or echopost edit to fix the transcript)")

	return nil
}

// EditCmd replaces the transcript text, either from --text or by opening the
// current text in the user's editor.
type EditCmd struct {
	Text string `flag:"" optional:"" help:"Replacement text (skips the editor)"`
}

// Run executes the edit command.
func (c *EditCmd) Run() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.state.TranscriptID == "" {
		return errors.New("no transcript yet: run 'echopost transcribe' first")
	}

	transcript, err := a.store.GetTranscript(a.ctx, a.state.TranscriptID)
	if err != nil {
		return err
	}

	edited := c.Text
	if edited == "" {
		edited, err = editInEditor(transcript.Text)
		if err != nil {
			return err
		}
	}
	if edited == transcript.Text {
		fmt.Println("No changes")
		return nil
	}

	if _, err := a.coordinator.EditTranscript(a.ctx, a.state, edited); err != nil {
		return err
	}

	fmt.Println("Transcript updated")

	return nil
}

// editInEditor writes text to a temp file, opens it in the user's editor, and
// returns the saved content.
func editInEditor(text string) (string, error) {
	editor := os.Getenv("ECHOPOST_EDITOR")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	tmp, err := os.CreateTemp("", "echopost-transcript-*.txt")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	cmd := exec.Command(editor, tmp.Name())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("editor exited with error: %w", err)
	}

	content, err := os.ReadFile(tmp.Name())
	if err != nil {
		return "", err
	}

	return string(content), nil
}

// GenerateCmd generates posts for the selected platforms.
type GenerateCmd struct {
	Platforms []string `flag:"" help:"Platforms to generate for (default: all)"`
	Tone      string   `flag:"" default:"professional" help:"Tone for the posts"`
}

// Run executes the generate command.
func (c *GenerateCmd) Run() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	platforms := make([]generate.Platform, 0, len(c.Platforms))
	if len(c.Platforms) == 0 {
		platforms = generate.AllPlatforms()
	} else {
		for _, name := range c.Platforms {
			platform, err := generate.ParsePlatform(name)
			if err != nil {
				return err
			}
			platforms = append(platforms, platform)
		}
	}

	tone, err := generate.ParseTone(c.Tone)
	if err != nil {
		return err
	}

	result, err := a.coordinator.Generate(a.ctx, a.state, platforms, tone)
	if err != nil {
		return err
	}

	printPostSet(result.PostSet)
	for _, warning := range result.Warnings {
		fmt.Printf("warning: %s post is %d characters (limit %d)\n", warning.Platform, warning.Length, warning.Limit)
	}
	for _, failure := range result.Failed {
		fmt.Printf("failed: %s: %s\n", failure.Platform, failure.Cause)
	}
	fmt.Println("\nNext: echopost export (or echopost regenerate <platform> to retry one)")

	return nil
}

// RegenerateCmd regenerates a single platform's post.
type RegenerateCmd struct {
	Platform string `arg:"" required:"" help:"Platform to regenerate"`
	Tone     string `flag:"" default:"professional" help:"Tone for the post"`
}

// Run executes the regenerate command.
func (c *RegenerateCmd) Run() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	platform, err := generate.ParsePlatform(c.Platform)
	if err != nil {
		return err
	}
	tone, err := generate.ParseTone(c.Tone)
	if err != nil {
		return err
	}

	content, warning, err := a.coordinator.Regenerate(a.ctx, a.state, platform, tone)
	if err != nil {
		return err
	}

	fmt.Printf("=== %s ===\n%s\n", platform, content)
	if warning != nil {
		fmt.Printf("warning: post is %d characters (limit %d)\n", warning.Length, warning.Limit)
	}

	return nil
}

// ExportCmd exports the generated posts to files.
type ExportCmd struct{}

// Run executes the export command.
func (c *ExportCmd) Run() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	paths, err := a.coordinator.Export(a.ctx, a.state)
	if err != nil {
		return err
	}

	fmt.Println("Exported:")
	for _, path := range paths {
		fmt.Printf("  %s\n", path)
	}

	return nil
}

// StatusCmd shows the current workflow stage and artifact references.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("stage: %s\n", a.state.CurrentStage)
	if a.state.AudioID != "" {
		fmt.Printf("audio: %s\n", a.state.AudioID)
	}
	if a.state.TranscriptID != "" {
		fmt.Printf("transcript: %s\n", a.state.TranscriptID)
	}
	if a.state.PostSetID != "" {
		fmt.Printf("posts: %s\n", a.state.PostSetID)
	}

	return nil
}

// ResetCmd resets the workflow back to the upload stage.
type ResetCmd struct{}

// Run executes the reset command.
func (c *ResetCmd) Run() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.coordinator.Reset(a.ctx, a.state); err != nil {
		return err
	}

	fmt.Println("Workflow reset")

	return nil
}

// ConfigCmd groups configuration-related subcommands.
type ConfigCmd struct {
	SetKey    SetKeyCmd    `cmd:"" help:"Store an API key in system keychain"`
	DeleteKey DeleteKeyCmd `cmd:"" name:"delete-key" help:"Remove an API key from system keychain"`
	ListKeys  ListKeysCmd  `cmd:"" name:"list-keys" help:"Show which API keys are configured"`
}

// SetKeyCmd stores an API key in the system keychain.
type SetKeyCmd struct {
	Service string `arg:"" enum:"openai,anthropic" help:"Service name (openai or anthropic)"`
	Secret  string `arg:"" help:"API key value"`
}

// Run executes the set-key command.
func (c *SetKeyCmd) Run() error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("API key cannot be empty")
	}

	apiKey, err := keyring.APIKeyFromServiceName(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Set(apiKey, c.Secret); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("%s API key stored in keychain\n", c.Service)

	return nil
}

// DeleteKeyCmd removes an API key from the system keychain.
type DeleteKeyCmd struct {
	Service string `arg:"" enum:"openai,anthropic" help:"Service name (openai or anthropic)"`
}

// Run executes the delete-key command.
func (c *DeleteKeyCmd) Run() error {
	apiKey, err := keyring.APIKeyFromServiceName(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Delete(apiKey); err != nil {
		return fmt.Errorf("failed to delete API key: %w", err)
	}

	fmt.Printf("%s API key removed from keychain\n", c.Service)

	return nil
}

// ListKeysCmd shows which API keys are configured.
type ListKeysCmd struct{}

// Run executes the list-keys command.
func (c *ListKeysCmd) Run() error {
	allSet := true

	for _, apiKey := range keyring.AllAPIKeys() {
		if keyring.IsSet(apiKey) {
			fmt.Printf("%s: configured\n", apiKey.DisplayName())
		} else {
			fmt.Printf("%s: not set\n", apiKey.DisplayName())
			allSet = false
		}
	}

	if !allSet {
		fmt.Println("\nRun 'echopost config set-key <service> <key>' to configure.")
	}

	return nil
}

func printPostSet(postSet *store.PostSet) {
	for platform, content := range postSet.PlatformPosts {
		fmt.Printf("=== %s ===\n%s\n\n", platform, content)
	}
}

func main() {
	// Set up text-based logger for CLI output
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})
	slog.SetDefault(slog.New(handler))

	cli := &CLI{}
	ctx := kong.Parse(cli)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

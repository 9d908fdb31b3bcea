package main

import (
	"log"

	"github.com/echopost/echopost/internal/config"
	"github.com/echopost/echopost/internal/export"
	"github.com/echopost/echopost/internal/generate"
	"github.com/echopost/echopost/internal/keyring"
	"github.com/echopost/echopost/internal/logger"
	"github.com/echopost/echopost/internal/server"
	"github.com/echopost/echopost/internal/store"
	"github.com/echopost/echopost/internal/transcribe"
	"github.com/echopost/echopost/internal/upload"
	"github.com/echopost/echopost/internal/workflow"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	logg := logger.SetupLogger(cfg)

	logg.Info("Starting echopost server",
		"env", cfg.Env,
		"port", cfg.Port,
		"allowed_hosts", cfg.AllowedHosts,
	)

	if err := cfg.EnsureDirectories(); err != nil {
		logg.Error("Failed to create data directories", "error", err)
		log.Fatalf("Fatal: %v", err)
	}

	// API keys come from the environment, falling back to the OS keychain
	openAIKey := cfg.OpenAIAPIKey
	if openAIKey == "" {
		openAIKey, _ = keyring.Get(keyring.OpenAI)
	}
	anthropicKey := cfg.AnthropicAPIKey
	if anthropicKey == "" {
		anthropicKey, _ = keyring.Get(keyring.Anthropic)
	}
	if openAIKey == "" {
		logg.Warn("No OpenAI API key configured, transcription will fail")
	}
	if anthropicKey == "" {
		logg.Warn("No Anthropic API key configured, generation will fail")
	}

	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		logg.Error("Failed to open artifact store", "error", err)
		log.Fatalf("Fatal: %v", err)
	}
	defer st.Close()

	uploads := upload.NewHandler(st, cfg.UploadDir, cfg.MaxUploadBytes, cfg.MaxDurationSeconds, logg)
	transcriber := transcribe.NewStage(st, transcribe.NewWhisper(openAIKey, cfg.WhisperModel), logg)
	generator := generate.NewStage(st, generate.NewClaude(anthropicKey), logg)
	exporter := export.New(cfg.ExportDir, logg)
	coordinator := workflow.New(st, uploads, transcriber, generator, exporter, logg)

	srv := server.New(cfg, logg, st, coordinator)
	if err := server.Run(srv); err != nil {
		logg.Error("Failed to start server", "error", err)
		log.Fatalf("Fatal: %v", err)
	}
}

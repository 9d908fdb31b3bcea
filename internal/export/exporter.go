// Package export writes a completed post set to files.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/echopost/echopost/internal/store"
)

// Exporter writes post sets to the export directory as markdown, JSON, and
// docx.
type Exporter struct {
	exportDir string
	logger    *slog.Logger
}

// New creates an exporter.
func New(exportDir string, logger *slog.Logger) *Exporter {
	return &Exporter{
		exportDir: exportDir,
		logger:    logger,
	}
}

// Export writes all three formats for a post set and returns the written
// paths.
func (e *Exporter) Export(_ context.Context, postSet *store.PostSet) ([]string, error) {
	if err := os.MkdirAll(e.exportDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	base := filepath.Join(e.exportDir, "posts_"+postSet.ID)

	paths := make([]string, 0, 3)
	markdownPath := base + ".md"
	if err := os.WriteFile(markdownPath, []byte(renderMarkdown(postSet)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write markdown export: %w", err)
	}
	paths = append(paths, markdownPath)

	jsonPath := base + ".json"
	if err := writeJSON(jsonPath, postSet); err != nil {
		return nil, fmt.Errorf("failed to write json export: %w", err)
	}
	paths = append(paths, jsonPath)

	docxPath := base + ".docx"
	if err := writeDocx(docxPath, postSet); err != nil {
		return nil, fmt.Errorf("failed to write docx export: %w", err)
	}
	paths = append(paths, docxPath)

	e.logger.Info("Post set exported", "post_set_id", postSet.ID, "files", len(paths))
	return paths, nil
}

// sortedPlatforms returns the set's platform keys in stable order.
func sortedPlatforms(postSet *store.PostSet) []string {
	platforms := make([]string, 0, len(postSet.PlatformPosts))
	for platform := range postSet.PlatformPosts {
		platforms = append(platforms, platform)
	}
	sort.Strings(platforms)
	return platforms
}

func renderMarkdown(postSet *store.PostSet) string {
	var b strings.Builder

	now := time.Now()
	fmt.Fprintf(&b, `---
title: "Social Posts %s"
date: %s
tone: %s
---

`, now.Format("2006-01-02 15:04"), now.Format(time.RFC3339), postSet.Tone)

	for _, platform := range sortedPlatforms(postSet) {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", titleCase(platform), postSet.PlatformPosts[platform])
	}
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func writeJSON(path string, postSet *store.PostSet) error {
	payload := struct {
		ID           string            `json:"id"`
		TranscriptID string            `json:"transcript_id"`
		Tone         string            `json:"tone"`
		Posts        map[string]string `json:"posts"`
		ExportedAt   time.Time         `json:"exported_at"`
	}{
		ID:           postSet.ID,
		TranscriptID: postSet.TranscriptID,
		Tone:         postSet.Tone,
		Posts:        postSet.PlatformPosts,
		ExportedAt:   time.Now().UTC(),
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

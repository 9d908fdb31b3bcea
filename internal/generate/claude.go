package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Claude generates post text through the Anthropic API.
type Claude struct {
	apiKey string
	model  anthropic.Model
}

// NewClaude creates an Anthropic-backed generation capability.
func NewClaude(apiKey string) *Claude {
	return &Claude{
		apiKey: apiKey,
		model:  anthropic.Model("claude-sonnet-4-5-20250929"),
	}
}

// Generate writes one platform post from a transcript.
func (c *Claude) Generate(ctx context.Context, transcriptText string, platform Platform, tone Tone) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("API key required: set ANTHROPIC_API_KEY or run 'echopost config set-key anthropic'")
	}

	client := anthropic.NewClient(option.WithAPIKey(c.apiKey))

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: SystemPrompt(platform, tone)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(transcriptText)),
		},
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s post via Anthropic API: %w", platform, err)
	}

	// Extract text from response
	if len(resp.Content) == 0 {
		return "", errors.New("empty response from Anthropic API")
	}

	textBlock, ok := resp.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", errors.New("unexpected response type from Anthropic API")
	}

	return textBlock.Text, nil
}

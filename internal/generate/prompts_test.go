package generate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/echopost/echopost/internal/generate"
)

func TestSystemPromptCoversAllCombinations(t *testing.T) {
	for _, platform := range generate.AllPlatforms() {
		for _, tone := range generate.AllTones() {
			prompt := generate.SystemPrompt(platform, tone)
			assert.Contains(t, prompt, string(platform))
			assert.Contains(t, prompt, string(tone))
			assert.Contains(t, prompt, "Platform conventions:")
		}
	}
}

func TestSystemPromptPlatformGuidance(t *testing.T) {
	prompt := generate.SystemPrompt(generate.PlatformTwitter, generate.ToneCasual)
	assert.Contains(t, prompt, "280 characters")

	prompt = generate.SystemPrompt(generate.PlatformInstagram, generate.ToneWitty)
	assert.Contains(t, prompt, "5-7 relevant hashtags")
}

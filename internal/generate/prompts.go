package generate

import "fmt"

// platform-specific writing guidance, matched to each network's conventions
var platformGuidance = map[Platform]string{
	PlatformTwitter: `- Aim for a single punchy post under 280 characters
- Use 1-2 relevant hashtags
- Lead with the strongest idea; no preamble`,
	PlatformLinkedIn: `- Use a professional register with clear business insight
- Short paragraphs, an engaging opening line, and a closing takeaway
- Include 2-3 relevant hashtags at the end
- Stay under 3000 characters`,
	PlatformInstagram: `- Write an engaging caption with storytelling and appropriate emojis
- Include 5-7 relevant hashtags at the end
- Stay under 2200 characters`,
	PlatformFacebook: `- Write a conversational post that invites discussion
- A question or call-to-action at the end works well
- One or two hashtags at most`,
}

var toneGuidance = map[Tone]string{
	ToneProfessional: "Use clear, authoritative language. Focus on key insights and credibility.",
	ToneCasual:       "Use friendly, conversational language, like talking to a friend.",
	ToneWitty:        "Use humor, wordplay, and smart observations. Keep it clever and shareable.",
	ToneMotivational: "Use uplifting, energetic language that inspires the reader to act.",
	ToneEducational:  "Teach and inform. Use clear explanations and highlight key learning points.",
	TonePromotional:  "Highlight value and benefits, and end with a clear call-to-action.",
}

// SystemPrompt builds the generation system prompt for one platform and tone.
func SystemPrompt(platform Platform, tone Tone) string {
	return fmt.Sprintf(`You are a social media copywriter. Given a voice memo transcription, you will write one %s post.

Tone: %s
%s

Platform conventions:
%s

Return only the post text, with no commentary, headings, or code fences.`,
		platform, tone, toneGuidance[tone], platformGuidance[platform])
}

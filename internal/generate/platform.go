package generate

import (
	"fmt"
	"strings"
)

// Platform is a supported social media target.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
)

// AllPlatforms returns the supported platform set.
func AllPlatforms() []Platform {
	return []Platform{PlatformTwitter, PlatformLinkedIn, PlatformInstagram, PlatformFacebook}
}

// CharacterLimit returns the platform's soft character limit. Posts may
// exceed it; callers surface a warning rather than rejecting.
func (p Platform) CharacterLimit() int {
	switch p {
	case PlatformTwitter:
		return 280
	case PlatformLinkedIn:
		return 3000
	case PlatformInstagram:
		return 2200
	case PlatformFacebook:
		return 63206
	default:
		return 0
	}
}

// ParsePlatform maps a caller-provided name to a Platform.
func ParsePlatform(name string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(name))) {
	case PlatformTwitter:
		return PlatformTwitter, nil
	case PlatformLinkedIn:
		return PlatformLinkedIn, nil
	case PlatformInstagram:
		return PlatformInstagram, nil
	case PlatformFacebook:
		return PlatformFacebook, nil
	default:
		return "", fmt.Errorf("unsupported platform %q", name)
	}
}

// Tone is a stylistic directive passed to the text-generation capability.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	ToneWitty        Tone = "witty"
	ToneMotivational Tone = "motivational"
	ToneEducational  Tone = "educational"
	TonePromotional  Tone = "promotional"
)

// AllTones returns the supported tone set.
func AllTones() []Tone {
	return []Tone{ToneProfessional, ToneCasual, ToneWitty, ToneMotivational, ToneEducational, TonePromotional}
}

// ParseTone maps a caller-provided name to a Tone. Common synonyms are
// accepted ("humorous" for witty, "inspirational"/"inspiring" for
// motivational).
func ParseTone(name string) (Tone, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	switch normalized {
	case "humorous":
		return ToneWitty, nil
	case "inspirational", "inspiring":
		return ToneMotivational, nil
	}
	switch Tone(normalized) {
	case ToneProfessional, ToneCasual, ToneWitty, ToneMotivational, ToneEducational, TonePromotional:
		return Tone(normalized), nil
	default:
		return "", fmt.Errorf("unsupported tone %q", name)
	}
}

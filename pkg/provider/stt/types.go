package stt

import (
	"fmt"
	"strings"
	"time"
)

// Transcript represents a speech-to-text result from an STT provider.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// Confidence is the overall confidence score (0.0–1.0). May be zero if the provider
	// does not report confidence.
	Confidence float64

	// Language is the language the provider reports having recognised, if any.
	Language string

	// Words contains per-word detail when available (Deepgram, Google).
	// May be nil for providers that don't support word-level output.
	Words []WordDetail

	// Duration is the length of the audio the provider processed.
	Duration time.Duration
}

// WordDetail holds per-word metadata from STT providers that support it.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// blankMarkers are placeholder outputs some engines emit instead of an empty
// string when a recording has no speech.
var blankMarkers = []string{"[BLANK_AUDIO]", "[ Silence ]", "[silence]", "(silence)"}

// Finalize trims the transcript text and converts an empty or placeholder-only
// result into [ErrUnintelligible]. Providers call it on the text they received
// so that every backend reports "no speech" the same way.
func Finalize(provider string, t Transcript) (Transcript, error) {
	text := strings.TrimSpace(t.Text)
	for _, m := range blankMarkers {
		text = strings.TrimSpace(strings.ReplaceAll(text, m, ""))
	}
	if text == "" {
		return Transcript{}, fmt.Errorf("%s: %w", provider, ErrUnintelligible)
	}
	t.Text = text
	return t, nil
}

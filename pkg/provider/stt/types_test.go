package stt_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/micscribe/pkg/provider/stt"
)

func TestFinalize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"plain", "hello world", "hello world", nil},
		{"surrounding whitespace", "  hello world\n", "hello world", nil},
		{"empty", "", "", stt.ErrUnintelligible},
		{"whitespace only", " \t\n", "", stt.ErrUnintelligible},
		{"whisper blank marker", " [BLANK_AUDIO]\n", "", stt.ErrUnintelligible},
		{"silence marker", "[ Silence ]", "", stt.ErrUnintelligible},
		{"marker with speech", "[BLANK_AUDIO] testing", "testing", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := stt.Finalize("test", stt.Transcript{Text: tc.in, Confidence: 0.9})
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Text != tc.want {
				t.Errorf("Text = %q, want %q", got.Text, tc.want)
			}
			if got.Confidence != 0.9 {
				t.Errorf("Confidence = %v, want 0.9", got.Confidence)
			}
		})
	}
}

func TestAudio_Empty(t *testing.T) {
	if !(stt.Audio{}).Empty() {
		t.Error("zero Audio should be empty")
	}
	if (stt.Audio{PCM: []byte{0, 0}}).Empty() {
		t.Error("Audio with one sample should not be empty")
	}
}

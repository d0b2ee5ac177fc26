package whisper_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/MrWong99/micscribe/pkg/provider/stt"
	"github.com/MrWong99/micscribe/pkg/provider/stt/whisper"
)

// testModelPath returns the path to a whisper model for integration tests.
// It reads from the WHISPER_MODEL_PATH environment variable. If unset the
// test is skipped.
func testModelPath(t *testing.T) string {
	t.Helper()
	p := os.Getenv("WHISPER_MODEL_PATH")
	if p == "" {
		t.Skip("WHISPER_MODEL_PATH not set; skipping native whisper test")
	}
	return p
}

func TestNewNative_EmptyPath_ReturnsError(t *testing.T) {
	_, err := whisper.NewNative("")
	if err == nil {
		t.Fatal("expected error for empty model path, got nil")
	}
}

func TestNewNative_InvalidPath_ReturnsError(t *testing.T) {
	_, err := whisper.NewNative("/nonexistent/path/to/model.bin")
	if err == nil {
		t.Fatal("expected error for invalid model path, got nil")
	}
}

func TestNativeRecognize_CancelledContext_ReturnsError(t *testing.T) {
	p, err := whisper.NewNative(testModelPath(t))
	if err != nil {
		t.Fatalf("NewNative: %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Recognize(ctx, stt.Audio{PCM: makeSpeechPCM(16000), SampleRate: 16000, Channels: 1, SampleWidth: 2})
	if err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}

func TestNativeRecognize_RejectsWrongRate(t *testing.T) {
	p, err := whisper.NewNative(testModelPath(t))
	if err != nil {
		t.Fatalf("NewNative: %v", err)
	}
	defer p.Close()

	_, err = p.Recognize(context.Background(), stt.Audio{PCM: makeSpeechPCM(4800), SampleRate: 48000, Channels: 1, SampleWidth: 2})
	if err == nil {
		t.Fatal("expected error for 48 kHz audio, got nil")
	}
}

func TestNativeRecognize_SilenceIsUnintelligible(t *testing.T) {
	p, err := whisper.NewNative(testModelPath(t), whisper.WithNativeLanguage("en"))
	if err != nil {
		t.Fatalf("NewNative: %v", err)
	}
	defer p.Close()

	_, err = p.Recognize(context.Background(), stt.Audio{PCM: makeSilencePCM(16000), SampleRate: 16000, Channels: 1, SampleWidth: 2})
	if !errors.Is(err, stt.ErrUnintelligible) {
		t.Fatalf("err = %v, want ErrUnintelligible", err)
	}
}

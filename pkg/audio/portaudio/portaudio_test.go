package portaudio

import (
	"context"
	"testing"

	"github.com/MrWong99/micscribe/pkg/audio"
)

func TestNew_Options(t *testing.T) {
	d := New(WithDeviceName("USB Microphone"), WithLowLatency(true))
	if d.name != "USB Microphone" {
		t.Errorf("name = %q, want %q", d.name, "USB Microphone")
	}
	if !d.lowLatency {
		t.Error("lowLatency = false, want true")
	}
}

// The following cases are rejected before PortAudio is initialised, so they
// run without audio hardware.

func TestOpen_RejectsInvalidFormat(t *testing.T) {
	d := New()
	_, err := d.Open(context.Background(), audio.Format{SampleRate: 16000, Channels: 2, SampleWidth: 2}, 1024)
	if err == nil {
		t.Fatal("expected error for stereo format, got nil")
	}
}

func TestOpen_RejectsNonPositiveBuffer(t *testing.T) {
	d := New()
	_, err := d.Open(context.Background(), audio.DefaultFormat(), 0)
	if err == nil {
		t.Fatal("expected error for zero frames per buffer, got nil")
	}
}

func TestOpen_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Open(ctx, audio.DefaultFormat(), 1024)
	if err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/MrWong99/micscribe/internal/config"
	"github.com/MrWong99/micscribe/internal/console"
	"github.com/MrWong99/micscribe/internal/waveform"
	"github.com/MrWong99/micscribe/pkg/audio"
	"github.com/MrWong99/micscribe/pkg/audio/mock"
	"github.com/MrWong99/micscribe/pkg/provider/stt"
)

func TestOptHelpers(t *testing.T) {
	opts := map[string]any{
		"prompt":      "names: Ada",
		"keywords":    []any{"micscribe", 7, "waveform"},
		"single":      "one",
		"temperature": 0.2,
		"threads":     4,
		"wrong":       true,
	}

	if got := optString(opts, "prompt"); got != "names: Ada" {
		t.Errorf("optString = %q", got)
	}
	if got := optString(opts, "threads"); got != "" {
		t.Errorf("optString(non-string) = %q, want empty", got)
	}
	if got := optString(nil, "prompt"); got != "" {
		t.Errorf("optString(nil) = %q", got)
	}

	if got := optStrings(opts, "keywords"); strings.Join(got, ",") != "micscribe,waveform" {
		t.Errorf("optStrings = %v", got)
	}
	if got := optStrings(opts, "single"); len(got) != 1 || got[0] != "one" {
		t.Errorf("optStrings(single) = %v", got)
	}
	if got := optStrings(opts, "missing"); got != nil {
		t.Errorf("optStrings(missing) = %v", got)
	}

	if v, ok := optFloat(opts, "temperature"); !ok || v != 0.2 {
		t.Errorf("optFloat(float) = %v, %v", v, ok)
	}
	if v, ok := optFloat(opts, "threads"); !ok || v != 4 {
		t.Errorf("optFloat(int) = %v, %v", v, ok)
	}
	if _, ok := optFloat(opts, "wrong"); ok {
		t.Error("optFloat(bool) reported ok")
	}
}

func TestAPIKeyOr(t *testing.T) {
	t.Setenv("MICSCRIBE_TEST_KEY", "from-env")

	if got := apiKeyOr(config.ProviderEntry{APIKey: "from-file"}, "MICSCRIBE_TEST_KEY"); got != "from-file" {
		t.Errorf("configured key = %q", got)
	}
	if got := apiKeyOr(config.ProviderEntry{}, "MICSCRIBE_TEST_KEY"); got != "from-env" {
		t.Errorf("env fallback = %q", got)
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Transcription.APIKey = "secret"
	cfg.Transcription.Model = "long"
	cfg.Transcription.Language = "de-DE"

	applyFlags(cfg, &rootOptions{
		outDir:   "takes",
		provider: "whisper",
		display:  "terminal",
		logLevel: "debug",
		device:   "USB Mic",
	})

	if cfg.Output.Dir != "takes" {
		t.Errorf("Output.Dir = %q", cfg.Output.Dir)
	}
	if cfg.Transcription.Name != "whisper" || cfg.Transcription.APIKey != "" || cfg.Transcription.Model != "" {
		t.Errorf("Transcription = %+v, want whisper without google credentials", cfg.Transcription)
	}
	if cfg.Transcription.Language != "de-DE" || cfg.Transcription.Timeout != config.DefaultTimeout {
		t.Errorf("Transcription lost language or timeout: %+v", cfg.Transcription)
	}
	if cfg.Waveform.Display != config.DisplayTerminal {
		t.Errorf("Display = %q", cfg.Waveform.Display)
	}
	if cfg.LogLevel != config.LogDebug {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Capture.Device != "USB Mic" {
		t.Errorf("Device = %q", cfg.Capture.Device)
	}
}

func TestApplyFlags_SameProviderKeepsEntry(t *testing.T) {
	cfg := config.Default()
	cfg.Transcription.APIKey = "secret"

	applyFlags(cfg, &rootOptions{provider: cfg.Transcription.Name})

	if cfg.Transcription.APIKey != "secret" {
		t.Errorf("APIKey = %q, want it kept", cfg.Transcription.APIKey)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level config.LogLevel
		want  slog.Level
	}{
		{config.LogDebug, slog.LevelDebug},
		{config.LogInfo, slog.LevelInfo},
		{config.LogWarn, slog.LevelWarn},
		{config.LogError, slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			l := newLogger(tt.level)
			if !l.Enabled(context.Background(), tt.want) {
				t.Errorf("level %v disabled", tt.want)
			}
			if tt.want > slog.LevelDebug && l.Enabled(context.Background(), tt.want-1) {
				t.Errorf("level below %v enabled", tt.want)
			}
		})
	}
}

func TestRegisterBuiltinProviders(t *testing.T) {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	got := reg.STTNames()
	for _, want := range []string{"deepgram", "google", "openai", "whisper", "whisper-native"} {
		found := false
		for _, name := range got {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("STTNames() = %v, missing %q", got, want)
		}
	}
}

func TestRegisterBuiltinProviders_Construction(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DEEPGRAM_API_KEY", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	tests := []struct {
		name    string
		entry   config.ProviderEntry
		wantErr string
	}{
		{name: "whisper", entry: config.ProviderEntry{Name: "whisper", BaseURL: "http://localhost:8080"}},
		{name: "whisper without url", entry: config.ProviderEntry{Name: "whisper"}, wantErr: "serverURL"},
		{name: "whisper-native without model", entry: config.ProviderEntry{Name: "whisper-native"}, wantErr: "modelPath"},
		{name: "openai without key", entry: config.ProviderEntry{Name: "openai", Model: "whisper-1"}, wantErr: "apiKey"},
		{name: "deepgram", entry: config.ProviderEntry{Name: "deepgram", APIKey: "k", Options: map[string]any{"keywords": []any{"micscribe"}}}},
		{name: "deepgram without key", entry: config.ProviderEntry{Name: "deepgram"}, wantErr: "apiKey"},
		{name: "google without project", entry: config.ProviderEntry{Name: "google"}, wantErr: "projectID"},
		{name: "google missing credentials", entry: config.ProviderEntry{Name: "google", Options: map[string]any{
			"project_id":       "p",
			"credentials_file": "/nonexistent/credentials.json",
		}}, wantErr: "read credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := reg.CreateSTT(tt.entry)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want it to mention %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateSTT: %v", err)
			}
			closeProvider(p)
		})
	}
}

func TestRegisterBuiltinProviders_Audio(t *testing.T) {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	dev, err := reg.CreateAudio(audioBackend, config.CaptureConfig{Device: "USB Mic"})
	if err != nil {
		t.Fatalf("CreateAudio: %v", err)
	}
	if _, ok := dev.(audio.Lister); !ok {
		t.Error("portaudio device does not list devices")
	}
}

func TestBuildProvider_Unknown(t *testing.T) {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	cfg := config.Default()
	cfg.Transcription.Name = "carrier-pigeon"

	_, err := buildProvider(cfg, reg)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{`"carrier-pigeon"`, "whisper"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("err = %q, want it to mention %s", err, want)
		}
	}
}

func TestBuildProvider_WrapsFactoryError(t *testing.T) {
	reg := config.NewRegistry()
	boom := errors.New("boom")
	reg.RegisterSTT("broken", func(config.ProviderEntry) (stt.Provider, error) { return nil, boom })
	cfg := config.Default()
	cfg.Transcription.Name = "broken"

	if _, err := buildProvider(cfg, reg); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestListDevices(t *testing.T) {
	dev := &mock.Device{Devices: []audio.DeviceInfo{
		{Name: "Built-in Microphone", HostAPI: "ALSA", MaxInputChannels: 2, DefaultSampleRate: 44100, IsDefault: true},
		{Name: "USB Mic", HostAPI: "ALSA", MaxInputChannels: 1, DefaultSampleRate: 16000},
	}}

	var buf bytes.Buffer
	if err := listDevices(&buf, dev); err != nil {
		t.Fatalf("listDevices: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "* Built-in Microphone") || !strings.Contains(lines[0], "44100 Hz") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  USB Mic") || !strings.Contains(lines[1], " 1 ch") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestListDevices_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := listDevices(&buf, &mock.Device{}); err != nil {
		t.Fatalf("listDevices: %v", err)
	}
	if got := buf.String(); got != "no input devices found\n" {
		t.Errorf("output = %q", got)
	}
}

type plainDevice struct{ audio.Device }

func TestListDevices_NotALister(t *testing.T) {
	if err := listDevices(io.Discard, plainDevice{}); err == nil {
		t.Error("expected error for a device without a device list")
	}
}

func TestNewDisplay(t *testing.T) {
	rep := console.NewReporter(io.Discard)
	lines := console.NewLines(strings.NewReader(""))

	tests := []struct {
		display config.Display
		check   func(waveform.Display) bool
	}{
		{config.DisplayWindow, func(d waveform.Display) bool {
			w, ok := d.(*waveform.Window)
			return ok && w.Input == lines && w.Style.Title == config.DefaultPlotTitle
		}},
		{config.DisplayTerminal, func(d waveform.Display) bool {
			_, ok := d.(*waveform.Terminal)
			return ok
		}},
		{config.DisplayNone, func(d waveform.Display) bool {
			_, ok := d.(waveform.None)
			return ok
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.display), func(t *testing.T) {
			cfg := config.Default()
			cfg.Waveform.Display = tt.display
			if d := newDisplay(cfg, lines, rep, io.Discard); !tt.check(d) {
				t.Errorf("newDisplay(%q) = %T", tt.display, d)
			}
		})
	}
}

func TestSessionConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Dir = "takes"
	cfg.Transcription.Language = "en-GB"

	sc := sessionConfig(cfg)
	if sc.Format != audio.DefaultFormat() {
		t.Errorf("Format = %v", sc.Format)
	}
	if sc.FramesPerBuffer != audio.DefaultFramesPerBuffer || sc.Pace != config.DefaultPace {
		t.Errorf("capture = %d frames, %v pace", sc.FramesPerBuffer, sc.Pace)
	}
	if sc.Dir != "takes" || sc.AudioFile != config.DefaultAudioFile || sc.TranscriptFile != config.DefaultTranscriptFile {
		t.Errorf("output = %+v", sc)
	}
	if sc.Timeout != config.DefaultTimeout || sc.Language != "en-GB" || sc.ProviderName != config.DefaultProvider {
		t.Errorf("transcription = %+v", sc)
	}
}

func TestStartupSummary(t *testing.T) {
	cfg := config.Default()
	cfg.Transcription.Model = "long"
	cfg.Output.Dir = "takes"

	var buf bytes.Buffer
	console.NewReporter(&buf).Summary(startupSummary(cfg))
	out := buf.String()

	for _, want := range []string{
		"google / long",
		"portaudio / (system default)",
		"takes/speech.wav",
		"takes/speech.txt",
		"(not configured)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestStartTelemetry_Disabled(t *testing.T) {
	tel, err := startTelemetry(context.Background(), config.Default())
	if err != nil {
		t.Fatalf("startTelemetry: %v", err)
	}
	if err := tel.serve(nil); err != nil {
		t.Errorf("serve without address: %v", err)
	}
	tel.shutdown()
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"devices", "transcribe"} {
		if c, _, err := cmd.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, c, err)
		}
	}
}

func TestTranscribeCmd_RequiresFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"transcribe"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err == nil {
		t.Error("expected argument error")
	}
}

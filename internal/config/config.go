// Package config provides the configuration schema, loader, and provider registry
// for the micscribe capture-and-transcribe utility.
package config

import (
	"time"

	"github.com/MrWong99/micscribe/pkg/audio"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Display selects how the waveform plot is shown after a session.
type Display string

const (
	// DisplayWindow renders a PNG and opens it in the system image viewer.
	DisplayWindow Display = "window"

	// DisplayTerminal draws a coloured column plot on the terminal.
	DisplayTerminal Display = "terminal"

	// DisplayNone skips the plot entirely.
	DisplayNone Display = "none"
)

// IsValid reports whether d is a recognised display mode.
func (d Display) IsValid() bool {
	switch d {
	case DisplayWindow, DisplayTerminal, DisplayNone:
		return true
	}
	return false
}

// Defaults applied by [Config.ApplyDefaults].
const (
	DefaultAudioFile      = "speech.wav"
	DefaultTranscriptFile = "speech.txt"
	DefaultPace           = 100 * time.Millisecond
	DefaultTimeout        = 60 * time.Second
	DefaultPlotTitle      = "Your Voice Waveform Visualization"
	DefaultPlotWidth      = 10.0
	DefaultPlotHeight     = 4.0
	DefaultServiceName    = "micscribe"
	DefaultProvider       = "google"
)

// Config is the root configuration structure for micscribe.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	Capture       CaptureConfig   `yaml:"capture"`
	Output        OutputConfig    `yaml:"output"`
	Transcription ProviderEntry   `yaml:"transcription"`
	Waveform      WaveformConfig  `yaml:"waveform"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
}

// CaptureConfig holds the microphone settings.
type CaptureConfig struct {
	// SampleRate in Hz. Defaults to 16000.
	SampleRate int `yaml:"sample_rate"`

	// FramesPerBuffer is the number of samples read per capture tick.
	// Defaults to 1024.
	FramesPerBuffer int `yaml:"frames_per_buffer"`

	// Pace is the wait between capture ticks. Defaults to 100ms.
	Pace time.Duration `yaml:"pace"`

	// Device selects an input device by name. Empty means the system default.
	Device string `yaml:"device"`
}

// Format returns the capture format described by c.
func (c CaptureConfig) Format() audio.Format {
	return audio.Format{
		SampleRate:  c.SampleRate,
		Channels:    audio.DefaultChannels,
		SampleWidth: audio.DefaultSampleWidth,
	}
}

// OutputConfig names the artifacts written by a session.
type OutputConfig struct {
	// Dir is the directory artifacts are written to. Defaults to the working
	// directory.
	Dir string `yaml:"dir"`

	// AudioFile is the WAV file name. Defaults to "speech.wav".
	AudioFile string `yaml:"audio_file"`

	// TranscriptFile is the transcript file name. Defaults to "speech.txt".
	TranscriptFile string `yaml:"transcript_file"`
}

// ProviderEntry is the configuration block for the transcription provider.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "google", "deepgram").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "long", "nova-3").
	Model string `yaml:"model"`

	// Language is the recognition language (e.g., "en-US").
	Language string `yaml:"language"`

	// Timeout bounds the single transcription call. Defaults to 60s.
	Timeout time.Duration `yaml:"timeout"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// WaveformConfig controls the waveform plot.
type WaveformConfig struct {
	Display  Display `yaml:"display"`
	Title    string  `yaml:"title"`
	WidthIn  float64 `yaml:"width_in"`
	HeightIn float64 `yaml:"height_in"`
}

// TelemetryConfig controls the metrics endpoint.
type TelemetryConfig struct {
	// MetricsAddr is the listen address for /metrics (e.g., ":9464").
	// Empty disables the listener.
	MetricsAddr string `yaml:"metrics_addr"`

	// ServiceName is reported as the OpenTelemetry service.name.
	ServiceName string `yaml:"service_name"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every zero-valued field with its default.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = LogInfo
	}
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = audio.DefaultSampleRate
	}
	if c.Capture.FramesPerBuffer == 0 {
		c.Capture.FramesPerBuffer = audio.DefaultFramesPerBuffer
	}
	if c.Capture.Pace == 0 {
		c.Capture.Pace = DefaultPace
	}
	if c.Output.AudioFile == "" {
		c.Output.AudioFile = DefaultAudioFile
	}
	if c.Output.TranscriptFile == "" {
		c.Output.TranscriptFile = DefaultTranscriptFile
	}
	if c.Transcription.Name == "" {
		c.Transcription.Name = DefaultProvider
	}
	if c.Transcription.Timeout == 0 {
		c.Transcription.Timeout = DefaultTimeout
	}
	if c.Waveform.Display == "" {
		c.Waveform.Display = DisplayWindow
	}
	if c.Waveform.Title == "" {
		c.Waveform.Title = DefaultPlotTitle
	}
	if c.Waveform.WidthIn == 0 {
		c.Waveform.WidthIn = DefaultPlotWidth
	}
	if c.Waveform.HeightIn == 0 {
		c.Waveform.HeightIn = DefaultPlotHeight
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}

package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":   {"google", "openai", "deepgram", "whisper", "whisper-native"},
	"audio": {"portaudio"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional behaves like [Load] but returns [Default] when path does not
// exist. Any other error is returned.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("config file not found, using defaults", "path", path)
		return Default(), nil
	}
	return cfg, err
}

// LoadFromReader decodes a YAML config from r, expands ${VAR} references
// against the environment, applies defaults, and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	cfg := &Config{}
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
// Validate expects defaults to have been applied.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Capture
	if cfg.Capture.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("capture.sample_rate %d must be positive", cfg.Capture.SampleRate))
	}
	if cfg.Capture.FramesPerBuffer <= 0 {
		errs = append(errs, fmt.Errorf("capture.frames_per_buffer %d must be positive", cfg.Capture.FramesPerBuffer))
	}
	if cfg.Capture.Pace < 0 {
		errs = append(errs, fmt.Errorf("capture.pace %s must not be negative", cfg.Capture.Pace))
	}

	// Output
	for field, name := range map[string]string{
		"output.audio_file":      cfg.Output.AudioFile,
		"output.transcript_file": cfg.Output.TranscriptFile,
	} {
		if name != filepath.Base(name) {
			errs = append(errs, fmt.Errorf("%s %q must be a file name, not a path; use output.dir", field, name))
		}
	}
	if cfg.Output.AudioFile == cfg.Output.TranscriptFile {
		errs = append(errs, fmt.Errorf("output.audio_file and output.transcript_file must differ (both %q)", cfg.Output.AudioFile))
	}

	// Transcription
	if cfg.Transcription.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("transcription.timeout %s must be positive", cfg.Transcription.Timeout))
	}
	validateProviderName("stt", cfg.Transcription.Name)

	// Waveform
	if !cfg.Waveform.Display.IsValid() {
		errs = append(errs, fmt.Errorf("waveform.display %q is invalid; valid values: window, terminal, none", cfg.Waveform.Display))
	}
	if cfg.Waveform.WidthIn <= 0 || cfg.Waveform.HeightIn <= 0 {
		errs = append(errs, fmt.Errorf("waveform size %.1fx%.1f in must be positive", cfg.Waveform.WidthIn, cfg.Waveform.HeightIn))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or a provider registered at build time",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

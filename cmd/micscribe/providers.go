package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"google.golang.org/api/option"

	"github.com/MrWong99/micscribe/internal/config"
	"github.com/MrWong99/micscribe/pkg/audio"
	"github.com/MrWong99/micscribe/pkg/audio/portaudio"
	"github.com/MrWong99/micscribe/pkg/provider/stt"
	"github.com/MrWong99/micscribe/pkg/provider/stt/deepgram"
	"github.com/MrWong99/micscribe/pkg/provider/stt/google"
	"github.com/MrWong99/micscribe/pkg/provider/stt/openai"
	"github.com/MrWong99/micscribe/pkg/provider/stt/whisper"
)

// audioBackend is the capture backend micscribe records with.
const audioBackend = "portaudio"

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives its configuration block and constructs the provider
// from the implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("google", func(entry config.ProviderEntry) (stt.Provider, error) {
		project := optString(entry.Options, "project_id")
		if project == "" {
			project = os.Getenv("GOOGLE_CLOUD_PROJECT")
		}
		var opts []google.Option
		if entry.APIKey != "" {
			opts = append(opts, google.WithAPIKey(entry.APIKey))
		}
		if path := optString(entry.Options, "credentials_file"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("google: read credentials: %w", err)
			}
			opts = append(opts, google.WithCredentialsJSON(data))
		}
		if qp := optString(entry.Options, "quota_project"); qp != "" {
			opts = append(opts, google.WithQuotaProject(qp))
		}
		if region := optString(entry.Options, "region"); region != "" {
			opts = append(opts, google.WithRegion(region))
		}
		if entry.Model != "" {
			opts = append(opts, google.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, google.WithLanguage(entry.Language))
		}
		if entry.BaseURL != "" {
			opts = append(opts, google.WithClientOptions(option.WithEndpoint(entry.BaseURL)))
		}
		return google.New(project, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if entry.Language != "" {
			opts = append(opts, openai.WithLanguage(entry.Language))
		}
		if prompt := optString(entry.Options, "prompt"); prompt != "" {
			opts = append(opts, openai.WithPrompt(prompt))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		return openai.New(apiKeyOr(entry, "OPENAI_API_KEY"), entry.Model, opts...)
	})

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, deepgram.WithLanguage(entry.Language))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithBaseURL(entry.BaseURL))
		}
		if kw := optStrings(entry.Options, "keywords"); len(kw) > 0 {
			opts = append(opts, deepgram.WithKeywords(kw...))
		}
		return deepgram.New(apiKeyOr(entry, "DEEPGRAM_API_KEY"), opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		if t, ok := optFloat(entry.Options, "temperature"); ok {
			opts = append(opts, whisper.WithTemperature(t))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if entry.Language != "" {
			opts = append(opts, whisper.WithNativeLanguage(entry.Language))
		}
		if n, ok := optFloat(entry.Options, "threads"); ok && n > 0 {
			opts = append(opts, whisper.WithNativeThreads(uint(n)))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	// ── Audio ─────────────────────────────────────────────────────────────────

	reg.RegisterAudio(audioBackend, func(cfg config.CaptureConfig) (audio.Device, error) {
		return portaudio.New(portaudio.WithDeviceName(cfg.Device)), nil
	})

	for _, name := range reg.STTNames() {
		slog.Debug("registered provider", "kind", "stt", "name", name)
	}
}

// buildProvider instantiates the transcription provider named in cfg.
func buildProvider(cfg *config.Config, reg *config.Registry) (stt.Provider, error) {
	name := cfg.Transcription.Name
	p, err := reg.CreateSTT(cfg.Transcription)
	if errors.Is(err, config.ErrProviderNotRegistered) {
		return nil, fmt.Errorf("unknown transcription provider %q (available: %v)", name, reg.STTNames())
	}
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", name, err)
	}
	slog.Info("provider created", "kind", "stt", "name", name)
	return p, nil
}

// closeProvider releases providers that hold resources.
func closeProvider(p stt.Provider) {
	c, ok := p.(stt.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		slog.Warn("close stt provider", "err", err)
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// apiKeyOr returns the configured API key or, when empty, the value of the
// environment variable env.
func apiKeyOr(entry config.ProviderEntry, env string) string {
	if entry.APIKey != "" {
		return entry.APIKey
	}
	return os.Getenv(env)
}

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return s
}

// optStrings extracts a list of strings. A single string is accepted as a
// one-element list; non-string elements are skipped.
func optStrings(opts map[string]any, key string) []string {
	switch v := opts[key].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// optFloat extracts a number; YAML decodes integers as int.
func optFloat(opts map[string]any, key string) (float64, bool) {
	switch v := opts[key].(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// listDevices prints the input devices of the capture backend.
func listDevices(w io.Writer, dev audio.Device) error {
	lister, ok := dev.(audio.Lister)
	if !ok {
		return fmt.Errorf("%s backend cannot list devices", audioBackend)
	}
	infos, err := lister.InputDevices()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(w, "no input devices found")
		return nil
	}
	for _, d := range infos {
		mark := " "
		if d.IsDefault {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %-40s %-12s %2d ch  %6.0f Hz\n", mark, d.Name, d.HostAPI, d.MaxInputChannels, d.DefaultSampleRate)
	}
	return nil
}

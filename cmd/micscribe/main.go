// Command micscribe records the microphone until Enter is pressed, saves the
// take as a WAV file, transcribes it, and shows its waveform.
//
// Usage:
//
//	micscribe [--config micscribe.yaml] [--out-dir dir] [--provider name] [--display window|terminal|none]
//	micscribe devices
//	micscribe transcribe take.wav
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/micscribe/internal/config"
)

// version is overridden at build time with -ldflags "-X main.version=…".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "micscribe: %v\n", err)
		}
		return 1
	}
	return 0
}

// rootOptions holds the global flags. Empty values leave the configuration
// file's settings untouched.
type rootOptions struct {
	configPath string
	outDir     string
	provider   string
	display    string
	logLevel   string
	device     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "micscribe",
		Short: "Record, transcribe and visualise a voice take",
		Long: `micscribe records the microphone until you press Enter, then:
  - saves the recording as a 16 kHz mono WAV file,
  - sends it once to the configured speech-to-text provider and saves the text,
  - shows the waveform of the recording.

Examples:
  # Record with the defaults from micscribe.yaml
  micscribe

  # Use a local whisper.cpp server and draw the plot in the terminal
  micscribe --provider whisper --display terminal

  # Re-transcribe an earlier take
  micscribe transcribe speech.wav
`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecord(cmd, opts)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "micscribe.yaml", "path to the YAML configuration file (defaults apply if it does not exist)")
	f.StringVar(&opts.outDir, "out-dir", "", "directory for the WAV and transcript files")
	f.StringVar(&opts.provider, "provider", "", "speech-to-text provider (google, openai, deepgram, whisper, whisper-native)")
	f.StringVar(&opts.display, "display", "", "waveform display: window, terminal or none")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	f.StringVar(&opts.device, "device", "", "input device name (see 'micscribe devices')")

	cmd.AddCommand(newDevicesCmd(opts), newTranscribeCmd(opts))
	return cmd
}

// loadConfig reads the configuration file, applies flag overrides,
// validates the result and installs the default logger.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.LoadOptional(opts.configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg, opts)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(cfg.LogLevel))
	slog.Debug("configuration loaded", "config", opts.configPath, "provider", cfg.Transcription.Name)
	return cfg, nil
}

func applyFlags(cfg *config.Config, opts *rootOptions) {
	if opts.outDir != "" {
		cfg.Output.Dir = opts.outDir
	}
	if opts.provider != "" && opts.provider != cfg.Transcription.Name {
		// Credentials and model are provider-specific.
		cfg.Transcription = config.ProviderEntry{
			Name:     opts.provider,
			Language: cfg.Transcription.Language,
			Timeout:  cfg.Transcription.Timeout,
		}
	}
	if opts.display != "" {
		cfg.Waveform.Display = config.Display(opts.display)
	}
	if opts.logLevel != "" {
		cfg.LogLevel = config.LogLevel(opts.logLevel)
	}
	if opts.device != "" {
		cfg.Capture.Device = opts.device
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

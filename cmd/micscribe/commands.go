package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/micscribe/internal/capture"
	"github.com/MrWong99/micscribe/internal/config"
	"github.com/MrWong99/micscribe/internal/console"
	"github.com/MrWong99/micscribe/internal/health"
	"github.com/MrWong99/micscribe/internal/observe"
	"github.com/MrWong99/micscribe/internal/session"
	"github.com/MrWong99/micscribe/internal/waveform"
	"github.com/MrWong99/micscribe/pkg/audio/wavfile"
)

// runRecord is the default command: one full recording session.
func runRecord(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	provider, err := buildProvider(cfg, reg)
	if err != nil {
		return err
	}
	defer closeProvider(provider)

	device, err := reg.CreateAudio(audioBackend, cfg.Capture)
	if err != nil {
		return err
	}

	rep := console.NewReporter(cmd.OutOrStdout())
	rep.Banner()
	rep.Summary(startupSummary(cfg))

	tel, err := startTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer tel.shutdown()

	lines := console.NewLines(cmd.InOrStdin())
	s, err := session.New(sessionConfig(cfg), session.Deps{
		Device:   device,
		Input:    lines,
		Provider: provider,
		Reporter: rep,
		Progress: console.NewSpinner(cmd.ErrOrStderr()),
		Display:  newDisplay(cfg, lines, rep, cmd.OutOrStdout()),
	})
	if err != nil {
		return err
	}
	if err := tel.serve(s); err != nil {
		return err
	}

	_, err = s.Run(ctx)
	return err
}

func newTranscribeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <file.wav>",
		Short: "Transcribe and plot an existing 16-bit mono WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			format, pcm, err := wavfile.Load(args[0])
			if err != nil {
				return err
			}
			if err := format.Validate(); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			reg := config.NewRegistry()
			registerBuiltinProviders(reg)
			provider, err := buildProvider(cfg, reg)
			if err != nil {
				return err
			}
			defer closeProvider(provider)

			rep := console.NewReporter(cmd.OutOrStdout())
			lines := console.NewLines(cmd.InOrStdin())
			scfg := sessionConfig(cfg)
			scfg.Format = format
			s, err := session.New(scfg, session.Deps{
				Provider: provider,
				Reporter: rep,
				Display:  newDisplay(cfg, lines, rep, cmd.OutOrStdout()),
			})
			if err != nil {
				return err
			}
			_, err = s.Transcribe(cmd.Context(), capture.NewRecording(format, pcm))
			return err
		},
	}
}

func newDevicesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			reg := config.NewRegistry()
			registerBuiltinProviders(reg)
			dev, err := reg.CreateAudio(audioBackend, cfg.Capture)
			if err != nil {
				return err
			}
			return listDevices(cmd.OutOrStdout(), dev)
		},
	}
}

// sessionConfig maps the file configuration onto a session.
func sessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		Format:          cfg.Capture.Format(),
		FramesPerBuffer: cfg.Capture.FramesPerBuffer,
		Pace:            cfg.Capture.Pace,
		Dir:             cfg.Output.Dir,
		AudioFile:       cfg.Output.AudioFile,
		TranscriptFile:  cfg.Output.TranscriptFile,
		Timeout:         cfg.Transcription.Timeout,
		Language:        cfg.Transcription.Language,
		ProviderName:    cfg.Transcription.Name,
	}
}

func plotStyle(cfg *config.Config) waveform.Style {
	st := waveform.DefaultStyle()
	st.Title = cfg.Waveform.Title
	st.WidthIn = cfg.Waveform.WidthIn
	st.HeightIn = cfg.Waveform.HeightIn
	return st
}

func newDisplay(cfg *config.Config, in capture.Input, rep *console.Reporter, out io.Writer) waveform.Display {
	switch cfg.Waveform.Display {
	case config.DisplayTerminal:
		return &waveform.Terminal{Out: out, Style: plotStyle(cfg)}
	case config.DisplayNone:
		return waveform.None{}
	default:
		return &waveform.Window{Style: plotStyle(cfg), Input: in, Reporter: rep}
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func startupSummary(cfg *config.Config) console.Summary {
	s := console.Summary{Title: "micscribe " + version}
	s.AddProvider("STT", cfg.Transcription.Name, cfg.Transcription.Model)
	device := cfg.Capture.Device
	if device == "" {
		device = "(system default)"
	}
	s.AddProvider("Audio", audioBackend, device)
	s.Add("Format", fmt.Sprintf("%s, %d/tick", cfg.Capture.Format(), cfg.Capture.FramesPerBuffer))
	s.Add("Audio file", joinDir(cfg.Output.Dir, cfg.Output.AudioFile))
	s.Add("Transcript", joinDir(cfg.Output.Dir, cfg.Output.TranscriptFile))
	s.Add("Waveform", string(cfg.Waveform.Display))
	s.Add("Metrics", cfg.Telemetry.MetricsAddr)
	return s
}

func joinDir(dir, name string) string {
	return filepath.Join(dir, name)
}

// ── Telemetry ─────────────────────────────────────────────────────────────────

// telemetry owns the optional metrics listener.
type telemetry struct {
	cfg *config.Config
	tel *observe.Telemetry
	srv *observe.Server
}

// startTelemetry installs the OpenTelemetry providers when a metrics address
// is configured. With no address it returns an inert telemetry.
func startTelemetry(ctx context.Context, cfg *config.Config) (*telemetry, error) {
	t := &telemetry{cfg: cfg}
	if cfg.Telemetry.MetricsAddr == "" {
		return t, nil
	}
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	t.tel = tel
	return t, nil
}

// serve starts the listener with /metrics plus health probes for s.
func (t *telemetry) serve(s *session.Session) error {
	if t.tel == nil {
		return nil
	}
	probes := health.New(
		func() health.Progress {
			st, since := s.Stage()
			return health.Progress{Session: s.ID(), Stage: st.String(), Since: since}
		},
		health.Probe{Name: "session", Check: func(context.Context) error {
			switch st, _ := s.Stage(); st {
			case session.StageIdle:
				return errors.New("not recording yet")
			case session.StageFailed:
				return errors.New("session failed")
			}
			return nil
		}},
	)
	srv, err := observe.NewServer(t.cfg.Telemetry.MetricsAddr, t.tel.Handler(), observe.DefaultMetrics(),
		probes.Register)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", t.cfg.Telemetry.MetricsAddr, err)
	}
	t.srv = srv
	slog.Info("metrics listener started", "addr", srv.Addr())
	go func() {
		if err := srv.Serve(); err != nil {
			slog.Error("metrics listener", "err", err)
		}
	}()
	return nil
}

func (t *telemetry) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if t.srv != nil {
		if err := t.srv.Shutdown(ctx); err != nil {
			slog.Warn("metrics listener shutdown", "err", err)
		}
	}
	if t.tel != nil {
		if err := t.tel.Shutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}
}

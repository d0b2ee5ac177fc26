// Package session runs one micscribe recording session: capture until the
// operator presses Enter, then persist the WAV, transcribe it once, and show
// the waveform.
//
// The three post-capture stages run strictly in order. Stage failures are
// reported to the operator and do not stop later stages:
//
//   - a failed WAV write is joined into the returned error and the session
//     continues with the in-memory recording;
//   - an empty recording is reported as "no speech" without calling the
//     provider;
//   - an unintelligible or failed transcription is reported and leaves no
//     transcript file, but is not an error;
//   - a failed transcript write or waveform display is joined into the
//     returned error.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/micscribe/internal/capture"
	"github.com/MrWong99/micscribe/internal/console"
	"github.com/MrWong99/micscribe/internal/observe"
	"github.com/MrWong99/micscribe/internal/waveform"
	"github.com/MrWong99/micscribe/pkg/audio"
	"github.com/MrWong99/micscribe/pkg/audio/wavfile"
	"github.com/MrWong99/micscribe/pkg/provider/stt"
)

// Defaults applied by [New] for zero-valued [Config] fields.
const (
	DefaultAudioFile      = "speech.wav"
	DefaultTranscriptFile = "speech.txt"
	DefaultTimeout        = 60 * time.Second
)

// Config holds the per-session settings.
type Config struct {
	// Format is the capture format. Defaults to 16 kHz mono 16-bit.
	Format audio.Format

	// FramesPerBuffer is the number of samples read per capture tick.
	// Defaults to 1024.
	FramesPerBuffer int

	// Pace is the wait between capture ticks. Zero keeps [capture.DefaultPace].
	Pace time.Duration

	// Dir is the output directory. Empty means the working directory.
	Dir string

	// AudioFile and TranscriptFile are file names inside Dir.
	AudioFile      string
	TranscriptFile string

	// Timeout bounds the single transcription call. Expiry is reported as a
	// service failure. Defaults to 60s.
	Timeout time.Duration

	// Language is passed to the provider; empty selects its default.
	Language string

	// ProviderName labels metrics and logs.
	ProviderName string
}

// Deps are the collaborators a session drives.
type Deps struct {
	// Device and Input are required by [Session.Run].
	Device audio.Device
	Input  capture.Input

	// Provider is required.
	Provider stt.Provider

	// Reporter prints operator messages. Defaults to a reporter that
	// discards output.
	Reporter *console.Reporter

	// Progress receives capture ticks. Optional.
	Progress capture.Progress

	// Display shows the waveform. Defaults to [waveform.None].
	Display waveform.Display

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// Session is a single capture-and-transcribe run. A Session's Run method may
// be called only once.
type Session struct {
	id   string
	cfg  Config
	deps Deps

	stage   atomic.Int32
	changed atomic.Int64 // unix nanos of the last stage change
}

// New validates cfg and deps and returns a ready Session.
func New(cfg Config, deps Deps) (*Session, error) {
	if deps.Provider == nil {
		return nil, errors.New("session: transcription provider is required")
	}
	if cfg.Format == (audio.Format{}) {
		cfg.Format = audio.DefaultFormat()
	}
	if err := cfg.Format.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = audio.DefaultFramesPerBuffer
	}
	if cfg.AudioFile == "" {
		cfg.AudioFile = DefaultAudioFile
	}
	if cfg.TranscriptFile == "" {
		cfg.TranscriptFile = DefaultTranscriptFile
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ProviderName == "" {
		cfg.ProviderName = "unknown"
	}
	if deps.Reporter == nil {
		deps.Reporter = console.NewReporter(io.Discard)
	}
	if deps.Display == nil {
		deps.Display = waveform.None{}
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}
	sess := &Session{id: uuid.NewString(), cfg: cfg, deps: deps}
	sess.setStage(StageIdle)
	return sess, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Stage returns the stage the session is in and when it was entered. Safe
// for concurrent use.
func (s *Session) Stage() (Stage, time.Time) {
	return Stage(s.stage.Load()), time.Unix(0, s.changed.Load())
}

func (s *Session) setStage(st Stage) {
	s.changed.Store(time.Now().UnixNano())
	s.stage.Store(int32(st))
}

// Run records until the operator presses Enter and then runs the persist,
// transcribe and visualize stages.
//
// A device failure is returned before anything is written. If ctx is
// cancelled while recording, capture stops, the audio captured so far is
// saved, and Run returns the cancellation error without transcribing.
func (s *Session) Run(ctx context.Context) (res Result, err error) {
	if s.deps.Device == nil || s.deps.Input == nil {
		return Result{}, errors.New("session: audio device and operator input are required")
	}
	res.ID = s.id

	m := s.deps.Metrics
	m.ActiveSessions.Add(ctx, 1)
	defer m.ActiveSessions.Add(context.WithoutCancel(ctx), -1)

	ctx, span := observe.StartSpan(ctx, "session",
		trace.WithAttributes(attribute.String("session.id", s.id)))
	defer func() { observe.EndSpan(span, err) }()
	log := observe.Logger(ctx).With("session_id", s.id)

	defer func() {
		if err != nil {
			s.setStage(StageFailed)
		} else {
			s.setStage(StageFinished)
		}
	}()

	rec, err := s.record(ctx)
	if err != nil {
		return res, err
	}
	res.Recording = rec
	s.deps.Reporter.Info("Recording stopped.")

	if cerr := ctx.Err(); cerr != nil {
		log.Warn("session interrupted, saving captured audio", "frames", rec.FrameCount())
		path, perr := s.persist(context.WithoutCancel(ctx), rec)
		res.AudioPath = path
		return res, errors.Join(cerr, perr)
	}

	var errs []error
	path, perr := s.persist(ctx, rec)
	if perr != nil {
		s.deps.Reporter.Fail("Could not save audio: %v", perr)
		log.Warn("continuing with in-memory recording", "err", perr)
		errs = append(errs, perr)
	}
	res.AudioPath = path

	res, perr = s.process(ctx, res)
	errs = append(errs, perr)
	return res, errors.Join(errs...)
}

// Transcribe runs the transcribe and visualize stages on an existing
// recording, e.g. one loaded from a WAV file.
func (s *Session) Transcribe(ctx context.Context, rec *capture.Recording) (Result, error) {
	ctx, span := observe.StartSpan(ctx, "session.transcribe",
		trace.WithAttributes(attribute.String("session.id", s.id)))
	res, err := s.process(ctx, Result{ID: s.id, Recording: rec})
	observe.EndSpan(span, err)
	if err != nil {
		s.setStage(StageFailed)
	} else {
		s.setStage(StageFinished)
	}
	return res, err
}

func (s *Session) process(ctx context.Context, res Result) (Result, error) {
	var errs []error

	tr, path, err := s.transcribe(ctx, res.Recording)
	res.Transcript, res.TranscriptPath = tr, path
	if err != nil {
		s.deps.Reporter.Fail("Could not save transcription: %v", err)
		errs = append(errs, err)
	}

	if err := s.visualize(ctx, res.Recording); err != nil {
		s.deps.Reporter.Warn("Could not show waveform: %v", err)
		errs = append(errs, err)
	}

	observe.Logger(ctx).Info("session finished",
		"session_id", s.id,
		"frames", res.Recording.FrameCount(),
		"duration", res.Recording.Duration(),
		"transcript_status", string(res.Transcript.Status),
	)
	return res, errors.Join(errs...)
}

// record runs the watcher, the capture loop and the shutdown bridge until
// the loop stops.
func (s *Session) record(ctx context.Context) (*capture.Recording, error) {
	stop := capture.NewSignal()
	opts := []capture.Option{capture.WithMetrics(s.deps.Metrics)}
	if s.cfg.Pace > 0 {
		opts = append(opts, capture.WithPace(s.cfg.Pace))
	}
	if s.deps.Progress != nil {
		opts = append(opts, capture.WithProgress(s.deps.Progress))
	}
	loop := capture.NewLoop(s.deps.Device, s.cfg.Format, s.cfg.FramesPerBuffer, opts...)

	s.setStage(StageRecording)
	s.deps.Reporter.Info("Recording... Press Enter to stop.")

	g, gctx := errgroup.WithContext(ctx)
	wctx, wcancel := context.WithCancel(gctx)
	defer wcancel()

	var rec *capture.Recording
	g.Go(func() error {
		defer wcancel()
		r, err := loop.Run(gctx, stop)
		rec = r
		return err
	})
	g.Go(func() error {
		capture.Watch(wctx, s.deps.Input, stop)
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			stop.Set()
		case <-stop.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rec, nil
}

// outPath joins name onto the output directory, creating the directory.
func (s *Session) outPath(name string) (string, error) {
	if s.cfg.Dir == "" {
		return name, nil
	}
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("session: create output dir: %w", err)
	}
	return filepath.Join(s.cfg.Dir, name), nil
}

func (s *Session) persist(ctx context.Context, rec *capture.Recording) (path string, err error) {
	s.setStage(StagePersisting)
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "persist")
	defer func() {
		observe.EndSpan(span, err)
		s.deps.Metrics.RecordStage(ctx, "persist", stageStatus(err), time.Since(start))
	}()

	path, err = s.outPath(s.cfg.AudioFile)
	if err != nil {
		return "", err
	}
	if err := wavfile.Save(path, rec.Format, rec.PCM()); err != nil {
		return "", fmt.Errorf("session: save audio: %w", err)
	}
	span.SetAttributes(attribute.String("file.path", path), attribute.Int("file.samples", rec.SampleCount()))
	s.deps.Reporter.Saved("raw audio", path)
	return path, nil
}

// transcribe makes the single provider call and writes the transcript file.
// The returned error is set only when the transcript could not be written.
func (s *Session) transcribe(ctx context.Context, rec *capture.Recording) (tr TranscriptResult, path string, err error) {
	s.setStage(StageTranscribing)
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "transcribe")
	defer func() {
		span.SetAttributes(attribute.String("transcript.status", string(tr.Status)))
		observe.EndSpan(span, err)
		status := string(tr.Status)
		if err != nil {
			status = "error"
		}
		s.deps.Metrics.RecordStage(ctx, "transcribe", status, time.Since(start))
	}()

	if rec.Empty() {
		s.deps.Reporter.Warn("No speech detected.")
		return TranscriptResult{Status: StatusNoSpeech}, "", nil
	}

	tr = s.recognize(ctx, rec)
	switch tr.Status {
	case StatusUnintelligible:
		s.deps.Reporter.Warn("AI could not understand the audio.")
		return tr, "", nil
	case StatusFailed:
		s.deps.Reporter.Fail("API Error: %v", tr.Err)
		return tr, "", nil
	}

	s.deps.Reporter.Transcript(tr.Text)
	path, err = s.outPath(s.cfg.TranscriptFile)
	if err != nil {
		return tr, "", err
	}
	if err := os.WriteFile(path, []byte(tr.Text), 0o644); err != nil {
		return tr, "", fmt.Errorf("session: save transcript: %w", err)
	}
	s.deps.Reporter.Saved("transcription", path)
	return tr, path, nil
}

func (s *Session) recognize(ctx context.Context, rec *capture.Recording) TranscriptResult {
	name := s.cfg.ProviderName
	m := s.deps.Metrics
	log := observe.Logger(ctx)

	tctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	t, err := s.deps.Provider.Recognize(tctx, stt.Audio{
		PCM:         rec.PCM(),
		SampleRate:  rec.Format.SampleRate,
		Channels:    rec.Format.Channels,
		SampleWidth: rec.Format.SampleWidth,
		Language:    s.cfg.Language,
	})
	elapsed := time.Since(start)

	switch {
	case err == nil:
		m.RecordProviderRequest(ctx, name, "stt", "ok")
		m.RecordSTT(ctx, name, string(StatusRecognized), elapsed)
		log.Debug("transcription received", "provider", name, "chars", len(t.Text), "latency", elapsed)
		return TranscriptResult{Status: StatusRecognized, Text: t.Text, Transcript: t}

	case errors.Is(err, stt.ErrUnintelligible):
		m.RecordProviderRequest(ctx, name, "stt", "ok")
		m.RecordSTT(ctx, name, string(StatusUnintelligible), elapsed)
		log.Info("provider could not understand the audio", "provider", name)
		return TranscriptResult{Status: StatusUnintelligible, Err: err}

	default:
		if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("no answer within %s: %w", s.cfg.Timeout, err)
		}
		m.RecordProviderRequest(ctx, name, "stt", "error")
		m.RecordProviderError(ctx, name, "stt")
		m.RecordSTT(ctx, name, string(StatusFailed), elapsed)
		log.Warn("transcription failed", "provider", name, "err", err)
		return TranscriptResult{Status: StatusFailed, Err: err}
	}
}

func (s *Session) visualize(ctx context.Context, rec *capture.Recording) (err error) {
	s.setStage(StageVisualizing)
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "visualize")
	defer func() {
		observe.EndSpan(span, err)
		s.deps.Metrics.RecordStage(ctx, "visualize", stageStatus(err), time.Since(start))
	}()

	w := waveform.New(rec.Format, rec.PCM())
	span.SetAttributes(attribute.Int("waveform.samples", w.Len()))
	if err := s.deps.Display.Show(ctx, w); err != nil {
		return fmt.Errorf("session: show waveform: %w", err)
	}
	return nil
}

func stageStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

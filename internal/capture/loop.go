package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/MrWong99/micscribe/internal/observe"
	"github.com/MrWong99/micscribe/pkg/audio"
)

// DefaultPace is the wait between capture ticks.
const DefaultPace = 100 * time.Millisecond

// State is the lifecycle state of a [Loop].
type State int32

const (
	StateIdle State = iota
	StateRecording
	StateStopped
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Progress receives best-effort updates from the capture loop. Tick is
// called once per capture tick from the loop goroutine; Done once after the
// device has been released. Implementations must not block.
type Progress interface {
	Tick(frames int, captured time.Duration)
	Done()
}

// Option is a functional option for [NewLoop].
type Option func(*Loop)

// WithPace sets the wait between ticks. Zero disables pacing, leaving the
// device read as the only rate limit.
func WithPace(d time.Duration) Option {
	return func(l *Loop) {
		l.pace = d
	}
}

// WithProgress attaches a progress reporter.
func WithProgress(p Progress) Option {
	return func(l *Loop) {
		l.progress = p
	}
}

// WithMetrics records capture counters on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(l *Loop) {
		l.metrics = m
	}
}

// Loop pulls fixed-size frames from an audio device until a [Signal] is set.
// A Loop runs at most once.
type Loop struct {
	device          audio.Device
	format          audio.Format
	framesPerBuffer int
	pace            time.Duration
	progress        Progress
	metrics         *observe.Metrics

	state atomic.Int32
}

// NewLoop creates an idle Loop reading framesPerBuffer samples per tick from
// device in format.
func NewLoop(device audio.Device, format audio.Format, framesPerBuffer int, opts ...Option) *Loop {
	l := &Loop{
		device:          device,
		format:          format,
		framesPerBuffer: framesPerBuffer,
		pace:            DefaultPace,
		progress:        nopProgress{},
	}
	for _, o := range opts {
		o(l)
	}
	if l.metrics == nil {
		l.metrics = observe.DefaultMetrics()
	}
	return l
}

// State returns the current lifecycle state. Safe for concurrent use.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Run opens the device and records until stop is set.
//
// The signal is checked before every read: a signal set before the first
// tick yields an empty recording, and a signal set while tick k is in
// progress yields exactly k frames (fewer if some reads failed). A failed
// read only costs its own tick. The device stream is closed on every exit
// path, including a panic inside the read.
//
// A device acquisition failure is returned and leaves the loop idle.
func (l *Loop) Run(ctx context.Context, stop *Signal) (rec *Recording, err error) {
	if !l.state.CompareAndSwap(int32(StateIdle), int32(StateRecording)) {
		return nil, fmt.Errorf("capture: loop already %s", l.State())
	}

	ctx, span := observe.StartSpan(ctx, "capture")
	defer func() { observe.EndSpan(span, err) }()
	log := observe.Logger(ctx)

	stream, err := l.device.Open(ctx, l.format, l.framesPerBuffer)
	if err != nil {
		l.state.Store(int32(StateIdle))
		return nil, fmt.Errorf("capture: open device: %w", err)
	}
	log.Debug("capture started", "format", l.format.String(), "frames_per_buffer", l.framesPerBuffer, "pace", l.pace)

	buf := NewBuffer(l.format)
	readErrors := 0
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			log.Warn("capture: close device", "err", cerr)
		}
		l.state.Store(int32(StateStopped))
		l.progress.Done()
		span.SetAttributes(
			attribute.Int("capture.frames", buf.Len()),
			attribute.Int("capture.read_errors", readErrors),
			attribute.Float64("capture.seconds", buf.Duration().Seconds()),
		)
	}()

	var timer *time.Timer
	if l.pace > 0 {
		timer = time.NewTimer(l.pace)
		timer.Stop()
		defer timer.Stop()
	}

	for !stop.IsSet() {
		data, rerr := stream.Read()
		if rerr != nil {
			readErrors++
			l.metrics.CaptureReadErrors.Add(ctx, 1)
			log.Debug("capture: read failed, skipping tick", "err", rerr, "tick", buf.Len()+readErrors)
		} else {
			buf.Append(data)
			l.metrics.FramesCaptured.Add(ctx, 1)
		}
		l.progress.Tick(buf.Len(), buf.Duration())

		if timer != nil {
			timer.Reset(l.pace)
			select {
			case <-stop.Done():
			case <-timer.C:
			}
		}
	}

	rec = buf.Recording()
	l.metrics.RecordingDuration.Record(ctx, rec.Duration().Seconds())
	log.Info("capture stopped",
		slog.Int("frames", rec.FrameCount()),
		slog.Int("read_errors", readErrors),
		slog.Duration("duration", rec.Duration()),
	)
	return rec, nil
}

type nopProgress struct{}

func (nopProgress) Tick(int, time.Duration) {}
func (nopProgress) Done()                   {}

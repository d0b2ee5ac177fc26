// Package portaudio provides an [audio.Device] backed by the PortAudio
// library via its CGO bindings. The PortAudio shared library and headers must
// be available at build time (e.g. libportaudio2 / portaudio19-dev).
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	pa "github.com/gordonklaus/portaudio"

	"github.com/MrWong99/micscribe/pkg/audio"
)

var (
	_ audio.Device      = (*Device)(nil)
	_ audio.Lister      = (*Device)(nil)
	_ audio.InputStream = (*stream)(nil)
)

// Option is a functional option for configuring a Device.
type Option func(*Device)

// WithDeviceName selects the input device whose name matches exactly. When
// empty (the default) the system default input device is used.
func WithDeviceName(name string) Option {
	return func(d *Device) {
		d.name = name
	}
}

// WithLowLatency requests the device's low-latency parameters instead of the
// high-latency defaults. Blocking reads of a whole buffer rarely benefit from
// it, so it is off by default.
func WithLowLatency(enabled bool) Option {
	return func(d *Device) {
		d.lowLatency = enabled
	}
}

// Device opens PortAudio input streams. The zero value is not usable; create
// one with [New].
type Device struct {
	name       string
	lowLatency bool
}

// New creates a Device. PortAudio itself is initialised lazily on each Open
// and terminated when the returned stream is closed.
func New(opts ...Option) *Device {
	d := &Device{}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Open initialises PortAudio, opens the configured input device in blocking
// mode, and starts capture. Only 16-bit formats are supported.
func (d *Device) Open(ctx context.Context, format audio.Format, framesPerBuffer int) (audio.InputStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("portaudio: context already cancelled: %w", err)
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("portaudio: %w", err)
	}
	if framesPerBuffer <= 0 {
		return nil, fmt.Errorf("portaudio: frames per buffer %d must be positive", framesPerBuffer)
	}

	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}

	s, err := d.open(format, framesPerBuffer)
	if err != nil {
		_ = pa.Terminate()
		return nil, err
	}
	return s, nil
}

func (d *Device) open(format audio.Format, framesPerBuffer int) (*stream, error) {
	dev, err := d.lookup()
	if err != nil {
		return nil, err
	}
	if dev.MaxInputChannels < format.Channels {
		return nil, fmt.Errorf("portaudio: device %q has %d input channels, need %d", dev.Name, dev.MaxInputChannels, format.Channels)
	}

	var params pa.StreamParameters
	if d.lowLatency {
		params = pa.LowLatencyParameters(dev, nil)
	} else {
		params = pa.HighLatencyParameters(dev, nil)
	}
	params.Input.Channels = format.Channels
	params.SampleRate = float64(format.SampleRate)
	params.FramesPerBuffer = framesPerBuffer

	buf := make([]int16, framesPerBuffer*format.Channels)
	st, err := pa.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open stream on %q: %w", dev.Name, err)
	}
	if err := st.Start(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("portaudio: start stream on %q: %w", dev.Name, err)
	}

	slog.Debug("portaudio: capture started",
		"device", dev.Name,
		"format", format.String(),
		"frames_per_buffer", framesPerBuffer,
	)
	return &stream{st: st, buf: buf, device: dev.Name}, nil
}

// lookup resolves the configured device name. Must be called between
// Initialize and Terminate.
func (d *Device) lookup() (*pa.DeviceInfo, error) {
	if d.name == "" {
		dev, err := pa.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("portaudio: no default input device: %w", err)
		}
		return dev, nil
	}
	devices, err := pa.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: list devices: %w", err)
	}
	for _, dev := range devices {
		if dev.Name == d.name && dev.MaxInputChannels > 0 {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("portaudio: input device %q not found", d.name)
}

// InputDevices lists every device that offers at least one input channel.
func (d *Device) InputDevices() ([]audio.DeviceInfo, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	defer pa.Terminate()

	devices, err := pa.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: list devices: %w", err)
	}
	var defaultName string
	if def, err := pa.DefaultInputDevice(); err == nil {
		defaultName = def.Name
	}

	out := make([]audio.DeviceInfo, 0, len(devices))
	for _, dev := range devices {
		if dev.MaxInputChannels <= 0 {
			continue
		}
		info := audio.DeviceInfo{
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			IsDefault:         dev.Name == defaultName,
		}
		if dev.HostApi != nil {
			info.HostAPI = dev.HostApi.Name
		}
		out = append(out, info)
	}
	return out, nil
}

// stream is an open blocking PortAudio input stream.
type stream struct {
	st     *pa.Stream
	buf    []int16
	device string

	mu   sync.Mutex
	once sync.Once
	err  error
}

// Read blocks until one buffer has been captured. Input overflows are
// reported as [audio.ErrTransient]: the samples that arrived are discarded
// and the caller should simply read again.
func (s *stream) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.st.Read(); err != nil {
		if errors.Is(err, pa.InputOverflowed) {
			return nil, fmt.Errorf("portaudio: %w: %v", audio.ErrTransient, err)
		}
		return nil, fmt.Errorf("portaudio: read: %w", err)
	}
	return audio.Int16ToPCM(s.buf), nil
}

// Close stops and closes the stream and terminates PortAudio.
func (s *stream) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		var errs []error
		if err := s.st.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("portaudio: stop: %w", err))
		}
		if err := s.st.Close(); err != nil {
			errs = append(errs, fmt.Errorf("portaudio: close: %w", err))
		}
		if err := pa.Terminate(); err != nil {
			errs = append(errs, fmt.Errorf("portaudio: terminate: %w", err))
		}
		s.err = errors.Join(errs...)
		slog.Debug("portaudio: capture stopped", "device", s.device)
	})
	return s.err
}

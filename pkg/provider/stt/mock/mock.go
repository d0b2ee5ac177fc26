// Package mock provides a test double for the stt.Provider interface.
//
// Set Result or Err to control what Recognize returns and inspect Calls to
// verify which recordings were submitted.
//
// Example:
//
//	p := &mock.Provider{Result: stt.Transcript{Text: "hello"}}
//	got, _ := p.Recognize(ctx, audio)
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/micscribe/pkg/provider/stt"
)

// RecognizeCall records a single invocation of Provider.Recognize.
type RecognizeCall struct {
	// Audio is the recording passed to Recognize. PCM is a copy.
	Audio stt.Audio
	// Deadline is the context deadline at call time, if any.
	Deadline time.Time
	// HasDeadline reports whether the context carried a deadline.
	HasDeadline bool
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned by Recognize when Err is nil.
	Result stt.Transcript

	// Err, if non-nil, is returned as the error from Recognize.
	Err error

	// Delay blocks Recognize for the given duration or until the context is
	// done, whichever comes first. A cancelled context yields ctx.Err().
	Delay time.Duration

	// Calls records every call to Recognize.
	Calls []RecognizeCall

	// CloseCount is the number of times Close was called.
	CloseCount int
}

// Ensure Provider implements stt.Provider and stt.Closer at compile time.
var (
	_ stt.Provider = (*Provider)(nil)
	_ stt.Closer   = (*Provider)(nil)
)

// Recognize records the call and returns Result, Err.
func (p *Provider) Recognize(ctx context.Context, a stt.Audio) (stt.Transcript, error) {
	call := RecognizeCall{Audio: a}
	call.Audio.PCM = append([]byte(nil), a.PCM...)
	call.Deadline, call.HasDeadline = ctx.Deadline()

	p.mu.Lock()
	p.Calls = append(p.Calls, call)
	delay, result, err := p.Delay, p.Result, p.Err
	p.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return stt.Transcript{}, ctx.Err()
		case <-t.C:
		}
	}
	if err != nil {
		return stt.Transcript{}, err
	}
	return result, nil
}

// Close records the call.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CloseCount++
	return nil
}

// CallCount returns the number of Recognize calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
	p.CloseCount = 0
}

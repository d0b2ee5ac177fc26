// Package deepgram provides a Deepgram-backed STT provider using the Deepgram
// streaming WebSocket API. It implements the stt.Provider interface.
//
// The whole recording is streamed over one WebSocket connection, followed by
// a CloseStream message. Deepgram answers with final results for every
// segment and a Metadata message before it closes the connection; the final
// segments are joined into one transcript.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/micscribe/pkg/provider/stt"
)

const (
	deepgramEndpoint  = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultLanguage   = "en"
	defaultSampleRate = 16000

	// chunkBytes is the size of each binary audio message (~250 ms at 16 kHz mono).
	chunkBytes = 8000
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en", "de-DE").
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithBaseURL overrides the streaming endpoint (e.g., for self-hosted
// Deepgram or tests). It must use the ws or wss scheme.
func WithBaseURL(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// WithKeywords adds keyword boosts in Deepgram's "word:boost" form.
func WithKeywords(keywords ...string) Option {
	return func(p *Provider) {
		p.keywords = append(p.keywords, keywords...)
	}
}

// Provider implements stt.Provider backed by the Deepgram streaming API.
type Provider struct {
	apiKey   string
	endpoint string
	model    string
	language string
	keywords []string
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:   apiKey,
		endpoint: deepgramEndpoint,
		model:    defaultModel,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Recognize streams the recording to Deepgram and returns the joined final
// transcript.
func (p *Provider) Recognize(ctx context.Context, a stt.Audio) (stt.Transcript, error) {
	wsURL, err := p.buildURL(a)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("deepgram: dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 20)

	var (
		finals []segment
		g, gctx = errgroup.WithContext(ctx)
	)
	g.Go(func() error { return writeAudio(gctx, conn, a.PCM) })
	g.Go(func() error {
		var err error
		finals, err = readFinals(gctx, conn)
		return err
	})
	if err := g.Wait(); err != nil {
		return stt.Transcript{}, err
	}
	_ = conn.Close(websocket.StatusNormalClosure, "transcription complete")

	return stt.Finalize("deepgram", merge(finals, a))
}

// buildURL constructs the Deepgram streaming endpoint URL for the given audio.
func (p *Provider) buildURL(a stt.Audio) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	lang := a.Language
	if lang == "" {
		lang = p.language
	}
	sr := a.SampleRate
	if sr == 0 {
		sr = defaultSampleRate
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("interim_results", "false")
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(sr))
	if a.Channels > 0 {
		q.Set("channels", strconv.Itoa(a.Channels))
	}
	for _, kw := range p.keywords {
		q.Add("keywords", kw)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// writeAudio sends pcm in fixed-size binary messages followed by CloseStream,
// which asks Deepgram to flush its remaining results.
func writeAudio(ctx context.Context, conn *websocket.Conn, pcm []byte) error {
	for off := 0; off < len(pcm); off += chunkBytes {
		end := min(off+chunkBytes, len(pcm))
		if err := conn.Write(ctx, websocket.MessageBinary, pcm[off:end]); err != nil {
			return fmt.Errorf("deepgram: send audio: %w", err)
		}
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`)); err != nil {
		return fmt.Errorf("deepgram: send CloseStream: %w", err)
	}
	return nil
}

// readFinals collects final results until Deepgram sends its Metadata
// message or closes the connection normally.
func readFinals(ctx context.Context, conn *websocket.Conn) ([]segment, error) {
	var finals []segment
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return finals, nil
			}
			return nil, fmt.Errorf("deepgram: read: %w", err)
		}

		seg, kind := parseDeepgramResponse(msg)
		switch kind {
		case messageFinal:
			finals = append(finals, seg)
		case messageMetadata:
			return finals, nil
		case messageError:
			return nil, fmt.Errorf("deepgram: server error: %s", seg.text)
		}
	}
}

// ---- response parsing ----

type messageKind int

const (
	messageIgnored messageKind = iota
	messageFinal
	messageMetadata
	messageError
)

// deepgramResponse is the JSON structure returned by Deepgram for a Results event.
type deepgramResponse struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	Description string `json:"description"`
	Message     string `json:"message"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word       string  `json:"word"`
				Start      float64 `json:"start"`
				End        float64 `json:"end"`
				Confidence float64 `json:"confidence"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// segment is one final result.
type segment struct {
	text       string
	confidence float64
	words      []stt.WordDetail
}

// parseDeepgramResponse classifies a raw Deepgram WebSocket message and
// extracts the final segment it carries, if any.
func parseDeepgramResponse(data []byte) (segment, messageKind) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return segment{}, messageIgnored
	}
	switch resp.Type {
	case "Metadata":
		return segment{}, messageMetadata
	case "Error":
		msg := resp.Description
		if msg == "" {
			msg = resp.Message
		}
		return segment{text: msg}, messageError
	case "Results":
	default:
		return segment{}, messageIgnored
	}
	if !resp.IsFinal || len(resp.Channel.Alternatives) == 0 {
		return segment{}, messageIgnored
	}

	alt := resp.Channel.Alternatives[0]
	words := make([]stt.WordDetail, 0, len(alt.Words))
	for _, w := range alt.Words {
		words = append(words, stt.WordDetail{
			Word:       w.Word,
			Start:      time.Duration(w.Start * float64(time.Second)),
			End:        time.Duration(w.End * float64(time.Second)),
			Confidence: w.Confidence,
		})
	}
	return segment{text: alt.Transcript, confidence: alt.Confidence, words: words}, messageFinal
}

// merge joins the non-empty final segments into one transcript. Confidence is
// the mean over contributing segments.
func merge(finals []segment, a stt.Audio) stt.Transcript {
	var (
		parts []string
		words []stt.WordDetail
		conf  float64
	)
	for _, s := range finals {
		text := strings.TrimSpace(s.text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		words = append(words, s.words...)
		conf += s.confidence
	}
	t := stt.Transcript{Text: strings.Join(parts, " "), Words: words, Language: a.Language}
	if len(parts) > 0 {
		t.Confidence = conf / float64(len(parts))
	}
	if a.SampleRate > 0 && a.Channels > 0 && a.SampleWidth > 0 {
		bytesPerSec := a.SampleRate * a.Channels * a.SampleWidth
		t.Duration = time.Duration(len(a.PCM)) * time.Second / time.Duration(bytesPerSec)
	}
	return t
}

package deepgram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/micscribe/pkg/provider/stt"
)

// ---- URL / query-param tests ----

func TestBuildURL_Defaults(t *testing.T) {
	p, err := New("test-key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(stt.Audio{SampleRate: 16000, Channels: 1, SampleWidth: 2})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}
	q := u.Query()

	assertEqual(t, "host", "api.deepgram.com", u.Host)
	assertEqual(t, "model", "nova-3", q.Get("model"))
	assertEqual(t, "language", "en", q.Get("language"))
	assertEqual(t, "punctuate", "true", q.Get("punctuate"))
	assertEqual(t, "interim_results", "false", q.Get("interim_results"))
	assertEqual(t, "encoding", "linear16", q.Get("encoding"))
	assertEqual(t, "sample_rate", "16000", q.Get("sample_rate"))
	assertEqual(t, "channels", "1", q.Get("channels"))
}

func TestBuildURL_CustomModel(t *testing.T) {
	p, err := New("key", WithModel("base"), WithLanguage("de-DE"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(stt.Audio{})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	q := u.Query()

	assertEqual(t, "model", "base", q.Get("model"))
	assertEqual(t, "language", "de-DE", q.Get("language"))
	assertEqual(t, "sample_rate", "16000", q.Get("sample_rate"))
	if _, ok := q["channels"]; ok {
		t.Error("expected no 'channels' param when Channels is zero")
	}
}

func TestBuildURL_LanguageOverridenByAudio(t *testing.T) {
	// Audio.Language should take precedence over the provider-level default.
	p, err := New("key", WithLanguage("en"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(stt.Audio{Language: "fr-FR", SampleRate: 16000})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	assertEqual(t, "language", "fr-FR", u.Query().Get("language"))
}

func TestBuildURL_Keywords(t *testing.T) {
	p, err := New("key", WithKeywords("micscribe:5", "Zorrath:3.5"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := p.buildURL(stt.Audio{SampleRate: 16000})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	kws := u.Query()["keywords"]
	if len(kws) != 2 {
		t.Fatalf("expected 2 keywords, got %d: %v", len(kws), kws)
	}
	assertEqual(t, "keywords[0]", "micscribe:5", kws[0])
	assertEqual(t, "keywords[1]", "Zorrath:3.5", kws[1])
}

// ---- JSON parsing tests ----

func TestParseDeepgramResponse_Final(t *testing.T) {
	raw := []byte(`{
		"type": "Results",
		"is_final": true,
		"channel": {
			"alternatives": [{
				"transcript": "Hello world",
				"confidence": 0.95,
				"words": [
					{"word": "Hello", "start": 0.1, "end": 0.5, "confidence": 0.97},
					{"word": "world", "start": 0.6, "end": 1.0, "confidence": 0.93}
				]
			}]
		}
	}`)

	seg, kind := parseDeepgramResponse(raw)
	if kind != messageFinal {
		t.Fatalf("kind = %v, want messageFinal", kind)
	}
	assertEqual(t, "text", "Hello world", seg.text)
	if seg.confidence != 0.95 {
		t.Errorf("expected confidence 0.95, got %f", seg.confidence)
	}
	if len(seg.words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(seg.words))
	}
	assertEqual(t, "word[0]", "Hello", seg.words[0].Word)
	if seg.words[0].Start != time.Duration(0.1*float64(time.Second)) {
		t.Errorf("unexpected start: %v", seg.words[0].Start)
	}
}

func TestParseDeepgramResponse_Classification(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want messageKind
	}{
		{"partial", `{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"Hel"}]}}`, messageIgnored},
		{"metadata", `{"type":"Metadata","request_id":"abc"}`, messageMetadata},
		{"error", `{"type":"Error","description":"bad audio"}`, messageError},
		{"speech started", `{"type":"SpeechStarted"}`, messageIgnored},
		{"empty alternatives", `{"type":"Results","is_final":true,"channel":{"alternatives":[]}}`, messageIgnored},
		{"invalid json", `{invalid`, messageIgnored},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, got := parseDeepgramResponse([]byte(tc.raw)); got != tc.want {
				t.Errorf("kind = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	finals := []segment{
		{text: "Hello there.", confidence: 0.9},
		{text: "  ", confidence: 0.1},
		{text: "General Kenobi.", confidence: 0.7},
	}
	a := stt.Audio{PCM: make([]byte, 32000), SampleRate: 16000, Channels: 1, SampleWidth: 2}
	got := merge(finals, a)
	assertEqual(t, "text", "Hello there. General Kenobi.", got.Text)
	if got.Confidence < 0.79 || got.Confidence > 0.81 {
		t.Errorf("confidence = %f, want 0.8", got.Confidence)
	}
	if got.Duration != time.Second {
		t.Errorf("duration = %v, want 1s", got.Duration)
	}
}

// ---- end-to-end against a fake Deepgram ----

// fakeDeepgram accepts one WebSocket session, counts the audio bytes it
// receives, and answers CloseStream with the given messages.
func fakeDeepgram(t *testing.T, received *atomic.Int64, auth *atomic.Value, replies ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		ctx := r.Context()
		for {
			typ, msg, err := c.Read(ctx)
			if err != nil {
				return
			}
			if typ == websocket.MessageBinary {
				received.Add(int64(len(msg)))
				continue
			}
			if strings.Contains(string(msg), "CloseStream") {
				for _, reply := range replies {
					if err := c.Write(ctx, websocket.MessageText, []byte(reply)); err != nil {
						return
					}
				}
				_ = c.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRecognize_JoinsFinals(t *testing.T) {
	var received atomic.Int64
	var auth atomic.Value
	srv := fakeDeepgram(t, &received, &auth,
		`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"testing one","confidence":0.9}]}}`,
		`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"two three","confidence":0.8}]}}`,
		`{"type":"Metadata","request_id":"abc"}`,
	)
	defer srv.Close()

	p, _ := New("secret", WithBaseURL(wsURL(srv)))
	pcm := make([]byte, 5*1024*2)
	got, err := p.Recognize(context.Background(), stt.Audio{PCM: pcm, SampleRate: 16000, Channels: 1, SampleWidth: 2})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	assertEqual(t, "text", "testing one two three", got.Text)
	if n := received.Load(); n != int64(len(pcm)) {
		t.Errorf("server received %d audio bytes, want %d", n, len(pcm))
	}
	assertEqual(t, "authorization", "Token secret", auth.Load().(string))
}

func TestRecognize_NoFinalsIsUnintelligible(t *testing.T) {
	var received atomic.Int64
	var auth atomic.Value
	srv := fakeDeepgram(t, &received, &auth,
		`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"","confidence":0}]}}`,
		`{"type":"Metadata","request_id":"abc"}`,
	)
	defer srv.Close()

	p, _ := New("secret", WithBaseURL(wsURL(srv)))
	_, err := p.Recognize(context.Background(), stt.Audio{PCM: make([]byte, 2048), SampleRate: 16000, Channels: 1, SampleWidth: 2})
	if !errors.Is(err, stt.ErrUnintelligible) {
		t.Fatalf("err = %v, want ErrUnintelligible", err)
	}
}

func TestRecognize_NormalCloseWithoutMetadata(t *testing.T) {
	var received atomic.Int64
	var auth atomic.Value
	srv := fakeDeepgram(t, &received, &auth,
		`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello","confidence":0.9}]}}`,
	)
	defer srv.Close()

	p, _ := New("secret", WithBaseURL(wsURL(srv)))
	got, err := p.Recognize(context.Background(), stt.Audio{PCM: make([]byte, 2048), SampleRate: 16000, Channels: 1, SampleWidth: 2})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	assertEqual(t, "text", "hello", got.Text)
}

func TestRecognize_ServerErrorMessage(t *testing.T) {
	var received atomic.Int64
	var auth atomic.Value
	srv := fakeDeepgram(t, &received, &auth, `{"type":"Error","description":"unsupported encoding"}`)
	defer srv.Close()

	p, _ := New("secret", WithBaseURL(wsURL(srv)))
	_, err := p.Recognize(context.Background(), stt.Audio{PCM: make([]byte, 2048), SampleRate: 16000, Channels: 1, SampleWidth: 2})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, stt.ErrUnintelligible) {
		t.Error("server error must not be reported as unintelligible")
	}
}

func TestRecognize_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, _ := New("bad", WithBaseURL(wsURL(srv)))
	_, err := p.Recognize(context.Background(), stt.Audio{PCM: make([]byte, 2048), SampleRate: 16000, Channels: 1, SampleWidth: 2})
	if err == nil {
		t.Fatal("expected dial error, got nil")
	}
}

// ---- Constructor tests ----

func TestNew_EmptyAPIKey(t *testing.T) {
	_, err := New("")
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNew_Defaults(t *testing.T) {
	p, err := New("key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	assertEqual(t, "model", defaultModel, p.model)
	assertEqual(t, "language", defaultLanguage, p.language)
	assertEqual(t, "endpoint", deepgramEndpoint, p.endpoint)
}

// ---- helpers ----

func assertEqual(t *testing.T, label, want, got string) {
	t.Helper()
	if want != got {
		t.Errorf("%s: want %q, got %q", label, want, got)
	}
}

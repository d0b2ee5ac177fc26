// Package google provides an STT provider backed by Google Cloud
// Speech-to-Text v2, using synchronous Recognize for complete recordings of
// up to one minute.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv2"
	"cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"github.com/MrWong99/micscribe/pkg/provider/stt"
)

const (
	defaultLanguage = "en-US"
	defaultModel    = "long"
	defaultRegion   = "global"
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithAPIKey authenticates with an API key instead of application default
// credentials.
func WithAPIKey(key string) Option {
	return func(p *Provider) {
		p.clientOpts = append(p.clientOpts, option.WithAPIKey(key))
	}
}

// WithCredentialsJSON authenticates with a service-account key.
func WithCredentialsJSON(data []byte) Option {
	return func(p *Provider) {
		p.clientOpts = append(p.clientOpts, option.WithCredentialsJSON(data))
	}
}

// WithQuotaProject bills requests to the given project.
func WithQuotaProject(project string) Option {
	return func(p *Provider) {
		p.clientOpts = append(p.clientOpts, option.WithQuotaProject(project))
	}
}

// WithRegion selects a regional endpoint (e.g., "europe-west4"). Defaults to
// "global".
func WithRegion(region string) Option {
	return func(p *Provider) {
		p.region = region
	}
}

// WithModel selects the recognition model (e.g., "long", "short", "chirp_2").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the default BCP-47 language code. Defaults to "en-US".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithClientOptions appends raw client options, e.g. a custom endpoint.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(p *Provider) {
		p.clientOpts = append(p.clientOpts, opts...)
	}
}

// Provider implements stt.Provider backed by Google Cloud Speech-to-Text v2.
type Provider struct {
	projectID  string
	region     string
	model      string
	language   string
	clientOpts []option.ClientOption
}

// New creates a Provider for the given Google Cloud project.
func New(projectID string, opts ...Option) (*Provider, error) {
	if projectID == "" {
		return nil, errors.New("google: projectID must not be empty")
	}
	p := &Provider{
		projectID: projectID,
		region:    defaultRegion,
		model:     defaultModel,
		language:  defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Recognize sends the recording in a single Recognize call. Client-side
// retries are disabled. A response without any transcript is reported as
// [stt.ErrUnintelligible].
func (p *Provider) Recognize(ctx context.Context, a stt.Audio) (stt.Transcript, error) {
	client, err := speech.NewClient(ctx, p.endpointOptions()...)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("google: create client: %w", err)
	}
	defer client.Close()

	resp, err := client.Recognize(ctx, p.request(a), gax.WithRetry(func() gax.Retryer { return nil }))
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("google: recognize: %w", err)
	}
	return stt.Finalize("google", transcriptFrom(resp, a))
}

// recognizer returns the resource name of the default recognizer.
func (p *Provider) recognizer() string {
	return fmt.Sprintf("projects/%s/locations/%s/recognizers/_", p.projectID, p.region)
}

// endpointOptions returns the client options including the regional
// endpoint when a non-global region is configured.
func (p *Provider) endpointOptions() []option.ClientOption {
	opts := append([]option.ClientOption(nil), p.clientOpts...)
	if p.region != "" && p.region != defaultRegion {
		opts = append([]option.ClientOption{option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:443", p.region))}, opts...)
	}
	return opts
}

// request builds the RecognizeRequest for raw LINEAR16 audio.
func (p *Provider) request(a stt.Audio) *speechpb.RecognizeRequest {
	lang := a.Language
	if lang == "" {
		lang = p.language
	}
	channels := a.Channels
	if channels <= 0 {
		channels = 1
	}
	return &speechpb.RecognizeRequest{
		Recognizer: p.recognizer(),
		Config: &speechpb.RecognitionConfig{
			DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
				ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
					Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
					SampleRateHertz:   int32(a.SampleRate),
					AudioChannelCount: int32(channels),
				},
			},
			Features: &speechpb.RecognitionFeatures{
				EnableAutomaticPunctuation: true,
				EnableWordConfidence:       true,
			},
			LanguageCodes: strings.Split(lang, ","),
			Model:         p.model,
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: a.PCM},
	}
}

// transcriptFrom joins the top alternative of every result.
func transcriptFrom(resp *speechpb.RecognizeResponse, a stt.Audio) stt.Transcript {
	var (
		parts []string
		words []stt.WordDetail
		conf  float64
		lang  string
	)
	for _, res := range resp.GetResults() {
		alts := res.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		alt := alts[0]
		text := strings.TrimSpace(alt.GetTranscript())
		if text == "" {
			continue
		}
		parts = append(parts, text)
		conf += float64(alt.GetConfidence())
		if lang == "" {
			lang = res.GetLanguageCode()
		}
		for _, w := range alt.GetWords() {
			words = append(words, stt.WordDetail{
				Word:       w.GetWord(),
				Start:      w.GetStartOffset().AsDuration(),
				End:        w.GetEndOffset().AsDuration(),
				Confidence: float64(w.GetConfidence()),
			})
		}
	}
	t := stt.Transcript{Text: strings.Join(parts, " "), Words: words, Language: lang}
	if len(parts) > 0 {
		t.Confidence = conf / float64(len(parts))
	}
	if d := resp.GetMetadata().GetTotalBilledDuration(); d != nil {
		t.Duration = d.AsDuration()
	} else if a.SampleRate > 0 {
		t.Duration = time.Duration(len(a.PCM)/2) * time.Second / time.Duration(a.SampleRate)
	}
	return t
}

package speaker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"
)

// Provider is the TTS boundary the SpeakerEngine speaks through. Kept as a
// tagged variant selected by a factory rather than a class hierarchy.
type Provider interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Available(ctx context.Context) bool
}

// NewProvider selects a Provider by name ("elevenlabs" or "deepgram").
// Unknown names fall back to elevenlabs, matching the config default.
func NewProvider(name, baseURL, apiKey, voiceID, modelID string, timeout time.Duration) Provider {
	switch name {
	case "deepgram":
		return newDeepgramProvider(apiKey, modelID)
	default:
		return newElevenLabsProvider(baseURL, apiKey, voiceID, modelID, timeout)
	}
}

// elevenLabsProvider speaks ElevenLabs' text-to-speech HTTP contract.
type elevenLabsProvider struct {
	baseURL string
	apiKey  string
	voiceID string
	modelID string
	client  *http.Client
}

func newElevenLabsProvider(baseURL, apiKey, voiceID, modelID string, timeout time.Duration) *elevenLabsProvider {
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io"
	}
	if modelID == "" {
		modelID = "eleven_flash_v2_5"
	}
	return &elevenLabsProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: modelID,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *elevenLabsProvider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if p.apiKey == "" || p.voiceID == "" {
		return nil, fmt.Errorf("elevenlabs: api key or voice id missing")
	}

	u := p.baseURL + "/v1/text-to-speech/" + p.voiceID
	q := url.Values{}
	q.Set("output_format", "pcm_16000")

	body, err := json.Marshal(map[string]string{
		"text":     text,
		"model_id": p.modelID,
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("elevenlabs: status=%d", resp.StatusCode)
	}
	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read body: %w", err)
	}
	return pcm, nil
}

func (p *elevenLabsProvider) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/user", nil)
	if err != nil {
		return false
	}
	req.Header.Set("xi-api-key", p.apiKey)
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// deepgramProvider synthesizes over Deepgram's speak websocket.
type deepgramProvider struct {
	apiKey     string
	model      string
	sampleRate int
	encoding   string
}

func newDeepgramProvider(apiKey, model string) *deepgramProvider {
	if model == "" {
		model = "aura-2-thalia-en"
	}
	return &deepgramProvider{apiKey: apiKey, model: model, sampleRate: 16000, encoding: "linear16"}
}

func (d *deepgramProvider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if d.apiKey == "" {
		return nil, fmt.Errorf("deepgram: api key missing")
	}
	if text == "" {
		return nil, nil
	}

	options := &clientinterfaces.WSSpeakOptions{
		Model:      d.model,
		Encoding:   d.encoding,
		SampleRate: d.sampleRate,
	}

	var out []byte
	cb := &deepgramSpeakCallback{onBinary: func(data []byte) error {
		out = append(out, data...)
		return nil
	}}

	dg, err := speak.NewWSUsingCallback(ctx, d.apiKey, &clientinterfaces.ClientOptions{}, options, cb)
	if err != nil {
		return nil, fmt.Errorf("deepgram: create ws client: %w", err)
	}
	defer dg.Stop()

	if ok := dg.Connect(); !ok {
		return nil, fmt.Errorf("deepgram: connect failed")
	}
	if err := dg.SpeakWithText(text); err != nil {
		return nil, fmt.Errorf("deepgram: speak text: %w", err)
	}
	if err := dg.Flush(); err != nil {
		return nil, fmt.Errorf("deepgram: flush: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(200 * time.Millisecond):
	}
	return out, nil
}

func (d *deepgramProvider) Available(ctx context.Context) bool {
	return d.apiKey != ""
}

type deepgramSpeakCallback struct{ onBinary func([]byte) error }

func (s *deepgramSpeakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (s *deepgramSpeakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (s *deepgramSpeakCallback) Flush(*msginterfaces.FlushedResponse) error     { return nil }
func (s *deepgramSpeakCallback) Clear(*msginterfaces.ClearedResponse) error     { return nil }
func (s *deepgramSpeakCallback) Close(*msginterfaces.CloseResponse) error       { return nil }
func (s *deepgramSpeakCallback) Warning(*msginterfaces.WarningResponse) error   { return nil }
func (s *deepgramSpeakCallback) Error(*msginterfaces.ErrorResponse) error       { return nil }
func (s *deepgramSpeakCallback) UnhandledEvent([]byte) error                    { return nil }
func (s *deepgramSpeakCallback) Binary(byMsg []byte) error {
	if s.onBinary != nil {
		return s.onBinary(byMsg)
	}
	return nil
}

package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

// sttHealthCheckInterval is the re-probe interval while STT is unavailable,
// the same interval the LLM summarizer uses.
const sttHealthCheckInterval = 60 * time.Second

type sttTranscriptionResponse struct {
	Text string `json:"text"`
}

// STTClient speaks a multipart WAV upload, JSON `{text}` response contract,
// with availability probed at start and periodically while unavailable.
type STTClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client

	mu              sync.Mutex
	available       bool
	lastHealthCheck time.Time
}

// NewSTTClient constructs an STT client against an OpenAI-Whisper-shaped
// transcription endpoint.
func NewSTTClient(baseURL, apiKey, model string, timeout time.Duration) *STTClient {
	return &STTClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Start probes availability once at startup.
func (s *STTClient) Start(ctx context.Context) {
	s.setAvailable(s.checkHealth(ctx))
}

// IsAvailable reports the last known availability.
func (s *STTClient) IsAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// Transcribe wraps pcm in a WAV container and posts it for transcription.
// Returns "", false on any network/decode/timeout error, per §6.5.
func (s *STTClient) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, bool) {
	s.maybeRecheckHealth(ctx)
	if s.apiKey == "" {
		return "", false
	}

	wav := wrapPCM16AsWAV(pcm, sampleRate)

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", false
	}
	if _, err := part.Write(wav); err != nil {
		return "", false
	}
	if err := w.WriteField("model", s.model); err != nil {
		return "", false
	}
	if err := w.Close(); err != nil {
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/audio/transcriptions", body)
	if err != nil {
		return "", false
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.setAvailable(false)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.setAvailable(false)
		return "", false
	}

	var out sttTranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false
	}
	if out.Text == "" {
		return "", false
	}
	return out.Text, true
}

func (s *STTClient) maybeRecheckHealth(ctx context.Context) {
	s.mu.Lock()
	if s.available || time.Since(s.lastHealthCheck) < sttHealthCheckInterval {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.setAvailable(s.checkHealth(ctx))
}

func (s *STTClient) checkHealth(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (s *STTClient) setAvailable(v bool) {
	s.mu.Lock()
	s.available = v
	s.lastHealthCheck = time.Now()
	s.mu.Unlock()
}

// wrapPCM16AsWAV mirrors the speaker package's WAV wrapper; duplicated here
// in miniature since the two packages have no shared dependency and the
// format is a few lines of binary.Write calls, not worth a new package.
func wrapPCM16AsWAV(pcm []byte, sampleRate int) []byte {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	writeUint32(buf, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	writeUint32(buf, 16)
	writeUint16(buf, 1)
	writeUint16(buf, uint16(numChannels))
	writeUint32(buf, uint32(sampleRate))
	writeUint32(buf, uint32(byteRate))
	writeUint16(buf, uint16(blockAlign))
	writeUint16(buf, uint16(bitsPerSample))
	buf.WriteString("data")
	writeUint32(buf, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

func writeUint32(w io.Writer, v uint32) {
	b := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	w.Write(b)
}

func writeUint16(w io.Writer, v uint16) {
	b := []byte{byte(v), byte(v >> 8)}
	w.Write(b)
}

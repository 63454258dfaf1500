package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/echohq/echo/internal/events"
)

const (
	summarizationPrompt = "Summarize this AI coding assistant message in one short sentence " +
		"(under 20 words) suitable for text-to-speech narration. " +
		"Focus on what was done or decided, not how.\n\nMessage:\n%s\n\nSummary:"

	maxTruncationLength = 150
	truncatedLength      = 140

	llmHealthCheckInterval = 60 * time.Second
)

type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]any         `json:"options"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

// LLMSummarizer summarizes agent_message text via a local Ollama-shaped
// LLM endpoint, falling back to truncation when unavailable. Like the STT
// client, it probes at Start and re-probes at most every 60s while
// unavailable; it has no Stop.
type LLMSummarizer struct {
	baseURL string
	model   string
	client  *http.Client

	mu              sync.Mutex
	available       bool
	lastHealthCheck time.Time
}

// NewLLMSummarizer constructs an LLMSummarizer targeting baseURL/model.
func NewLLMSummarizer(baseURL, model string, timeout time.Duration) *LLMSummarizer {
	return &LLMSummarizer{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Start runs an initial health check against the LLM endpoint.
func (l *LLMSummarizer) Start(ctx context.Context) {
	l.checkHealth(ctx)
}

// IsAvailable reports whether the LLM endpoint answered healthy at last probe.
func (l *LLMSummarizer) IsAvailable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available
}

// Summarize produces a Narration for an agent_message RawEvent, trying the
// LLM first and falling back to truncation on any failure.
func (l *LLMSummarizer) Summarize(ctx context.Context, e events.RawEvent) events.Narration {
	l.maybeRecheckHealth(ctx)

	if l.IsAvailable() {
		summary, err := l.callOllama(ctx, e.Text)
		if err == nil {
			return events.Narration{
				Text:          strings.TrimSpace(summary),
				Priority:      events.PriorityNormal,
				SourceKind:    events.KindAgentMessage,
				SessionID:     e.SessionID,
				SourceEventID: e.ID,
				Method:        events.MethodLLM,
			}
		}
		log.Printf("summarizer: ollama summarization failed, falling back to truncation: %v", err)
	}

	return l.truncate(e)
}

func (l *LLMSummarizer) truncate(e events.RawEvent) events.Narration {
	text := e.Text
	var summary string
	if len(text) <= maxTruncationLength {
		summary = text
	} else {
		summary = strings.TrimRight(text[:truncatedLength], " \t\n") + "…"
	}
	return events.Narration{
		Text:          summary,
		Priority:      events.PriorityNormal,
		SourceKind:    events.KindAgentMessage,
		SessionID:     e.SessionID,
		SourceEventID: e.ID,
		Method:        events.MethodTruncation,
	}
}

func (l *LLMSummarizer) callOllama(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(summarizationPrompt, text)
	body := ollamaGenerateRequest{
		Model:  l.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"num_predict": 50,
			"temperature": 0.3,
		},
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/api/generate", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama: status=%d body=%s", resp.StatusCode, string(b))
	}
	var gr ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", err
	}
	return gr.Response, nil
}

func (l *LLMSummarizer) maybeRecheckHealth(ctx context.Context) {
	l.mu.Lock()
	available := l.available
	elapsed := time.Since(l.lastHealthCheck)
	l.mu.Unlock()
	if !available && elapsed >= llmHealthCheckInterval {
		l.checkHealth(ctx)
	}
}

func (l *LLMSummarizer) checkHealth(ctx context.Context) {
	l.mu.Lock()
	l.lastHealthCheck = time.Now()
	l.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/api/tags", nil)
	if err != nil {
		l.setAvailable(false)
		return
	}
	resp, err := l.client.Do(req)
	if err != nil {
		log.Printf("summarizer: ollama not available at %s: %v", l.baseURL, err)
		l.setAvailable(false)
		return
	}
	defer resp.Body.Close()
	ok := resp.StatusCode == http.StatusOK
	if ok {
		log.Printf("summarizer: ollama available at %s (model=%s)", l.baseURL, l.model)
	} else {
		log.Printf("summarizer: ollama returned status %d, using truncation fallback", resp.StatusCode)
	}
	l.setAvailable(ok)
}

func (l *LLMSummarizer) setAvailable(v bool) {
	l.mu.Lock()
	l.available = v
	l.mu.Unlock()
}

package speaker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestElevenLabsProviderSynthesizesFromTextToSpeechEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice123" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != "pcm_16000" {
			t.Fatalf("expected output_format=pcm_16000, got %q", r.URL.Query().Get("output_format"))
		}
		if r.Header.Get("xi-api-key") != "key1" {
			t.Fatalf("expected xi-api-key header")
		}
		w.Write([]byte{1, 2, 3, 4})
	}))
	defer srv.Close()

	p := newElevenLabsProvider(srv.URL, "key1", "voice123", "", 2*time.Second)
	pcm, err := p.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pcm) != 4 {
		t.Fatalf("expected 4 bytes of pcm, got %d", len(pcm))
	}
}

func TestElevenLabsProviderMissingCredentials(t *testing.T) {
	p := newElevenLabsProvider("https://example.invalid", "", "", "", time.Second)
	if _, err := p.Synthesize(context.Background(), "hi"); err == nil {
		t.Fatal("expected error when api key/voice id missing")
	}
}

func TestElevenLabsProviderAvailableChecksUserEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/user" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newElevenLabsProvider(srv.URL, "key1", "voice123", "", time.Second)
	if !p.Available(context.Background()) {
		t.Fatal("expected provider to be available")
	}
}

func TestElevenLabsProviderUnavailableOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := newElevenLabsProvider(srv.URL, "badkey", "voice123", "", time.Second)
	if p.Available(context.Background()) {
		t.Fatal("expected provider to be unavailable on 401")
	}
}

func TestNewProviderDefaultsToElevenLabs(t *testing.T) {
	p := NewProvider("", "https://example.invalid", "k", "v", "", time.Second)
	if _, ok := p.(*elevenLabsProvider); !ok {
		t.Fatalf("expected elevenlabs provider by default, got %T", p)
	}
}

func TestNewProviderSelectsDeepgram(t *testing.T) {
	p := NewProvider("deepgram", "", "k", "", "", time.Second)
	if _, ok := p.(*deepgramProvider); !ok {
		t.Fatalf("expected deepgram provider, got %T", p)
	}
}

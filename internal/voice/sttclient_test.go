package voice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSTTClientTranscribeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/models" {
			// Transcribe re-probes health first while the client is unavailable.
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if r.FormValue("model") != "whisper-1" {
			t.Fatalf("expected model field, got %q", r.FormValue("model"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"option one"}`))
	}))
	defer srv.Close()

	c := NewSTTClient(srv.URL, "key1", "whisper-1", time.Second)
	text, ok := c.Transcribe(context.Background(), make([]byte, 640), 16000)
	if !ok {
		t.Fatal("expected successful transcription")
	}
	if text != "option one" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestSTTClientMissingAPIKeyReturnsFalse(t *testing.T) {
	c := NewSTTClient("https://example.invalid", "", "whisper-1", time.Second)
	if _, ok := c.Transcribe(context.Background(), make([]byte, 640), 16000); ok {
		t.Fatal("expected no transcription without an api key")
	}
}

func TestSTTClientNon2xxReturnsFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewSTTClient(srv.URL, "key1", "whisper-1", time.Second)
	if _, ok := c.Transcribe(context.Background(), make([]byte, 640), 16000); ok {
		t.Fatal("expected failure to surface as ok=false")
	}
}

func TestSTTClientCheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewSTTClient(srv.URL, "key1", "whisper-1", time.Second)
	c.Start(context.Background())
	if !c.IsAvailable() {
		t.Fatal("expected available after successful health check")
	}
}

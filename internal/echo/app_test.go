package echo

import (
	"context"
	"testing"
	"time"

	"github.com/echohq/echo/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		HTTPAddress:         ":0",
		TTSProvider:         "elevenlabs",
		TTSBaseURL:          "https://example.invalid",
		TTSTimeout:          time.Second,
		LLMBaseURL:          "https://example.invalid",
		LLMTimeout:          time.Second,
		STTBaseURL:          "https://example.invalid",
		STTTimeout:          time.Second,
		ListenTimeout:       50 * time.Millisecond,
		SilenceDuration:     200 * time.Millisecond,
		MaxRecordDuration:   time.Second,
		ConfidenceThreshold: 0.6,
		AlertRepeatInterval: time.Minute,
		AlertMaxRepeats:     3,
		AudioSampleRate:     16000,
		BacklogThreshold:    3,
		ClaudeProjectsPath:  t.TempDir(),
	}
}

func TestAppStartStopDoesNotHang(t *testing.T) {
	app := New(testConfig(t))
	app.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	app.Stop()
}

func TestAppWiresSpeakerAsVoiceNarrator(t *testing.T) {
	app := New(testConfig(t))
	if app.Voice == nil || app.Speaker == nil {
		t.Fatal("expected both engines to be constructed")
	}
}

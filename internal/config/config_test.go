package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	os.Setenv("ECHO_HTTP_ADDRESS", "")
	os.Setenv("ECHO_TTS_PROVIDER", "")
	os.Setenv("ECHO_ALERT_MAX_REPEATS", "")

	cfg := Load()

	if cfg.HTTPAddress == "" {
		t.Fatalf("expected default http address")
	}
	if cfg.TTSProvider != "elevenlabs" {
		t.Fatalf("expected default tts provider elevenlabs, got %q", cfg.TTSProvider)
	}
	if cfg.AlertMaxRepeats != 5 {
		t.Fatalf("expected default alert max repeats 5, got %d", cfg.AlertMaxRepeats)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("ECHO_ALERT_MAX_REPEATS", "2")
	defer os.Unsetenv("ECHO_ALERT_MAX_REPEATS")

	cfg := Load()

	if cfg.AlertMaxRepeats != 2 {
		t.Fatalf("expected overridden alert max repeats 2, got %d", cfg.AlertMaxRepeats)
	}
}

func TestGetenvFloatInvalidFallsBackToDefault(t *testing.T) {
	os.Setenv("ECHO_CONFIDENCE_THRESHOLD", "not-a-number")
	defer os.Unsetenv("ECHO_CONFIDENCE_THRESHOLD")

	cfg := Load()

	if cfg.ConfidenceThreshold != 0.6 {
		t.Fatalf("expected fallback confidence threshold 0.6, got %v", cfg.ConfidenceThreshold)
	}
}

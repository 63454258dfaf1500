package speaker

import (
	"testing"

	"github.com/echohq/echo/internal/events"
)

func TestGenerateAlertToneDeterministic(t *testing.T) {
	a := generateAlertTone(events.BlockQuestion, true, 16000)
	b := generateAlertTone(events.BlockQuestion, true, 16000)
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("byte %d differs: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestGenerateAlertToneUnknownReasonFallsBackToDefault(t *testing.T) {
	got := generateAlertTone("nonsense", true, 16000)
	want := generateAlertTone("", false, 16000)
	if len(got) != len(want) {
		t.Fatalf("expected unknown reason to match default-length tone")
	}
}

func TestAlertToneCacheHasFourEntries(t *testing.T) {
	c := newAlertToneCache(16000)
	if len(c.tones) != 3 {
		t.Fatalf("expected 3 named reasons cached, got %d", len(c.tones))
	}
	if c.get(events.BlockPermissionPrompt, true) == nil {
		t.Fatal("expected permission_prompt tone present")
	}
	if c.get("", false) == nil {
		t.Fatal("expected default tone present")
	}
}

func TestFloat32ToPCM16ClampsRange(t *testing.T) {
	out := float32ToPCM16([]float32{2.0, -2.0, 0})
	if len(out) != 6 {
		t.Fatalf("expected 6 bytes for 3 samples, got %d", len(out))
	}
	if out[0] != 0xFF || out[1] != 0x7F {
		t.Fatalf("expected 2.0 clamped to 32767, got bytes %#x %#x", out[0], out[1])
	}
	if out[2] != 0x00 || out[3] != 0x80 {
		t.Fatalf("expected -2.0 clamped to -32768, got bytes %#x %#x", out[2], out[3])
	}
}

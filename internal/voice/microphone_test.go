package voice

import (
	"context"
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func sineFrame(freqHz float64, amplitude float64, sampleRate, numSamples int) []byte {
	out := make([]byte, numSamples*2)
	for i := 0; i < numSamples; i++ {
		t := float64(i) / float64(sampleRate)
		v := int16(amplitude * 32767 * math.Sin(2*math.Pi*freqHz*t))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}

func silenceFrame(numSamples int) []byte {
	return make([]byte, numSamples*2)
}

func TestRMSSilenceIsZero(t *testing.T) {
	frame := silenceFrame(480)
	if got := rms(frame); got != 0 {
		t.Fatalf("expected 0 rms for silence, got %v", got)
	}
}

func TestRMSLoudToneExceedsThreshold(t *testing.T) {
	frame := sineFrame(440, 0.5, 16000, 480)
	if got := rms(frame); got <= 0.01 {
		t.Fatalf("expected loud tone to exceed default threshold, got %v", got)
	}
}

func TestFrameSizeBytesMatches30ms(t *testing.T) {
	// 16000 * 0.03 = 480 samples, 2 bytes per sample
	if got := frameSizeBytes(16000); got != 960 {
		t.Fatalf("expected 960 bytes for a 30ms frame at 16kHz, got %d", got)
	}
}

func TestMicrophoneUnavailableReturnsNilWithoutSubprocess(t *testing.T) {
	m := &Microphone{available: false}
	if m.IsAvailable() {
		t.Fatal("expected unavailable microphone")
	}
	if pcm := m.CaptureUntilSilence(context.Background(), time.Second, time.Second, 0.01, time.Second, 16000); pcm != nil {
		t.Fatalf("expected nil capture from an unavailable microphone, got %d bytes", len(pcm))
	}
}

package speaker

import (
	"math"

	"github.com/echohq/echo/internal/events"
)

// toneSegment is one (frequency, duration) slice of an alert tone.
// frequency == 0 means silence.
type toneSegment struct {
	freqHz   float64
	duration float64 // seconds
}

const fadeDuration = 0.005 // 5ms linear fade-in/out on non-silent segments

var toneSpecs = map[events.BlockReason][]toneSegment{
	events.BlockPermissionPrompt: {
		{880, 0.12}, {0, 0.04}, {1320, 0.12}, {0, 0.04}, {880, 0.12}, {0, 0.04}, {1320, 0.12},
	},
	events.BlockQuestion: {
		{660, 0.15}, {0, 0.05}, {880, 0.15},
	},
	events.BlockIdlePrompt: {
		{440, 0.20}, {0, 0.05}, {550, 0.15},
	},
}

// defaultToneSpec is the "none" variant: any unknown or absent block reason
// falls back to it.
var defaultToneSpec = []toneSegment{
	{880, 0.15}, {0, 0.05}, {1320, 0.15},
}

// generateAlertTone renders the tone for a block reason as int16 PCM at
// sampleRate. Deterministic for a given (blockReason, sampleRate).
func generateAlertTone(blockReason events.BlockReason, hasBlockReason bool, sampleRate int) []byte {
	spec, ok := toneSpecs[blockReason]
	if !hasBlockReason || !ok {
		spec = defaultToneSpec
	}

	var samples []float32
	for _, seg := range spec {
		samples = append(samples, generateSegment(seg, sampleRate)...)
	}
	return float32ToPCM16(samples)
}

func generateSegment(seg toneSegment, sampleRate int) []float32 {
	n := int(seg.duration * float64(sampleRate))
	out := make([]float32, n)
	if seg.freqHz == 0 {
		return out
	}
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		out[i] = float32(math.Sin(2 * math.Pi * seg.freqHz * t))
	}
	applyFade(out, int(fadeDuration*float64(sampleRate)))
	return out
}

func applyFade(samples []float32, fadeSamples int) {
	if fadeSamples <= 0 || len(samples) < 2*fadeSamples {
		return
	}
	for i := 0; i < fadeSamples; i++ {
		gain := float32(i) / float32(fadeSamples)
		samples[i] *= gain
		samples[len(samples)-1-i] *= gain
	}
}

func float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s * 32767
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		iv := int16(v)
		out[2*i] = byte(iv)
		out[2*i+1] = byte(iv >> 8)
	}
	return out
}

// alertToneCache is the four-entry cache, generated once at startup.
type alertToneCache struct {
	sampleRate int
	tones      map[events.BlockReason][]byte
	none       []byte
}

func newAlertToneCache(sampleRate int) *alertToneCache {
	c := &alertToneCache{sampleRate: sampleRate, tones: make(map[events.BlockReason][]byte)}
	for reason := range toneSpecs {
		c.tones[reason] = generateAlertTone(reason, true, sampleRate)
	}
	c.none = generateAlertTone("", false, sampleRate)
	return c
}

func (c *alertToneCache) get(blockReason events.BlockReason, hasBlockReason bool) []byte {
	if !hasBlockReason {
		return c.none
	}
	if pcm, ok := c.tones[blockReason]; ok {
		return pcm
	}
	return c.none
}

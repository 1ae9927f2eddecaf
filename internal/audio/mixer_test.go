package audio

import (
	"math"
	"testing"
)

func constFrame(n int, v int16) Frame {
	f := Frame{Samples: make([]int16, n)}
	for i := range f.Samples {
		f.Samples[i] = v
	}
	return f
}

func TestMixerSumsTwoSources(t *testing.T) {
	m := NewMixer(4, 8)
	if err := m.AddSource("primary", 1.0); err != nil {
		t.Fatalf("AddSource() error = %v", err)
	}
	if err := m.AddSource("secondary", 0.5); err != nil {
		t.Fatalf("AddSource() error = %v", err)
	}

	_ = m.Push("primary", constFrame(4, 1000))
	_ = m.Push("secondary", constFrame(4, 1000))

	out, ok := m.PullMixed()
	if !ok {
		t.Fatalf("PullMixed() should produce a frame")
	}
	for i, s := range out.Samples {
		if s != 1500 {
			t.Fatalf("sample[%d] = %d, want 1500", i, s)
		}
	}
}

func TestMixerSilenceFillForStalledSource(t *testing.T) {
	m := NewMixer(4, 8)
	_ = m.AddSource("primary", 1.0)
	_ = m.AddSource("ambient", 0.3)

	// Only primary has a frame ready; ambient must not stall or corrupt it.
	_ = m.Push("primary", constFrame(4, 2000))
	out, ok := m.PullMixed()
	if !ok {
		t.Fatalf("PullMixed() should not wait for the stalled source")
	}
	for i, s := range out.Samples {
		if s != 2000 {
			t.Fatalf("sample[%d] = %d, want 2000", i, s)
		}
	}

	// Nothing ready anywhere: no frame this tick.
	if _, ok := m.PullMixed(); ok {
		t.Fatalf("PullMixed() with no frames ready should report none")
	}
}

func TestMixerOutputNeverExceedsInt16Range(t *testing.T) {
	m := NewMixer(8, 8)
	roles := []string{"a", "b", "c", "d"}
	for _, r := range roles {
		if err := m.AddSource(r, 1.0); err != nil {
			t.Fatalf("AddSource(%q) error = %v", r, err)
		}
		_ = m.Push(r, constFrame(8, math.MaxInt16))
	}

	out, ok := m.PullMixed()
	if !ok {
		t.Fatalf("PullMixed() should produce a frame")
	}
	for i, s := range out.Samples {
		if s < 0 || int32(s) > math.MaxInt16 {
			t.Fatalf("sample[%d] = %d outside representable range", i, s)
		}
	}
	if m.ClippedSamples() == 0 {
		t.Fatalf("four full-scale sources should engage the soft clipper")
	}

	// Negative full-scale must bound symmetrically.
	for _, r := range roles {
		_ = m.Push(r, constFrame(8, math.MinInt16+1))
	}
	out, _ = m.PullMixed()
	for i, s := range out.Samples {
		if s > 0 || int32(s) < math.MinInt16 {
			t.Fatalf("negative sample[%d] = %d outside representable range", i, s)
		}
	}
}

func TestMixerSingleSourceBelowKneeIsBitExact(t *testing.T) {
	m := NewMixer(4, 8)
	_ = m.AddSource("primary", 1.0)
	_ = m.Push("primary", constFrame(4, 12345))

	out, _ := m.PullMixed()
	for i, s := range out.Samples {
		if s != 12345 {
			t.Fatalf("sample[%d] = %d, want untouched 12345", i, s)
		}
	}
	if m.ClippedSamples() != 0 {
		t.Fatalf("in-range audio should not count as clipped")
	}
}

func TestMixerGainChangeAppliesAtTickBoundary(t *testing.T) {
	m := NewMixer(4, 8)
	_ = m.AddSource("primary", 1.0)
	_ = m.Push("primary", constFrame(4, 1000))
	_ = m.Push("primary", constFrame(4, 1000))

	if err := m.SetGain("primary", 0.5); err != nil {
		t.Fatalf("SetGain() error = %v", err)
	}

	// The staged gain applies to the whole next frame, not mid-frame.
	out, _ := m.PullMixed()
	for i, s := range out.Samples {
		if s != 500 {
			t.Fatalf("tick1 sample[%d] = %d, want 500", i, s)
		}
	}
	out, _ = m.PullMixed()
	for i, s := range out.Samples {
		if s != 500 {
			t.Fatalf("tick2 sample[%d] = %d, want 500", i, s)
		}
	}
}

func TestMixerRemoveSourceDiscardsBufferedFrames(t *testing.T) {
	m := NewMixer(4, 8)
	_ = m.AddSource("primary", 1.0)
	_ = m.AddSource("leaver", 1.0)
	_ = m.Push("leaver", constFrame(4, 9000))
	_ = m.Push("primary", constFrame(4, 100))

	m.RemoveSource("leaver")

	out, ok := m.PullMixed()
	if !ok {
		t.Fatalf("PullMixed() should produce a frame")
	}
	for i, s := range out.Samples {
		if s != 100 {
			t.Fatalf("sample[%d] = %d, want 100 (removed source must not be mixed)", i, s)
		}
	}
	if err := m.Push("leaver", constFrame(4, 1)); err == nil {
		t.Fatalf("Push() after RemoveSource should fail")
	}
}

func TestMixerPushUnknownSource(t *testing.T) {
	m := NewMixer(4, 8)
	if err := m.Push("ghost", constFrame(4, 1)); err == nil {
		t.Fatalf("Push() to unregistered source should fail")
	}
	if err := m.SetGain("ghost", 0.5); err == nil {
		t.Fatalf("SetGain() on unregistered source should fail")
	}
}

func TestMixerQueueOverflowDropsOldest(t *testing.T) {
	m := NewMixer(2, 2)
	_ = m.AddSource("primary", 1.0)
	_ = m.Push("primary", constFrame(2, 1))
	_ = m.Push("primary", constFrame(2, 2))
	_ = m.Push("primary", constFrame(2, 3))

	out, _ := m.PullMixed()
	if out.Samples[0] != 2 {
		t.Fatalf("oldest frame should have been dropped, got %d", out.Samples[0])
	}
}

func TestSamplesPerTick(t *testing.T) {
	if n := SamplesPerTick(16000, 20e6); n != 320 {
		t.Fatalf("SamplesPerTick(16000, 20ms) = %d, want 320", n)
	}
}

func TestFramePCMRoundTrip(t *testing.T) {
	f := Frame{Samples: []int16{0, 1, -1, math.MaxInt16, math.MinInt16}}
	got := FromPCM16LE(f.PCM16LE())
	if len(got.Samples) != len(f.Samples) {
		t.Fatalf("length = %d, want %d", len(got.Samples), len(f.Samples))
	}
	for i := range f.Samples {
		if got.Samples[i] != f.Samples[i] {
			t.Fatalf("sample[%d] = %d, want %d", i, got.Samples[i], f.Samples[i])
		}
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	b, err := EncodeWAV([]Frame{constFrame(4, 7)}, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}
	if len(b) != 44+8 {
		t.Fatalf("wav length = %d, want 52", len(b))
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		t.Fatalf("bad wav header: % x", b[:12])
	}
}

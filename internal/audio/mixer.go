package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

var ErrUnknownSource = errors.New("unknown mixer source")

// softClipKnee is the absolute sample value above which the tanh-shaped
// compressor engages. Below the knee the sum passes through untouched so
// single-source audio is bit-exact.
const softClipKnee = 24576 // 0.75 * full scale

type source struct {
	gain        float64
	pendingGain float64
	queue       []Frame
	removed     bool
}

// Mixer combines per-role frame queues into one output stream. Each call to
// PullMixed is one output tick: every source with a frame ready contributes
// it at its current gain, sources with nothing ready contribute silence, and
// the sample-wise sum is soft-clipped into int16 range.
type Mixer struct {
	mu           sync.Mutex
	sources      map[string]*source
	frameSamples int
	queueLen     int
	clipped      uint64
	onClip       func(n int)
}

func NewMixer(frameSamples, queueLen int) *Mixer {
	if frameSamples <= 0 {
		frameSamples = 320 // 20ms at 16kHz
	}
	if queueLen <= 0 {
		queueLen = 64
	}
	return &Mixer{
		sources:      make(map[string]*source),
		frameSamples: frameSamples,
		queueLen:     queueLen,
	}
}

// SetClipHook installs an observer invoked with the number of samples
// clipped on a tick. Used to feed the overflow counter metric.
func (m *Mixer) SetClipHook(hook func(n int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClip = hook
}

func (m *Mixer) AddSource(role string, gain float64) error {
	if role == "" {
		return errors.New("mixer source role must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sources[role]; ok && !s.removed {
		return fmt.Errorf("mixer source %q already registered", role)
	}
	m.sources[role] = &source{
		gain:        clampGain(gain),
		pendingGain: clampGain(gain),
	}
	return nil
}

// RemoveSource unregisters a role. Frames still buffered for the role are
// discarded, never mixed.
func (m *Mixer) RemoveSource(role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[role]
	if !ok {
		return
	}
	s.removed = true
	s.queue = nil
	delete(m.sources, role)
}

// SetGain stages a new gain for the role. It takes effect on the next tick
// boundary so a frame is never split across two gain values.
func (m *Mixer) SetGain(role string, gain float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[role]
	if !ok {
		return ErrUnknownSource
	}
	s.pendingGain = clampGain(gain)
	return nil
}

// Push enqueues a frame for the role. When the per-source queue is full the
// oldest frame is dropped so a slow consumer cannot grow memory unbounded.
func (m *Mixer) Push(role string, f Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[role]
	if !ok {
		return ErrUnknownSource
	}
	if len(s.queue) >= m.queueLen {
		s.queue = s.queue[1:]
	}
	s.queue = append(s.queue, f)
	return nil
}

// SourceCount reports registered sources.
func (m *Mixer) SourceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sources)
}

// ClippedSamples reports the running count of soft-clipped samples.
func (m *Mixer) ClippedSamples() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clipped
}

// PullMixed produces the next output frame. The second return is false when
// no source had a frame ready, in which case the caller may emit silence or
// skip the tick.
func (m *Mixer) PullMixed() (Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sum := make([]int32, m.frameSamples)
	any := false
	for _, s := range m.sources {
		s.gain = s.pendingGain
		if len(s.queue) == 0 {
			continue
		}
		f := s.queue[0]
		s.queue = s.queue[1:]
		any = true
		n := len(f.Samples)
		if n > m.frameSamples {
			n = m.frameSamples
		}
		for i := 0; i < n; i++ {
			sum[i] += int32(math.Round(float64(f.Samples[i]) * s.gain))
		}
	}
	if !any {
		return Frame{}, false
	}

	out := make([]int16, m.frameSamples)
	clippedNow := 0
	for i, v := range sum {
		s, clipped := softClip(v)
		out[i] = s
		if clipped {
			clippedNow++
		}
	}
	if clippedNow > 0 {
		m.clipped += uint64(clippedNow)
		if m.onClip != nil {
			m.onClip(clippedNow)
		}
	}
	return Frame{Samples: out}, true
}

// softClip compresses over-range sums with a tanh knee instead of letting
// them wrap. Values inside the knee pass through unchanged.
func softClip(v int32) (int16, bool) {
	av := v
	if av < 0 {
		av = -av
	}
	if av <= softClipKnee {
		return int16(v), false
	}
	const headroom = math.MaxInt16 - softClipKnee
	excess := float64(av-softClipKnee) / headroom
	compressed := softClipKnee + headroom*math.Tanh(excess)
	if v < 0 {
		compressed = -compressed
	}
	return int16(math.Round(compressed)), true
}

func clampGain(g float64) float64 {
	if g < 0 {
		return 0
	}
	if g > 1 {
		return 1
	}
	return g
}

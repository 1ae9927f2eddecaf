package speech

import (
	"context"
	"math"
	"sync"

	"github.com/antonajp/ai4joy-sub003/internal/audio"
)

// MockRecognizer is the local fallback when no recognition pipeline is
// wired. It never produces text, but it does compute a real energy score
// from the audio it sees, so the ambient path is exercisable offline.
type MockRecognizer struct{}

func NewMockRecognizer() *MockRecognizer { return &MockRecognizer{} }

func (r *MockRecognizer) StartSession(_ context.Context, _ string) (Session, <-chan Utterance, error) {
	events := make(chan Utterance, 16)
	return &mockSession{events: events}, events, nil
}

type mockSession struct {
	mu       sync.Mutex
	events   chan Utterance
	closed   bool
	frames   int
	peakRMS  float64
}

func (s *mockSession) SendAudio(_ context.Context, f audio.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.frames++
	if rms := frameRMS(f); rms > s.peakRMS {
		s.peakRMS = rms
	}
	return nil
}

func (s *mockSession) Commit(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.frames == 0 {
		return nil
	}
	s.events <- Utterance{
		Text:   "simulated voice input",
		Energy: s.peakRMS,
	}
	s.frames = 0
	s.peakRMS = 0
	return nil
}

func (s *mockSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return nil
}

func frameRMS(f audio.Frame) float64 {
	if len(f.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range f.Samples {
		x := float64(v) / math.MaxInt16
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(f.Samples)))
}

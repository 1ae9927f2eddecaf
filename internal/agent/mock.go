package agent

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/antonajp/ai4joy-sub003/internal/audio"
)

// MockRuntime synthesizes deterministic tones when no external runtime is
// configured. The tone frequency is derived from the input text so repeated
// runs are reproducible end to end.
type MockRuntime struct {
	frameSamples  int
	framesPerTurn int
}

func NewMockRuntime(frameSamples int) *MockRuntime {
	if frameSamples <= 0 {
		frameSamples = 320
	}
	return &MockRuntime{
		frameSamples:  frameSamples,
		framesPerTurn: 25, // half a second of audio at a 20ms tick
	}
}

func (m *MockRuntime) Invoke(ctx context.Context, req InvokeRequest) (<-chan Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	out := make(chan Event, 8)
	go func() {
		defer close(out)

		freq := toneFor(req.InputText, req.Role)
		for i := 0; i < m.framesPerTurn; i++ {
			frame := m.toneFrame(freq, i)
			select {
			case <-ctx.Done():
				return
			case out <- Event{Type: EventAudio, Frame: frame}:
			}
		}
		select {
		case <-ctx.Done():
		case out <- Event{Type: EventEndTurn}:
		}
	}()
	return out, nil
}

func (m *MockRuntime) toneFrame(freq float64, frameIndex int) audio.Frame {
	const amplitude = 8000
	samples := make([]int16, m.frameSamples)
	offset := frameIndex * m.frameSamples
	for i := range samples {
		phase := 2 * math.Pi * freq * float64(offset+i) / 16000
		samples[i] = int16(amplitude * math.Sin(phase))
	}
	return audio.Frame{Samples: samples}
}

func toneFor(text, role string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(role + "|" + text))
	// Spread across 200-1000 Hz, comfortably inside voice band.
	return 200 + float64(h.Sum32()%800)
}

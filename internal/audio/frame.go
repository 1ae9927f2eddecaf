package audio

import "time"

// Frame is one fixed-duration block of PCM16LE mono samples.
type Frame struct {
	Samples []int16
}

// SamplesPerTick returns the frame length for a tick duration at a sample rate.
func SamplesPerTick(sampleRate int, tick time.Duration) int {
	if sampleRate <= 0 || tick <= 0 {
		return 0
	}
	return int(int64(sampleRate) * tick.Nanoseconds() / int64(time.Second))
}

// Silence returns an all-zero frame of n samples.
func Silence(n int) Frame {
	return Frame{Samples: make([]int16, n)}
}

// FromPCM16LE decodes little-endian PCM16 bytes into a frame. A trailing odd
// byte is dropped.
func FromPCM16LE(b []byte) Frame {
	n := len(b) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
	}
	return Frame{Samples: samples}
}

// PCM16LE encodes the frame as little-endian PCM16 bytes.
func (f Frame) PCM16LE() []byte {
	out := make([]byte, 2*len(f.Samples))
	for i, s := range f.Samples {
		out[2*i] = byte(uint16(s))
		out[2*i+1] = byte(uint16(s) >> 8)
	}
	return out
}

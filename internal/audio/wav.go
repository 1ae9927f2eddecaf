package audio

import (
	"bytes"
	"encoding/binary"
	"io"
)

type wavHeader struct {
	RiffTag       [4]byte
	RiffSize      uint32
	WaveTag       [4]byte
	FmtTag        [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataTag       [4]byte
	DataSize      uint32
}

// WriteWAV writes frames as a mono PCM16LE WAV stream.
func WriteWAV(out io.Writer, frames []Frame, sampleRate int) error {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	total := 0
	for _, f := range frames {
		total += len(f.Samples)
	}
	dataSize := uint32(2 * total)

	h := wavHeader{
		RiffTag:       [4]byte{'R', 'I', 'F', 'F'},
		RiffSize:      36 + dataSize,
		WaveTag:       [4]byte{'W', 'A', 'V', 'E'},
		FmtTag:        [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1, // PCM
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * 2),
		BlockAlign:    2,
		BitsPerSample: 16,
		DataTag:       [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}
	if err := binary.Write(out, binary.LittleEndian, h); err != nil {
		return err
	}
	for _, f := range frames {
		if _, err := out.Write(f.PCM16LE()); err != nil {
			return err
		}
	}
	return nil
}

// EncodeWAV renders frames to an in-memory WAV file.
func EncodeWAV(frames []Frame, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteWAV(&buf, frames, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package encoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// WAVHeaderSize is the size of the canonical PCM WAV header written by WriteWAV.
const WAVHeaderSize = 44

var errNotWAV = errors.New("not a PCM WAV stream")

// WriteWAV writes samples as a mono 16-bit PCM WAV file.
func WriteWAV(w io.Writer, samples []int16, sampleRate int) error {
	dataSize := uint32(len(samples) * 2)
	byteRate := uint32(sampleRate * Channels * BitsPerSample / 8)
	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(36 + dataSize),
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16),
		uint16(1), // PCM
		uint16(Channels),
		uint32(sampleRate),
		byteRate,
		uint16(Channels * BitsPerSample / 8),
		uint16(BitsPerSample),
		[4]byte{'d', 'a', 't', 'a'},
		dataSize,
	}
	for _, field := range header {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return fmt.Errorf("write wav header: %w", err)
		}
	}
	if _, err := w.Write(PCM(samples)); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}

// ReadWAV reads a file produced by WriteWAV.
func ReadWAV(r io.Reader) ([]int16, int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	if len(data) < WAVHeaderSize || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, 0, errNotWAV
	}
	if binary.LittleEndian.Uint16(data[20:22]) != 1 || binary.LittleEndian.Uint16(data[34:36]) != BitsPerSample {
		return nil, 0, errNotWAV
	}
	sampleRate := int(binary.LittleEndian.Uint32(data[24:28]))
	return Samples(data[WAVHeaderSize:]), sampleRate, nil
}

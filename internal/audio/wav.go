// Package audio handles microphone capture, the WAV container for
// recorded clips, and the lifecycle of temporary audio files.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hammamikhairi/polyglot/internal/domain"
)

// Recorded clips are written as 16-bit mono PCM.
const (
	BitDepth     = 16
	ChannelCount = 1
	headerSize   = 44
)

// FloatToPCM16 scales samples in [-1, 1] by 32767 and converts them to
// int16. Out-of-range samples are clamped.
func FloatToPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := float64(s) * math.MaxInt16
		switch {
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		out[i] = int16(v)
	}
	return out
}

// EncodeWAV writes a canonical 44-byte RIFF header followed by the
// samples as little-endian 16-bit mono PCM.
func EncodeWAV(w io.Writer, samples []int16, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("audio: invalid sample rate %d", sampleRate)
	}
	dataSize := uint32(len(samples) * 2)
	blockAlign := uint16(ChannelCount * BitDepth / 8)

	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(36 + dataSize),
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16), // fmt chunk size
		uint16(1),  // PCM
		uint16(ChannelCount),
		uint32(sampleRate),
		uint32(sampleRate) * uint32(blockAlign), // byte rate
		blockAlign,
		uint16(BitDepth),
		[4]byte{'d', 'a', 't', 'a'},
		dataSize,
	}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("audio: write wav header: %w", err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("audio: write wav data: %w", err)
	}
	return nil
}

// DecodeWAV reads a 16-bit mono PCM WAV produced by EncodeWAV (or any
// tool writing the same format). Unknown chunks are skipped.
func DecodeWAV(data []byte) (samples []int16, sampleRate int, err error) {
	if len(data) < headerSize {
		return nil, 0, errors.New("audio: wav data too short")
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, errors.New("audio: not a valid WAV file")
	}

	var (
		haveFmt  bool
		channels uint16
		bits     uint16
	)

	// Walk chunks to find "fmt " and "data".
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		end := body + chunkSize
		if end > len(data) {
			end = len(data)
		}

		switch chunkID {
		case "fmt ":
			if end-body < 16 {
				return nil, 0, errors.New("audio: short fmt chunk")
			}
			if format := binary.LittleEndian.Uint16(data[body:]); format != 1 {
				return nil, 0, fmt.Errorf("audio: format %d: %w", format, domain.ErrUnsupportedFormat)
			}
			channels = binary.LittleEndian.Uint16(data[body+2:])
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bits = binary.LittleEndian.Uint16(data[body+14:])
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, 0, errors.New("audio: data chunk before fmt chunk")
			}
			if channels != ChannelCount || bits != BitDepth {
				return nil, 0, fmt.Errorf("audio: %d ch / %d bit: %w", channels, bits, domain.ErrUnsupportedFormat)
			}
			samples = make([]int16, (end-body)/2)
			if err := binary.Read(bytes.NewReader(data[body:body+len(samples)*2]), binary.LittleEndian, samples); err != nil {
				return nil, 0, fmt.Errorf("audio: read wav data: %w", err)
			}
			return samples, sampleRate, nil
		}

		pos = body + chunkSize
		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			pos++
		}
	}

	return nil, 0, errors.New("audio: data chunk not found in WAV")
}

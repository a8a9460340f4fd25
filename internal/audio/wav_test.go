package audio

import (
	"bytes"
	"errors"
	"testing"

	"github.com/hammamikhairi/polyglot/internal/domain"
)

func TestWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 12345, -12345, 256}

	var buf bytes.Buffer
	if err := EncodeWAV(&buf, samples, 16000); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if buf.Len() != headerSize+len(samples)*2 {
		t.Fatalf("encoded size = %d, want %d", buf.Len(), headerSize+len(samples)*2)
	}

	encoded := buf.Bytes()
	got, rate, err := DecodeWAV(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rate != 16000 {
		t.Fatalf("rate = %d, want 16000", rate)
	}
	if len(got) != len(samples) {
		t.Fatalf("len = %d, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, got[i], samples[i])
		}
	}

	// Re-encoding the decoded samples must give identical bytes.
	var again bytes.Buffer
	if err := EncodeWAV(&again, got, rate); err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(again.Bytes(), encoded) {
		t.Fatal("re-encoded WAV differs from original")
	}
}

func TestFloatToPCM16(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{0.5, 16383},
		{2, 32767},
		{-2, -32768},
	}
	for _, tt := range tests {
		got := FloatToPCM16([]float32{tt.in})[0]
		if got != tt.want {
			t.Errorf("FloatToPCM16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDecodeWAVRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short", []byte("RIFF")},
		{"not riff", bytes.Repeat([]byte{'x'}, 64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeWAV(tt.data); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDecodeWAVRejectsStereo(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeWAV(&buf, []int16{1, 2, 3, 4}, 16000); err != nil {
		t.Fatalf("encode: %v", err)
	}
	data := buf.Bytes()
	data[22] = 2 // channel count

	_, _, err := DecodeWAV(data)
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

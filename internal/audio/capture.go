package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/logger"
)

// Compile-time interface check.
var _ domain.Recorder = (*Recorder)(nil)

// stallGrace is how long past the requested duration Record waits for
// the device before treating it as stalled.
const stallGrace = 3 * time.Second

// Recorder captures fixed-length mono clips from the default input
// device via miniaudio. One Recorder owns one miniaudio context for the
// process lifetime; Record opens a fresh capture device per call.
type Recorder struct {
	mctx *malgo.AllocatedContext
	log  *logger.Logger
	mu   sync.Mutex // one recording at a time
}

// NewRecorder initializes the audio backend. It fails when no backend
// is available; a missing microphone is only detected by Record.
func NewRecorder(log *logger.Logger) (*Recorder, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		log.Debug("malgo: %s", msg)
	})
	if err != nil {
		return nil, fmt.Errorf("audio: init capture context: %w", err)
	}
	return &Recorder{mctx: mctx, log: log}, nil
}

// Close releases the miniaudio context.
func (r *Recorder) Close() error {
	if r.mctx == nil {
		return nil
	}
	err := r.mctx.Uninit()
	r.mctx.Free()
	r.mctx = nil
	return err
}

// Record blocks for d and returns the captured samples. Recording is
// only cut short by ctx cancellation, which returns ctx.Err().
func (r *Recorder) Record(ctx context.Context, d time.Duration, sampleRate int) (*domain.Clip, error) {
	if d <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid recording request (%s @ %d Hz)", d, sampleRate)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mctx == nil {
		return nil, domain.ErrNoDevice
	}

	want := int(d.Seconds() * float64(sampleRate))
	buf := newSampleBuffer(want)

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.SampleRate = uint32(sampleRate)
	devCfg.Capture.Format = malgo.FormatF32
	devCfg.Capture.Channels = 1
	devCfg.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(_ []byte, raw []byte, _ uint32) {
			buf.appendRaw(raw)
		},
	}

	device, err := malgo.InitDevice(r.mctx.Context, devCfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("audio: open capture device: %w: %v", domain.ErrNoDevice, err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return nil, fmt.Errorf("audio: start capture device: %w: %v", domain.ErrNoDevice, err)
	}
	r.log.Debug("audio: recording %s @ %d Hz (%d samples)", d, sampleRate, want)

	select {
	case <-buf.full:
	case <-ctx.Done():
		_ = device.Stop()
		return nil, ctx.Err()
	case <-time.After(d + stallGrace):
		_ = device.Stop()
		got := buf.len()
		if got == 0 {
			return nil, fmt.Errorf("audio: no samples captured: %w", domain.ErrNoDevice)
		}
		r.log.Warn("audio: device stalled, got %d of %d samples", got, want)
	}

	if err := device.Stop(); err != nil {
		r.log.Debug("audio: stop capture device: %v", err)
	}

	return &domain.Clip{Samples: buf.samples(), SampleRate: sampleRate}, nil
}

// sampleBuffer accumulates float32 samples from the device callback and
// closes full once the target count is reached.
type sampleBuffer struct {
	mu     sync.Mutex
	data   []float32
	want   int
	full   chan struct{}
	closed bool
}

func newSampleBuffer(want int) *sampleBuffer {
	return &sampleBuffer{
		data: make([]float32, 0, want),
		want: want,
		full: make(chan struct{}),
	}
}

// appendRaw decodes little-endian f32 frames, discarding anything past
// the target.
func (b *sampleBuffer) appendRaw(raw []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for i := 0; i+4 <= len(raw) && len(b.data) < b.want; i += 4 {
		b.data = append(b.data, math.Float32frombits(binary.LittleEndian.Uint32(raw[i:i+4])))
	}
	if len(b.data) >= b.want {
		b.closed = true
		close(b.full)
	}
}

func (b *sampleBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

func (b *sampleBuffer) samples() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]float32, len(b.data))
	copy(out, b.data)
	return out
}

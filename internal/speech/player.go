package speech

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"

	"github.com/hammamikhairi/polyglot/internal/audio"
	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/logger"
)

// Player plays MP3 and WAV replies through oto. The device context is
// opened on first use at the sample rate of that first clip; oto allows
// only one context per process, so later clips at other rates are
// resampled to match.
type Player struct {
	log *logger.Logger

	mu     sync.Mutex
	ctx    *oto.Context
	rate   int
	active *oto.Player // nil when idle
}

// NewPlayer creates a player. No audio device is touched until Start.
func NewPlayer(log *logger.Logger) *Player {
	return &Player{log: log}
}

// Start decodes data and begins playback in the background, stopping
// whatever was playing before. It returns once the audio is queued.
func (p *Player) Start(data []byte, contentType string) error {
	pcm, rate, err := decodePCM(data, contentType)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureContext(rate); err != nil {
		return err
	}
	if rate != p.rate {
		pcm = resampleStereo(pcm, rate, p.rate)
	}

	if p.active != nil {
		p.active.Pause()
		_ = p.active.Close()
	}

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	player.Play()
	p.active = player
	p.log.Debug("audio player: playing %d bytes of PCM at %d Hz", len(pcm), p.rate)

	go p.reap(player)
	return nil
}

// reap closes a player once it finishes, unless it was replaced.
func (p *Player) reap(player *oto.Player) {
	for player.IsPlaying() {
		time.Sleep(20 * time.Millisecond)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == player {
		_ = player.Close()
		p.active = nil
	}
}

// Stop interrupts the current playback, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		p.active.Pause()
		p.log.Debug("audio player: interrupted")
	}
}

// Playing reports whether audio is currently being played.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active != nil && p.active.IsPlaying()
}

// Close stops playback and suspends the device.
func (p *Player) Close() error {
	p.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil {
		return nil
	}
	return p.ctx.Suspend()
}

func (p *Player) ensureContext(rate int) error {
	if p.ctx != nil {
		return nil
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return fmt.Errorf("audio player: %w", err)
	}
	<-ready
	p.ctx = ctx
	p.rate = rate
	p.log.Debug("audio player initialized (rate=%d, channels=%d)", rate, ChannelCount)
	return nil
}

// decodePCM turns an MP3 or WAV payload into interleaved 16-bit stereo
// PCM and returns it with its sample rate.
func decodePCM(data []byte, contentType string) ([]byte, int, error) {
	switch contentType {
	case audio.ContentTypeMPEG:
		dec, err := mp3.NewDecoder(bytes.NewReader(data))
		if err != nil {
			return nil, 0, fmt.Errorf("audio player: mp3: %w", err)
		}
		pcm, err := io.ReadAll(dec)
		if err != nil {
			return nil, 0, fmt.Errorf("audio player: mp3: %w", err)
		}
		return pcm, dec.SampleRate(), nil

	case audio.ContentTypeWAV:
		samples, rate, err := audio.DecodeWAV(data)
		if err != nil {
			return nil, 0, err
		}
		return monoToStereo(samples), rate, nil
	}
	return nil, 0, fmt.Errorf("audio player: %q: %w", contentType, domain.ErrUnsupportedFormat)
}

// monoToStereo duplicates each sample into both channels.
func monoToStereo(samples []int16) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*4:], uint16(s))
		binary.LittleEndian.PutUint16(out[i*4+2:], uint16(s))
	}
	return out
}

// resampleStereo converts 16-bit stereo PCM between rates by nearest
// frame selection. Replies are speech, so the quality loss is acceptable.
func resampleStereo(pcm []byte, from, to int) []byte {
	const frame = 4
	frames := len(pcm) / frame
	if from <= 0 || to <= 0 || frames == 0 {
		return pcm
	}
	outFrames := int(int64(frames) * int64(to) / int64(from))
	out := make([]byte, outFrames*frame)
	for i := 0; i < outFrames; i++ {
		src := int(int64(i) * int64(from) / int64(to))
		if src >= frames {
			src = frames - 1
		}
		copy(out[i*frame:(i+1)*frame], pcm[src*frame:(src+1)*frame])
	}
	return out
}

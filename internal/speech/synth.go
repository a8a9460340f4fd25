// Package speech holds the speech-to-text and text-to-speech adapters:
// recognisers, the TTS backends, the reply cache and audio playback.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hammamikhairi/polyglot/internal/audio"
	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/logger"
)

// Compile-time interface check.
var _ domain.Synthesizer = (*Synthesizer)(nil)

// TTSBackend turns text into MP3 bytes. lang is already normalized to a
// supported code.
type TTSBackend interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
	Name() string
}

// ArtifactWriter persists synthesized bytes as a fresh temporary file.
type ArtifactWriter interface {
	WriteBytes(data []byte, ext, contentType string) (*domain.Artifact, error)
}

// Synthesizer maps a reply onto a temporary MP3 artifact. The language
// tag is normalized first, so "unknown" and unsupported tags speak in
// English.
type Synthesizer struct {
	backend TTSBackend
	cache   *AudioCache // nil = no caching
	out     ArtifactWriter
	log     *logger.Logger
}

// NewSynthesizer creates a synthesizer. cache may be nil.
func NewSynthesizer(backend TTSBackend, cache *AudioCache, out ArtifactWriter, log *logger.Logger) *Synthesizer {
	return &Synthesizer{backend: backend, cache: cache, out: out, log: log}
}

// Speak synthesizes text and returns the artifact. On any failure no
// artifact is left behind.
func (s *Synthesizer) Speak(ctx context.Context, text, language string) (*domain.Artifact, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("speech: empty text")
	}
	lang := domain.NormalizeLanguage(language)

	var data []byte
	if s.cache != nil {
		data, _ = s.cache.Get(lang, text)
	}
	if data == nil {
		var err error
		data, err = s.backend.Synthesize(ctx, text, lang)
		if err != nil {
			return nil, fmt.Errorf("speech: %s: %w", s.backend.Name(), err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("speech: %s: %w", s.backend.Name(), domain.ErrEmptyResponse)
		}
		if s.cache != nil {
			s.cache.Put(lang, text, data)
		}
	}

	a, err := s.out.WriteBytes(data, ".mp3", audio.ContentTypeMPEG)
	if err != nil {
		return nil, fmt.Errorf("speech: %w", err)
	}
	s.log.Debug("speech: wrote %d bytes [%s] to %s", len(data), lang, a.Path)
	return a, nil
}

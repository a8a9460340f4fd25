package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/logger"
	"github.com/hammamikhairi/polyglot/internal/retry"
)

// Content types of the artifacts the pipeline produces.
const (
	ContentTypeWAV  = "audio/wav"
	ContentTypeMPEG = "audio/mpeg"
)

// TempStoreOption configures a TempStore.
type TempStoreOption func(*TempStore)

// WithRemover replaces os.Remove. Tests use it to simulate files that
// stay locked by another reader.
func WithRemover(fn func(string) error) TempStoreOption {
	return func(s *TempStore) { s.remove = fn }
}

// WithLeakHook registers a callback fired when a release gives up.
func WithLeakHook(fn func(path string, err error)) TempStoreOption {
	return func(s *TempStore) { s.onLeak = fn }
}

// TempStore creates temporary audio artifacts and deletes them again.
type TempStore struct {
	dir     string // empty = os.TempDir()
	retrier *retry.Retrier
	remove  func(string) error
	onLeak  func(path string, err error)
	log     *logger.Logger
}

// NewTempStore creates a store writing into dir. Deletion of recorded
// input goes through r.
func NewTempStore(dir string, r *retry.Retrier, log *logger.Logger, opts ...TempStoreOption) *TempStore {
	s := &TempStore{
		dir:     dir,
		retrier: r,
		remove:  os.Remove,
		log:     log,
	}
	for _, o := range opts {
		o(s)
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("tempstore: failed to create %s: %v", dir, err)
		}
	}
	return s
}

// WriteClip persists a recorded clip as a 16-bit mono WAV file. On a
// write failure the partial file is removed before returning.
func (s *TempStore) WriteClip(clip *domain.Clip) (*domain.Artifact, error) {
	if clip == nil {
		return nil, errors.New("audio: nil clip")
	}

	f, err := os.CreateTemp(s.dir, "polyglot-in-*.wav")
	if err != nil {
		return nil, fmt.Errorf("audio: create temp wav: %w", err)
	}
	a := &domain.Artifact{Path: f.Name(), ContentType: ContentTypeWAV}

	w := bufio.NewWriter(f)
	err = EncodeWAV(w, FloatToPCM16(clip.Samples), clip.SampleRate)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.ReleaseOnce(a)
		return nil, err
	}

	s.log.Debug("tempstore: wrote %s (%d samples @ %d Hz)", a.Path, len(clip.Samples), clip.SampleRate)
	return a, nil
}

// WriteBytes stores encoded audio in a fresh temp file with the given
// extension (".mp3").
func (s *TempStore) WriteBytes(data []byte, ext, contentType string) (*domain.Artifact, error) {
	f, err := os.CreateTemp(s.dir, "polyglot-out-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("audio: create temp file: %w", err)
	}
	a := &domain.Artifact{Path: f.Name(), ContentType: contentType}

	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.ReleaseOnce(a)
		return nil, fmt.Errorf("audio: write temp file: %w", err)
	}
	return a, nil
}

// removeOnce deletes path. A file that is already gone counts as
// released.
func (s *TempStore) removeOnce(path string) error {
	err := s.remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Release deletes the artifact, retrying with backoff while another
// reader holds it open. When every attempt fails the error is returned
// as a transient-resource error; callers treat it as a warning.
func (s *TempStore) Release(ctx context.Context, a *domain.Artifact) error {
	if a == nil || a.Path == "" {
		return nil
	}

	err := s.retrier.Do(ctx, func(attempt int) error {
		err := s.removeOnce(a.Path)
		if err != nil {
			s.log.Debug("tempstore: delete %s attempt %d failed: %v", a.Path, attempt, err)
		}
		return err
	})
	if err != nil {
		s.log.Warn("tempstore: giving up on %s after %d attempts: %v", a.Path, s.retrier.Policy().MaxAttempts, err)
		if s.onLeak != nil {
			s.onLeak(a.Path, err)
		}
		return domain.E(domain.KindTransientResource, "release temp file", err)
	}

	s.log.Debug("tempstore: released %s", a.Path)
	return nil
}

// ReleaseOnce makes a single delete attempt.
func (s *TempStore) ReleaseOnce(a *domain.Artifact) error {
	if a == nil || a.Path == "" {
		return nil
	}
	if err := s.removeOnce(a.Path); err != nil {
		s.log.Debug("tempstore: delete %s failed: %v", a.Path, err)
		return domain.E(domain.KindTransientResource, "release temp file", err)
	}
	return nil
}

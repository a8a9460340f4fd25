package speech

import (
	"context"
	"strings"

	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/logger"
)

// Compile-time interface check.
var _ domain.Transcriber = (*Transcription)(nil)

// Recognizer is a speech recognition backend. gpt.Client (hosted) and
// WhisperCLI (local) implement it.
type Recognizer interface {
	Transcribe(ctx context.Context, path string) (text, language string, err error)
}

// Transcription wraps a Recognizer so that failures never reach the
// caller: errors are logged and reported as empty text with language
// "unknown".
type Transcription struct {
	rec     Recognizer
	log     *logger.Logger
	onError func(error)
}

// TranscriptionOption configures a Transcription.
type TranscriptionOption func(*Transcription)

// WithErrorHook is called with every swallowed recognizer error.
func WithErrorHook(fn func(error)) TranscriptionOption {
	return func(t *Transcription) { t.onError = fn }
}

// NewTranscription creates the service over rec.
func NewTranscription(rec Recognizer, log *logger.Logger, opts ...TranscriptionOption) *Transcription {
	t := &Transcription{rec: rec, log: log}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Transcribe returns the trimmed transcript and the reported language.
func (t *Transcription) Transcribe(ctx context.Context, path string) (string, string) {
	text, lang, err := t.rec.Transcribe(ctx, path)
	if err != nil {
		t.log.Error("stt: transcription of %s failed: %v", path, err)
		if t.onError != nil {
			t.onError(err)
		}
		return "", domain.LangUnknown
	}

	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = domain.LangUnknown
	}

	text = strings.TrimSpace(text)
	t.log.Debug("stt: heard %q (language=%s)", text, lang)
	return text, lang
}

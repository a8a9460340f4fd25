package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across layers.
var (
	ErrEmptyTranscript   = errors.New("nothing was heard")
	ErrNoAPIKey          = errors.New("no api key configured")
	ErrEmptyResponse     = errors.New("empty response")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrNoDevice          = errors.New("audio device unavailable")
)

// Kind classifies a failure by the stage it came from. The pipeline
// decides per kind whether the user sees it.
type Kind int

const (
	KindUnhandled Kind = iota
	KindTransientResource
	KindCapture
	KindTranscription
	KindGeneration
	KindSynthesis
)

// String returns a short label for logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindTransientResource:
		return "transient_resource"
	case KindCapture:
		return "capture"
	case KindTranscription:
		return "transcription"
	case KindGeneration:
		return "generation"
	case KindSynthesis:
		return "synthesis"
	default:
		return "unhandled"
	}
}

// UserVisible reports whether errors of this kind are shown to the user.
// Transcription and generation failures are absorbed (silent abort and
// fallback reply respectively); resource contention is only warned about.
func (k Kind) UserVisible() bool {
	switch k {
	case KindCapture, KindSynthesis, KindUnhandled:
		return true
	}
	return false
}

// Error is a stage failure carrying its Kind.
type Error struct {
	Kind Kind
	Op   string // e.g. "record", "synthesize"
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind and operation. Returns nil for a nil err.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindUnhandled when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnhandled
}

// Package domain defines the turn, reply and error types shared by the
// voice pipeline, and the ports its stages implement. It depends on no
// other package in the module.
package domain

import (
	"context"
	"time"
)

// Recorder captures a fixed-length mono clip from an input device.
type Recorder interface {
	Record(ctx context.Context, d time.Duration, sampleRate int) (*Clip, error)
}

// Transcriber turns an audio file into text plus a language tag. It
// never fails: recogniser errors are logged and reported as ("", "unknown").
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (text, language string)
}

// IntentClassifier maps input text to an intent. Implementations must be
// pure and deterministic.
type IntentClassifier interface {
	Classify(text string) Classification
}

// Responder is the primary reply path. Every failure is reported as a
// Fallback reply, never as an error.
type Responder interface {
	Respond(ctx context.Context, text string) Reply
}

// Synthesizer converts reply text into an audio artifact in a fresh
// temporary location. language is normalized before use.
type Synthesizer interface {
	Speak(ctx context.Context, text, language string) (*Artifact, error)
}

// Notifier delivers messages to the user. Implementations can write to
// stdout, the terminal UI, or a log.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}

// Presenter is the user-facing surface a turn reports to.
type Presenter interface {
	Notifier

	// Status shows a transient stage message ("Recording..."). An empty
	// message clears it.
	Status(message string)
	Heard(text, language string)
	Classified(c Classification)
	Replied(text string, source ReplySource)

	// Present hands a synthesized artifact to the user. When it returns
	// the artifact's bytes have been consumed and the file may be deleted.
	Present(ctx context.Context, a *Artifact) error
}

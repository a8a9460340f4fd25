// Package engine runs conversation turns: it drives a recorded or typed
// input through transcription, intent detection, reply generation and
// speech synthesis, and contains every failure inside the turn.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/logger"
)

// Stage names reported to the Observer.
const (
	StageCapture    = "capture"
	StageTranscribe = "transcribe"
	StageClassify   = "classify"
	StageGenerate   = "generate"
	StageSynthesize = "synthesize"
	StagePresent    = "present"
)

// Default capture parameters.
const (
	DefaultCaptureDuration = 5 * time.Second
	DefaultSampleRate      = 16000
)

// ArtifactStore owns the temporary files a turn creates.
type ArtifactStore interface {
	WriteClip(clip *domain.Clip) (*domain.Artifact, error)
	// Release deletes with the configured retry policy.
	Release(ctx context.Context, a *domain.Artifact) error
	// ReleaseOnce makes a single delete attempt.
	ReleaseOnce(a *domain.Artifact) error
}

// FallbackSource resolves canned replies for an intent and language.
type FallbackSource interface {
	Lookup(intent domain.IntentType, language string) string
}

// Observer receives turn telemetry. Implementations must not block.
type Observer interface {
	StageDone(stage string, d time.Duration)
	TurnDone(t *domain.Turn)
}

type nopObserver struct{}

func (nopObserver) StageDone(string, time.Duration) {}
func (nopObserver) TurnDone(*domain.Turn)           {}

// Services is the registry of shared collaborators. It is built once at
// startup and only read afterwards.
type Services struct {
	Recorder    domain.Recorder // nil = audio turns fail with a capture error
	Transcriber domain.Transcriber
	Classifier  domain.IntentClassifier
	Responder   domain.Responder
	Fallbacks   FallbackSource
	Synthesizer domain.Synthesizer
	Store       ArtifactStore
	Presenter   domain.Presenter
}

// Validate reports the first missing collaborator.
func (s Services) Validate() error {
	switch {
	case s.Transcriber == nil:
		return errors.New("engine: no transcriber")
	case s.Classifier == nil:
		return errors.New("engine: no classifier")
	case s.Responder == nil:
		return errors.New("engine: no responder")
	case s.Fallbacks == nil:
		return errors.New("engine: no fallback table")
	case s.Synthesizer == nil:
		return errors.New("engine: no synthesizer")
	case s.Store == nil:
		return errors.New("engine: no artifact store")
	case s.Presenter == nil:
		return errors.New("engine: no presenter")
	}
	return nil
}

// Option configures the engine.
type Option func(*Engine)

// WithCapture sets the recording length and sample rate.
func WithCapture(d time.Duration, sampleRate int) Option {
	return func(e *Engine) {
		e.captureDuration = d
		e.sampleRate = sampleRate
	}
}

// WithDefaultLanguage sets the language assumed for text turns that do
// not name one.
func WithDefaultLanguage(lang string) Option {
	return func(e *Engine) {
		e.defaultLanguage = lang
	}
}

// WithObserver registers a telemetry sink.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// Engine executes turns one at a time. It keeps no state between turns.
type Engine struct {
	svc             Services
	log             *logger.Logger
	observer        Observer
	captureDuration time.Duration
	sampleRate      int
	defaultLanguage string
}

// New creates an engine over svc.
func New(svc Services, log *logger.Logger, opts ...Option) (*Engine, error) {
	if err := svc.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		svc:             svc,
		log:             log,
		observer:        nopObserver{},
		captureDuration: DefaultCaptureDuration,
		sampleRate:      DefaultSampleRate,
		defaultLanguage: domain.LangEnglish,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// AudioTurn records a clip and answers it. The returned turn describes
// how far it got; it never panics and never returns a nil turn.
func (e *Engine) AudioTurn(ctx context.Context) (t *domain.Turn) {
	t = domain.NewTurn(domain.ModalityAudio)
	defer e.finish(ctx, t)

	e.log.Info("turn %s: audio turn started", t.ShortID())

	if e.svc.Recorder == nil {
		e.fail(ctx, t, domain.E(domain.KindCapture, "record", domain.ErrNoDevice))
		return t
	}

	e.svc.Presenter.Status("Recording...")
	start := time.Now()
	clip, err := e.svc.Recorder.Record(ctx, e.captureDuration, e.sampleRate)
	e.observer.StageDone(StageCapture, time.Since(start))
	if err != nil {
		e.fail(ctx, t, domain.E(domain.KindCapture, "record", err))
		return t
	}

	in, err := e.svc.Store.WriteClip(clip)
	if err != nil {
		e.fail(ctx, t, domain.E(domain.KindCapture, "write clip", err))
		return t
	}
	defer e.releaseInput(ctx, in)

	e.svc.Presenter.Status("Transcribing...")
	start = time.Now()
	text, lang := e.svc.Transcriber.Transcribe(ctx, in.Path)
	e.observer.StageDone(StageTranscribe, time.Since(start))

	text = strings.TrimSpace(text)
	if text == "" {
		e.log.Info("turn %s: nothing heard, aborting", t.ShortID())
		t.Outcome = domain.OutcomeAborted
		t.Err = domain.ErrEmptyTranscript
		return t
	}

	t.InputText = text
	t.Language = lang
	e.svc.Presenter.Heard(text, lang)

	e.respond(ctx, t)
	return t
}

// TextTurn answers typed input. An empty language means the default.
func (e *Engine) TextTurn(ctx context.Context, text, language string) (t *domain.Turn) {
	t = domain.NewTurn(domain.ModalityText)
	defer e.finish(ctx, t)

	if language == "" {
		language = e.defaultLanguage
	}
	t.InputText = strings.TrimSpace(text)
	t.Language = language

	e.log.Info("turn %s: text turn started (lang=%s)", t.ShortID(), language)

	if t.InputText == "" {
		t.Outcome = domain.OutcomeAborted
		t.Err = domain.ErrEmptyTranscript
		return t
	}

	e.respond(ctx, t)
	return t
}

// respond runs classify → generate → synthesize → present on a turn
// that has input text and a language.
func (e *Engine) respond(ctx context.Context, t *domain.Turn) {
	t.ReplyLanguage = domain.NormalizeLanguage(t.Language)

	start := time.Now()
	t.Class = e.svc.Classifier.Classify(t.InputText)
	e.observer.StageDone(StageClassify, time.Since(start))
	e.svc.Presenter.Classified(t.Class)

	e.svc.Presenter.Status("Generating response...")
	start = time.Now()
	reply := e.svc.Responder.Respond(ctx, t.InputText)
	e.observer.StageDone(StageGenerate, time.Since(start))

	switch reply.Source {
	case domain.SourcePrimary:
		t.ReplyText = reply.Text
	case domain.SourceFallback:
		t.ReplyText = e.svc.Fallbacks.Lookup(t.Class.Intent, t.ReplyLanguage)
		e.log.Info("turn %s: using fallback reply for %s/%s: %v",
			t.ShortID(), t.Class.Intent, t.ReplyLanguage, reply.Reason)
	}
	t.ReplySource = reply.Source
	t.Outcome = domain.OutcomeCompleted
	e.svc.Presenter.Replied(t.ReplyText, t.ReplySource)

	e.svc.Presenter.Status("Synthesizing speech...")
	start = time.Now()
	artifact, err := e.svc.Synthesizer.Speak(ctx, t.ReplyText, t.ReplyLanguage)
	e.observer.StageDone(StageSynthesize, time.Since(start))
	if err != nil {
		e.surface(ctx, t, domain.E(domain.KindSynthesis, "synthesize", err))
		return
	}
	t.Artifact = artifact
	defer e.releaseOutput(t, artifact)

	start = time.Now()
	err = e.svc.Presenter.Present(ctx, artifact)
	e.observer.StageDone(StagePresent, time.Since(start))
	if err != nil {
		e.surface(ctx, t, domain.E(domain.KindSynthesis, "present", err))
	}
}

// releaseInput deletes the recorded clip. Exhausted retries are a
// warning only.
func (e *Engine) releaseInput(ctx context.Context, a *domain.Artifact) {
	// The turn context may already be cancelled; cleanup still runs.
	err := e.svc.Store.Release(context.WithoutCancel(ctx), a)
	if err == nil {
		return
	}
	e.log.Warn("could not clean up %s: %v", a.Path, err)
	_ = e.svc.Presenter.Notify(ctx, "Could not clean up temporary file")
}

// releaseOutput makes the single delete attempt for a synthesized reply.
func (e *Engine) releaseOutput(t *domain.Turn, a *domain.Artifact) {
	if err := e.svc.Store.ReleaseOnce(a); err != nil {
		e.log.Warn("turn %s: could not delete %s: %v", t.ShortID(), a.Path, err)
	}
}

// surface records a user-visible error without ending the turn.
func (e *Engine) surface(ctx context.Context, t *domain.Turn, err error) {
	t.Err = err
	e.log.Error("turn %s: %v", t.ShortID(), err)
	if domain.KindOf(err).UserVisible() {
		_ = e.svc.Presenter.NotifyUrgent(ctx, userMessage(err))
	}
}

// fail ends the turn with a user-visible error.
func (e *Engine) fail(ctx context.Context, t *domain.Turn, err error) {
	t.Outcome = domain.OutcomeFailed
	e.surface(ctx, t, err)
}

// finish is deferred by every turn. It converts panics into Unhandled
// errors, clears the status line and reports the turn.
func (e *Engine) finish(ctx context.Context, t *domain.Turn) {
	if r := recover(); r != nil {
		e.log.Error("turn %s: panic: %v\n%s", t.ShortID(), r, debug.Stack())
		e.fail(ctx, t, domain.E(domain.KindUnhandled, "turn", fmt.Errorf("panic: %v", r)))
	}
	if t.Outcome == domain.OutcomePending {
		t.Outcome = domain.OutcomeFailed
	}
	e.svc.Presenter.Status("")
	e.observer.TurnDone(t)
	e.log.Info("turn %s: %s in %s (intent=%s, source=%s)",
		t.ShortID(), t.Outcome, time.Since(t.StartedAt).Round(time.Millisecond), t.Class.Intent, t.ReplySource)
}

func userMessage(err error) string {
	switch domain.KindOf(err) {
	case domain.KindCapture:
		return fmt.Sprintf("Recording failed: %v", errors.Unwrap(err))
	case domain.KindSynthesis:
		return fmt.Sprintf("Speech synthesis failed: %v", errors.Unwrap(err))
	default:
		return fmt.Sprintf("An error occurred: %v", errors.Unwrap(err))
	}
}

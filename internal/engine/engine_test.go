package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/polyglot/internal/audio"
	"github.com/hammamikhairi/polyglot/internal/conversation"
	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/logger"
	"github.com/hammamikhairi/polyglot/internal/retry"
)

// ── fakes ────────────────────────────────────────────────────────

type fakeRecorder struct {
	err   error
	calls int
}

func (f *fakeRecorder) Record(ctx context.Context, d time.Duration, rate int) (*domain.Clip, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Clip{Samples: []float32{0, 0.5, -0.5}, SampleRate: rate}, nil
}

type fakeTranscriber struct {
	text, lang string
	paths      []string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, path string) (string, string) {
	f.paths = append(f.paths, path)
	return f.text, f.lang
}

type countingClassifier struct {
	inner domain.IntentClassifier
	calls int
}

func (c *countingClassifier) Classify(text string) domain.Classification {
	c.calls++
	return c.inner.Classify(text)
}

type fakeResponder struct {
	reply domain.Reply
	panic bool
	calls int
}

func (f *fakeResponder) Respond(ctx context.Context, text string) domain.Reply {
	f.calls++
	if f.panic {
		panic("model exploded")
	}
	return f.reply
}

type fakeSynth struct {
	store *audio.TempStore
	err   error
	langs []string
}

func (f *fakeSynth) Speak(ctx context.Context, text, lang string) (*domain.Artifact, error) {
	f.langs = append(f.langs, lang)
	if f.err != nil {
		return nil, f.err
	}
	return f.store.WriteBytes([]byte("mp3"), ".mp3", audio.ContentTypeMPEG)
}

type recordingPresenter struct {
	mu        sync.Mutex
	notices   []string
	urgent    []string
	heard     []string
	replies   []string
	presented []string
	panicking bool // Present panics
}

func (p *recordingPresenter) Notify(ctx context.Context, msg string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, msg)
	return nil
}

func (p *recordingPresenter) NotifyUrgent(ctx context.Context, msg string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urgent = append(p.urgent, msg)
	return nil
}

func (p *recordingPresenter) Status(string)                    {}
func (p *recordingPresenter) Classified(domain.Classification) {}

func (p *recordingPresenter) Heard(text, lang string) {
	p.heard = append(p.heard, text)
}

func (p *recordingPresenter) Replied(text string, _ domain.ReplySource) {
	p.replies = append(p.replies, text)
}

func (p *recordingPresenter) Present(ctx context.Context, a *domain.Artifact) error {
	if p.panicking {
		panic("speaker on fire")
	}
	if _, err := os.ReadFile(a.Path); err != nil {
		return err
	}
	p.presented = append(p.presented, a.Path)
	return nil
}

type fakeObserver struct {
	stages []string
	turns  []*domain.Turn
}

func (o *fakeObserver) StageDone(stage string, d time.Duration) { o.stages = append(o.stages, stage) }
func (o *fakeObserver) TurnDone(t *domain.Turn)                 { o.turns = append(o.turns, t) }

// ── harness ──────────────────────────────────────────────────────

type harness struct {
	eng        *Engine
	dir        string
	recorder   *fakeRecorder
	transcribe *fakeTranscriber
	classifier *countingClassifier
	responder  *fakeResponder
	synth      *fakeSynth
	presenter  *recordingPresenter
	observer   *fakeObserver
}

func newHarness(t *testing.T, storeOpts ...audio.TempStoreOption) *harness {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	dir := t.TempDir()

	noSleep := retry.WithSleeper(func(context.Context, time.Duration) error { return nil })
	store := audio.NewTempStore(dir, retry.New(retry.DefaultPolicy(), noSleep), log, storeOpts...)

	h := &harness{
		dir:        dir,
		recorder:   &fakeRecorder{},
		transcribe: &fakeTranscriber{text: "hello", lang: "en"},
		classifier: &countingClassifier{inner: conversation.NewKeywordClassifier(log)},
		responder:  &fakeResponder{reply: domain.Fallback(errors.New("forced"))},
		synth:      &fakeSynth{store: store},
		presenter:  &recordingPresenter{},
		observer:   &fakeObserver{},
	}

	eng, err := New(Services{
		Recorder:    h.recorder,
		Transcriber: h.transcribe,
		Classifier:  h.classifier,
		Responder:   h.responder,
		Fallbacks:   conversation.DefaultFallbacks,
		Synthesizer: h.synth,
		Store:       store,
		Presenter:   h.presenter,
	}, log, WithObserver(h.observer))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.eng = eng
	return h
}

func (h *harness) leftovers(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// ── tests ────────────────────────────────────────────────────────

func TestNewRequiresServices(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	if _, err := New(Services{}, log); err == nil {
		t.Fatal("expected error for empty services")
	}
}

func TestTextTurnReplies(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		lang       string
		reply      domain.Reply
		wantIntent domain.IntentType
		wantConf   float64
		wantText   string
		wantSource domain.ReplySource
		wantLang   string
	}{
		{
			name:       "hindi greeting fallback",
			text:       "hello",
			lang:       "hi",
			reply:      domain.Fallback(errors.New("forced")),
			wantIntent: domain.IntentGreeting,
			wantConf:   0.9,
			wantText:   "नमस्ते! मैं आपकी कैसे सहायता कर सकता हूं?",
			wantSource: domain.SourceFallback,
			wantLang:   "hi",
		},
		{
			name:       "general fallback default language",
			text:       "xyzzy nonsense",
			lang:       "",
			reply:      domain.Fallback(errors.New("forced")),
			wantIntent: domain.IntentGeneral,
			wantConf:   0.5,
			wantText:   conversation.DefaultFallbackReply,
			wantSource: domain.SourceFallback,
			wantLang:   "en",
		},
		{
			name:       "weather has no canned reply",
			text:       "mausam kaisa hai",
			lang:       "hi",
			reply:      domain.Fallback(errors.New("forced")),
			wantIntent: domain.IntentWeather,
			wantConf:   0.9,
			wantText:   conversation.DefaultFallbackReply,
			wantSource: domain.SourceFallback,
			wantLang:   "hi",
		},
		{
			name:       "primary reply verbatim",
			text:       "what is go",
			lang:       "en",
			reply:      domain.Ok("  Go is a language.\n"),
			wantIntent: domain.IntentQuestion,
			wantConf:   0.9,
			wantText:   "  Go is a language.\n",
			wantSource: domain.SourcePrimary,
			wantLang:   "en",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.responder.reply = tt.reply

			turn := h.eng.TextTurn(context.Background(), tt.text, tt.lang)

			if turn.Outcome != domain.OutcomeCompleted {
				t.Fatalf("outcome = %s, err = %v", turn.Outcome, turn.Err)
			}
			if turn.Class.Intent != tt.wantIntent {
				t.Errorf("intent = %s, want %s", turn.Class.Intent, tt.wantIntent)
			}
			if turn.Class.Confidence != tt.wantConf {
				t.Errorf("confidence = %v, want %v", turn.Class.Confidence, tt.wantConf)
			}
			if turn.ReplyText != tt.wantText {
				t.Errorf("reply = %q, want %q", turn.ReplyText, tt.wantText)
			}
			if turn.ReplySource != tt.wantSource {
				t.Errorf("source = %s, want %s", turn.ReplySource, tt.wantSource)
			}
			if turn.ReplyLanguage != tt.wantLang || h.synth.langs[0] != tt.wantLang {
				t.Errorf("reply language = %q / synth %q, want %q", turn.ReplyLanguage, h.synth.langs[0], tt.wantLang)
			}
			if len(h.presenter.presented) != 1 {
				t.Errorf("presented %d artifacts, want 1", len(h.presenter.presented))
			}
			if left := h.leftovers(t); len(left) != 0 {
				t.Errorf("temp files left behind: %v", left)
			}
		})
	}
}

func TestAudioTurnCompletes(t *testing.T) {
	h := newHarness(t)
	h.transcribe.text = "  namaste dost "
	h.transcribe.lang = "hindi"

	turn := h.eng.AudioTurn(context.Background())

	if turn.Outcome != domain.OutcomeCompleted {
		t.Fatalf("outcome = %s, err = %v", turn.Outcome, turn.Err)
	}
	if turn.InputText != "namaste dost" || turn.Language != "hindi" {
		t.Errorf("input = %q (%s)", turn.InputText, turn.Language)
	}
	if turn.ReplyText != "नमस्ते! मैं आपकी कैसे सहायता कर सकता हूं?" {
		t.Errorf("reply = %q", turn.ReplyText)
	}
	if h.synth.langs[0] != "hi" {
		t.Errorf("synth lang = %q, want hi", h.synth.langs[0])
	}
	if !strings.HasSuffix(h.transcribe.paths[0], ".wav") {
		t.Errorf("transcribed %q, want a wav file", h.transcribe.paths[0])
	}
	if left := h.leftovers(t); len(left) != 0 {
		t.Errorf("temp files left behind: %v", left)
	}
	if len(h.observer.turns) != 1 || h.observer.turns[0] != turn {
		t.Errorf("observer saw %d turns", len(h.observer.turns))
	}
}

func TestAudioTurnEmptyTranscriptAborts(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		h := newHarness(t)
		h.transcribe.text = text

		turn := h.eng.AudioTurn(context.Background())

		if turn.Outcome != domain.OutcomeAborted {
			t.Fatalf("outcome = %s, want aborted", turn.Outcome)
		}
		if h.classifier.calls != 0 || h.responder.calls != 0 || len(h.synth.langs) != 0 {
			t.Fatalf("downstream ran: classify=%d respond=%d synth=%d",
				h.classifier.calls, h.responder.calls, len(h.synth.langs))
		}
		if len(h.presenter.urgent) != 0 || len(h.presenter.heard) != 0 {
			t.Fatalf("abort must be silent: %v %v", h.presenter.urgent, h.presenter.heard)
		}
		if left := h.leftovers(t); len(left) != 0 {
			t.Fatalf("input not released: %v", left)
		}
	}
}

func TestAudioTurnCleanupExhaustedStillCompletes(t *testing.T) {
	var attempts int
	remover := func(path string) error {
		if strings.Contains(filepath.Base(path), "polyglot-in-") {
			attempts++
			return errors.New("file is locked")
		}
		return os.Remove(path)
	}
	h := newHarness(t, audio.WithRemover(remover))

	turn := h.eng.AudioTurn(context.Background())

	if turn.Outcome != domain.OutcomeCompleted {
		t.Fatalf("outcome = %s, err = %v", turn.Outcome, turn.Err)
	}
	if turn.Err != nil {
		t.Fatalf("cleanup failure leaked into turn error: %v", turn.Err)
	}
	if attempts != 5 {
		t.Fatalf("delete attempts = %d, want 5", attempts)
	}
	if len(h.presenter.notices) != 1 || h.presenter.notices[0] != "Could not clean up temporary file" {
		t.Fatalf("notices = %q", h.presenter.notices)
	}
	if len(h.presenter.urgent) != 0 {
		t.Fatalf("cleanup failure must not be an error: %q", h.presenter.urgent)
	}
}

func TestAudioTurnCaptureError(t *testing.T) {
	h := newHarness(t)
	h.recorder.err = errors.New("no microphone")

	turn := h.eng.AudioTurn(context.Background())

	if turn.Outcome != domain.OutcomeFailed {
		t.Fatalf("outcome = %s", turn.Outcome)
	}
	if domain.KindOf(turn.Err) != domain.KindCapture {
		t.Fatalf("kind = %s", domain.KindOf(turn.Err))
	}
	if len(h.transcribe.paths) != 0 {
		t.Fatal("transcriber called after capture failure")
	}
	if len(h.presenter.urgent) != 1 || !strings.Contains(h.presenter.urgent[0], "no microphone") {
		t.Fatalf("urgent = %q", h.presenter.urgent)
	}
}

func TestAudioTurnWithoutRecorder(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	h := newHarness(t)
	svc := h.eng.svc
	svc.Recorder = nil
	eng, err := New(svc, log)
	if err != nil {
		t.Fatal(err)
	}

	turn := eng.AudioTurn(context.Background())
	if !errors.Is(turn.Err, domain.ErrNoDevice) || domain.KindOf(turn.Err) != domain.KindCapture {
		t.Fatalf("err = %v", turn.Err)
	}
}

func TestSynthesisErrorIsSurfaced(t *testing.T) {
	h := newHarness(t)
	h.synth.err = errors.New("tts down")

	turn := h.eng.TextTurn(context.Background(), "help me", "en")

	if turn.Outcome != domain.OutcomeCompleted {
		t.Fatalf("outcome = %s", turn.Outcome)
	}
	if domain.KindOf(turn.Err) != domain.KindSynthesis {
		t.Fatalf("kind = %s", domain.KindOf(turn.Err))
	}
	if len(h.presenter.replies) != 1 {
		t.Fatal("reply text must be shown before synthesis")
	}
	if len(h.presenter.urgent) != 1 || !strings.Contains(h.presenter.urgent[0], "tts down") {
		t.Fatalf("urgent = %q", h.presenter.urgent)
	}
	if len(h.presenter.presented) != 0 {
		t.Fatal("nothing should be presented")
	}
}

func TestPanicIsContained(t *testing.T) {
	h := newHarness(t)
	h.responder.panic = true

	turn := h.eng.TextTurn(context.Background(), "hello", "en")

	if turn.Outcome != domain.OutcomeFailed {
		t.Fatalf("outcome = %s", turn.Outcome)
	}
	if domain.KindOf(turn.Err) != domain.KindUnhandled {
		t.Fatalf("kind = %s", domain.KindOf(turn.Err))
	}
	if len(h.presenter.urgent) != 1 {
		t.Fatalf("urgent = %q", h.presenter.urgent)
	}

	// The engine is ready for the next turn.
	h.responder.panic = false
	next := h.eng.TextTurn(context.Background(), "bye", "en")
	if next.Outcome != domain.OutcomeCompleted || next.ReplyText != "Goodbye! Have a great day!" {
		t.Fatalf("next turn = %s %q", next.Outcome, next.ReplyText)
	}
	if next.ID == turn.ID {
		t.Fatal("turns must not share IDs")
	}
}

func TestAudioTurnPanicReleasesRecording(t *testing.T) {
	h := newHarness(t)
	h.responder.panic = true

	turn := h.eng.AudioTurn(context.Background())

	if turn.Outcome != domain.OutcomeFailed {
		t.Fatalf("outcome = %s", turn.Outcome)
	}
	if domain.KindOf(turn.Err) != domain.KindUnhandled {
		t.Fatalf("kind = %s", domain.KindOf(turn.Err))
	}
	if len(h.transcribe.paths) != 1 {
		t.Fatalf("transcribed %d clips, want 1", len(h.transcribe.paths))
	}
	if left := h.leftovers(t); len(left) != 0 {
		t.Fatalf("temp files left behind: %v", left)
	}
}

func TestPresentPanicReleasesReply(t *testing.T) {
	h := newHarness(t)
	h.presenter.panicking = true

	turn := h.eng.TextTurn(context.Background(), "hello", "en")

	if turn.Outcome != domain.OutcomeFailed {
		t.Fatalf("outcome = %s", turn.Outcome)
	}
	if domain.KindOf(turn.Err) != domain.KindUnhandled {
		t.Fatalf("kind = %s", domain.KindOf(turn.Err))
	}
	if turn.Artifact == nil {
		t.Fatal("expected a synthesized artifact")
	}
	if left := h.leftovers(t); len(left) != 0 {
		t.Fatalf("temp files left behind: %v", left)
	}
}

func TestEmptyTextTurnAborts(t *testing.T) {
	h := newHarness(t)
	turn := h.eng.TextTurn(context.Background(), "   ", "")
	if turn.Outcome != domain.OutcomeAborted || h.classifier.calls != 0 {
		t.Fatalf("outcome = %s, classify calls = %d", turn.Outcome, h.classifier.calls)
	}
}

package speech

import (
	"context"
	"errors"
	"testing"

	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/logger"
)

type fakeRecognizer struct {
	text, lang string
	err        error
	calls      int
}

func (f *fakeRecognizer) Transcribe(ctx context.Context, path string) (string, string, error) {
	f.calls++
	return f.text, f.lang, f.err
}

func TestTranscriptionSwallowsErrors(t *testing.T) {
	rec := &fakeRecognizer{text: "partial", lang: "en", err: errors.New("network down")}
	var hooked error
	tr := NewTranscription(rec, logger.New(logger.LevelOff, nil), WithErrorHook(func(err error) { hooked = err }))

	text, lang := tr.Transcribe(context.Background(), "in.wav")
	if text != "" || lang != domain.LangUnknown {
		t.Fatalf("got (%q, %q), want (\"\", %q)", text, lang, domain.LangUnknown)
	}
	if hooked == nil {
		t.Fatal("error hook not called")
	}
}

func TestTranscriptionLanguage(t *testing.T) {
	tests := []struct {
		lang string
		want string
	}{
		{"hindi", "hindi"},
		{"Hindi", "hindi"},
		{" EN ", "en"},
		{"", domain.LangUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			rec := &fakeRecognizer{text: "namaste", lang: tt.lang}
			tr := NewTranscription(rec, logger.New(logger.LevelOff, nil))
			text, lang := tr.Transcribe(context.Background(), "in.wav")
			if text != "namaste" {
				t.Errorf("text = %q", text)
			}
			if lang != tt.want {
				t.Errorf("lang = %q, want %q", lang, tt.want)
			}
		})
	}
}

func TestTranscriptionKeepsShortUtterances(t *testing.T) {
	tests := []string{"Thank you.", "you", "What is (roughly) the time"}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			rec := &fakeRecognizer{text: " " + in + "\n", lang: "english"}
			tr := NewTranscription(rec, logger.New(logger.LevelOff, nil))
			text, _ := tr.Transcribe(context.Background(), "in.wav")
			if text != in {
				t.Fatalf("text = %q, want %q", text, in)
			}
		})
	}
}

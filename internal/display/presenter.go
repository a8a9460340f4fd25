package display

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/logger"
)

// Compile-time interface check.
var _ domain.Presenter = (*Presenter)(nil)

// Output is the part of the UI the presenter writes to.
type Output interface {
	Println(a ...interface{})
	SetStatus(msg string)
}

// Playback consumes synthesized audio without blocking.
type Playback interface {
	Start(data []byte, contentType string) error
}

// Presenter renders turn progress in the terminal UI and plays replies.
type Presenter struct {
	out      Output
	playback Playback
	log      *logger.Logger
}

// NewPresenter creates a presenter over out. With a nil playback the
// artifact path is printed instead of played.
func NewPresenter(out Output, playback Playback, log *logger.Logger) *Presenter {
	return &Presenter{out: out, playback: playback, log: log}
}

// Notify prints a warning line.
func (p *Presenter) Notify(ctx context.Context, message string) error {
	p.out.Println(warnStyle.Render("  " + message))
	return nil
}

// NotifyUrgent prints an error line.
func (p *Presenter) NotifyUrgent(ctx context.Context, message string) error {
	p.out.Println(urgentOutputStyle.Render("  " + message))
	return nil
}

func (p *Presenter) Status(message string) {
	p.out.SetStatus(message)
}

func (p *Presenter) Heard(text, language string) {
	p.out.Println(heardStyle.Render(fmt.Sprintf("  You said (%s): ", language)) + primaryStyle.Render(text))
}

func (p *Presenter) Classified(c domain.Classification) {
	p.out.Println(secondaryStyle.Render(fmt.Sprintf("  Intent detected: %s (confidence: %.2f)", c.Intent, c.Confidence)))
}

func (p *Presenter) Replied(text string, source domain.ReplySource) {
	line := chatStyle.Render("  AI Response: " + text)
	if source == domain.SourceFallback {
		line += secondaryStyle.Render("  (offline reply)")
	}
	p.out.Println(line)
}

// Present loads the artifact and starts playback. The bytes are in
// memory when it returns, so the caller may delete the file.
func (p *Presenter) Present(ctx context.Context, a *domain.Artifact) error {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return fmt.Errorf("present: read %s: %w", a.Path, err)
	}
	p.log.Debug("present: %s (%d bytes)", a.ContentType, len(data))
	if p.playback == nil {
		p.out.Println(secondaryStyle.Render(fmt.Sprintf("  [audio] %s (%d KB)", a.Path, (len(data)+1023)/1024)))
		return nil
	}
	return p.playback.Start(data, a.ContentType)
}

// Timing prints how long a turn took.
func (p *Presenter) Timing(d time.Duration) {
	p.out.Println(secondaryStyle.Render("  " + fmtDuration(d)))
}

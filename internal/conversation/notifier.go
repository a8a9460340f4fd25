package conversation

import (
	"context"
	"fmt"
	"os"

	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.Notifier  = (*CLINotifier)(nil)
	_ domain.Presenter = (*CLINotifier)(nil)
)

// ANSI escape codes for terminal formatting.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

// PrintFunc is a function used to print formatted output.
// Matches the signature of fmt.Printf.
type PrintFunc func(format string, a ...interface{})

// Playback consumes synthesized audio. Start returns once the bytes are
// handed over; playing continues in the background.
type Playback interface {
	Start(data []byte, contentType string) error
}

// CLINotifier writes turn progress to stdout with ANSI formatting. It is
// the presenter for -plain mode.
type CLINotifier struct {
	log      *logger.Logger
	printFn  PrintFunc
	playback Playback // nil = print the artifact path instead of playing
}

// NewCLINotifier creates a stdout-based presenter.
// If printFn is nil, fmt.Printf is used. playback may be nil.
func NewCLINotifier(log *logger.Logger, printFn PrintFunc, playback Playback) *CLINotifier {
	if printFn == nil {
		printFn = func(format string, a ...interface{}) {
			fmt.Printf(format+"\n", a...)
		}
	}
	return &CLINotifier{log: log, printFn: printFn, playback: playback}
}

// Notify prints a warning.
func (n *CLINotifier) Notify(ctx context.Context, message string) error {
	n.log.Debug("notify: %s", message)
	n.printFn("%s%s%s", yellow, message, reset)
	return nil
}

// NotifyUrgent prints an error in bold red.
func (n *CLINotifier) NotifyUrgent(ctx context.Context, message string) error {
	n.log.Debug("notify-urgent: %s", message)
	n.printFn("%s%s%s%s", red, bold, message, reset)
	return nil
}

func (n *CLINotifier) Status(message string) {
	if message == "" {
		return
	}
	n.printFn("%s%s%s", dim, message, reset)
}

func (n *CLINotifier) Heard(text, language string) {
	n.printFn("%s%sYou said (%s):%s %s", green, bold, language, reset, text)
}

func (n *CLINotifier) Classified(c domain.Classification) {
	n.printFn("%sIntent detected: %s (confidence: %.2f)%s", dim, c.Intent, c.Confidence, reset)
}

func (n *CLINotifier) Replied(text string, source domain.ReplySource) {
	n.printFn("%s%sAI Response:%s %s", cyan, bold, reset, text)
}

// Present reads the artifact into memory and starts playback. The file
// can be deleted as soon as this returns.
func (n *CLINotifier) Present(ctx context.Context, a *domain.Artifact) error {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return fmt.Errorf("present: read %s: %w", a.Path, err)
	}
	if n.playback == nil {
		n.printFn("%s[audio] %s (%s, %d bytes)%s", dim, a.Path, a.ContentType, len(data), reset)
		return nil
	}
	return n.playback.Start(data, a.ContentType)
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hammamikhairi/polyglot/internal/display"
	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/engine"
	"github.com/hammamikhairi/polyglot/internal/logger"
)

// frontend is the surface commands print to.
type frontend interface {
	Println(a ...interface{})
	PrintHelp()
	SetLanguage(lang string)
}

type commandKind int

const (
	cmdText commandKind = iota
	cmdRecord
	cmdLang
	cmdHelp
	cmdQuit
	cmdUnknown
)

type command struct {
	kind commandKind
	arg  string
}

// parseCommand splits a line into a slash command or a text turn.
func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{kind: cmdText, arg: line}
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(name) {
	case "rec", "record":
		return command{kind: cmdRecord}
	case "lang", "language":
		return command{kind: cmdLang, arg: strings.ToLower(arg)}
	case "help", "?":
		return command{kind: cmdHelp}
	case "quit", "exit", "q":
		return command{kind: cmdQuit}
	}
	return command{kind: cmdUnknown, arg: name}
}

// cliApp dispatches user commands to the engine. Turns run one at a
// time on the caller's goroutine.
type cliApp struct {
	engine *engine.Engine
	out    frontend
	log    *logger.Logger
	lang   string // language of text turns
	timing func(time.Duration)
}

func newApp(eng *engine.Engine, out frontend, log *logger.Logger) *cliApp {
	return &cliApp{engine: eng, out: out, log: log, lang: domain.LangEnglish}
}

// handle runs one command and reports whether the app should exit.
func (a *cliApp) handle(ctx context.Context, line string) (quit bool) {
	cmd := parseCommand(line)
	switch cmd.kind {
	case cmdText:
		if cmd.arg == "" {
			return false
		}
		a.report(a.engine.TextTurn(ctx, cmd.arg, a.lang))
	case cmdRecord:
		a.report(a.engine.AudioTurn(ctx))
	case cmdLang:
		if cmd.arg == "" {
			a.out.Println(fmt.Sprintf("  Text language: %s", languageLabel(a.lang)))
			return false
		}
		a.lang = cmd.arg
		a.out.SetLanguage(a.lang)
		a.out.Println(fmt.Sprintf("  Text language set to %s (replies in %s)", a.lang, domain.NormalizeLanguage(a.lang)))
	case cmdHelp:
		a.out.PrintHelp()
	case cmdQuit:
		return true
	case cmdUnknown:
		a.out.Println(fmt.Sprintf("  Unknown command /%s. Type /help for commands.", cmd.arg))
	}
	return false
}

func (a *cliApp) report(t *domain.Turn) {
	if t.Outcome == domain.OutcomeAborted && t.Modality == domain.ModalityAudio {
		a.out.Println("  No speech detected.")
	}
	if a.timing != nil && t.Outcome == domain.OutcomeCompleted {
		a.timing(time.Since(t.StartedAt))
	}
}

// runUI serves the terminal UI until it quits or ctx is cancelled.
func (a *cliApp) runUI(ctx context.Context, ui *display.UI) {
	a.out.PrintHelp()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ui.QuitChan():
			return
		case <-ui.RecordChan():
			if a.handle(ctx, "/rec") {
				return
			}
		case line, ok := <-ui.InputChan():
			if !ok || a.handle(ctx, line) {
				return
			}
		}
	}
}

// runPlain reads commands from r until EOF, /quit or cancellation.
func (a *cliApp) runPlain(ctx context.Context, r io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok || a.handle(ctx, line) {
				return
			}
		}
	}
}

// plainFrontend prints to a writer without styling.
type plainFrontend struct {
	w    io.Writer
	info display.SystemInfo
}

func newPlainFrontend(w io.Writer, info display.SystemInfo) *plainFrontend {
	return &plainFrontend{w: w, info: info}
}

func (p *plainFrontend) Println(a ...interface{}) { fmt.Fprintln(p.w, a...) }

func (p *plainFrontend) PrintHelp() {
	for _, l := range display.HelpLines(p.info) {
		fmt.Fprintln(p.w, l)
	}
}

func (p *plainFrontend) SetLanguage(string) {}

// Package display provides the terminal UI using Bubble Tea.
//
// The [UI] type keeps a status bar and an input prompt at the bottom of
// the terminal. All conversation output is printed above the rendered
// area via Program.Println, so concurrent writes never garble the
// display.
package display

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	busyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Italic(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// BannerStyle is the muted slate used for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// Assistant replies.
	chatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	// What the user said.
	heardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	// Hints and metadata.
	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fcd34d"))

	urgentOutputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fca5a5"))

	userInputEchoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a1a1aa"))
)

const promptText = "you> "

// SystemInfo is the static capability panel shown in the status bar and
// by /help.
type SystemInfo struct {
	Languages []string // "All" when the recognizer auto-detects
	Features  []string
	STT       string
	LLM       string
	TTS       string
}

// DefaultFeatures lists what a turn does.
var DefaultFeatures = []string{
	"Speech-to-Text",
	"Intent Detection",
	"AI Response Generation",
	"Text-to-Speech",
}

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Other goroutines may call
// [UI.Println], [UI.SetStatus] and read [UI.InputChan] and
// [UI.RecordChan] once [UI.WaitReady] returns.
type UI struct {
	program  *tea.Program
	info     SystemInfo
	inputCh  chan string
	recordCh chan struct{}
	readyCh  chan struct{}
	quitCh   chan struct{}
	done     atomic.Bool
}

// NewUI creates the display. Call Run() to start.
func NewUI(info SystemInfo) *UI {
	return &UI{
		info:     info,
		inputCh:  make(chan string, 16),
		recordCh: make(chan struct{}, 1),
		readyCh:  make(chan struct{}),
		quitCh:   make(chan struct{}),
	}
}

// Println prints a line above the prompt. Thread-safe. Falls back to
// fmt.Println when the program is not running.
func (u *UI) Println(a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// Printf prints formatted text above the prompt. Thread-safe.
func (u *UI) Printf(format string, a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Printf(format, a...)
	} else {
		fmt.Printf(format+"\n", a...)
	}
}

// SetStatus shows a stage message next to the spinner. Empty clears it.
func (u *UI) SetStatus(msg string) {
	if u.program != nil && !u.done.Load() {
		u.program.Send(statusMsg(msg))
	}
}

// SetLanguage updates the text-turn language shown in the status bar.
func (u *UI) SetLanguage(lang string) {
	if u.program != nil && !u.done.Load() {
		u.program.Send(languageMsg(lang))
	}
}

// InputChan returns completed user-input lines.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// RecordChan fires when the user presses ctrl+r.
func (u *UI) RecordChan() <-chan struct{} { return u.recordCh }

// Info returns the static system panel.
func (u *UI) Info() SystemInfo { return u.info }

// PrintHelp prints the capability panel and the command list.
func (u *UI) PrintHelp() {
	for _, l := range HelpLines(u.info) {
		u.Println(l)
	}
}

// PrintUserInput echoes the user's typed line into the scrollback.
func (u *UI) PrintUserInput(text string) {
	u.Println(promptStyle.Render("you") + secondaryStyle.Render("> ") + userInputEchoStyle.Render(text))
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	u.program = tea.NewProgram(newModel(u))
	_, err := u.program.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

// HelpLines renders the capability panel and commands as plain lines.
func HelpLines(info SystemInfo) []string {
	langs := strings.Join(info.Languages, ", ")
	if langs == "" {
		langs = "All"
	}
	lines := []string{
		labelStyle.Render("Languages: ") + valueStyle.Render(langs),
		labelStyle.Render("Features:"),
	}
	for _, f := range info.Features {
		lines = append(lines, secondaryStyle.Render("  • ")+primaryStyle.Render(f))
	}
	lines = append(lines,
		labelStyle.Render("System: ")+valueStyle.Render(fmt.Sprintf("stt=%s  llm=%s  tts=%s", info.STT, info.LLM, info.TTS)),
		labelStyle.Render("Commands:"),
		secondaryStyle.Render("  /rec or ctrl+r  record and answer a spoken question"),
		secondaryStyle.Render("  /lang <code>    set the language of typed questions (en, hi)"),
		secondaryStyle.Render("  /help           show this panel"),
		secondaryStyle.Render("  /quit           exit"),
	)
	return lines
}

// ── Bubble Tea model ─────────────────────────────────────────────

type (
	statusMsg   string
	languageMsg string
)

type model struct {
	info     SystemInfo
	input    textinput.Model
	spinner  spinner.Model
	inputCh  chan<- string
	recordCh chan<- struct{}
	readyCh  chan struct{}
	echoFn   func(string)
	status   string
	language string
	width    int
}

func newModel(u *UI) model {
	ti := textinput.New()
	// A plain-text prompt keeps the textinput width math correct;
	// styled prompts add invisible ANSI bytes.
	ti.Prompt = promptText
	ti.PromptStyle = promptStyle
	ti.TextStyle = userInputEchoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60 // updated on first WindowSizeMsg

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(busyStyle))

	return model{
		info:     u.info,
		input:    ti,
		spinner:  sp,
		inputCh:  u.inputCh,
		recordCh: u.recordCh,
		readyCh:  u.readyCh,
		language: "en",
		echoFn:   u.PrintUserInput,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		tea.SetWindowTitle("Polyglot"),
		signalReady(m.readyCh),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyCtrlR:
			select {
			case m.recordCh <- struct{}{}:
			default: // a recording is already queued
			}
			return m, nil
		case tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) == "" {
				return m, nil
			}
			m.inputCh <- v
			// Echo from a Cmd so Update never blocks on Println.
			echoFn := m.echoFn
			return m, func() tea.Msg {
				if echoFn != nil {
					echoFn(v)
				}
				return nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > len(promptText) {
			m.input.Width = msg.Width - len(promptText)
		}
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case languageMsg:
		m.language = string(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.renderBar())
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m model) renderBar() string {
	var stage string
	if m.status != "" {
		stage = m.spinner.View() + " " + busyStyle.Render(m.status)
	} else {
		stage = idleStyle.Render("ready  ·  ctrl+r to speak")
	}

	parts := []string{
		stage,
		labelStyle.Render("lang: ") + valueStyle.Render(m.language),
		labelStyle.Render("stt: ") + valueStyle.Render(m.info.STT),
		labelStyle.Render("llm: ") + valueStyle.Render(m.info.LLM),
		labelStyle.Render("tts: ") + valueStyle.Render(m.info.TTS),
	}
	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "

	w := m.width
	if w <= 0 {
		w = 80
	}
	return barBg.Width(w).Render(content)
}

// ── Helpers ──────────────────────────────────────────────────────

// fmtDuration renders d as "4.2s" or "350ms".
func fmtDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

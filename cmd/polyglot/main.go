// Polyglot is a multilingual voice and text assistant. Each turn is
// transcribed, classified, answered by a hosted model (with canned
// replies when the model is unavailable) and spoken back.
//
// Usage:
//
//	polyglot [-config polyglot.yaml] [-verbose] [-quiet] [-plain] [-no-playback]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/polyglot/internal/config"
	"github.com/hammamikhairi/polyglot/internal/conversation"
	"github.com/hammamikhairi/polyglot/internal/display"
	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/engine"
	"github.com/hammamikhairi/polyglot/internal/logger"
	"github.com/hammamikhairi/polyglot/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run parses flags, wires the services and serves the chosen front-end
// until it exits. Deferred cleanup always runs before it returns.
func run() error {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to a polyglot.yaml config file")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", "", "file to write logs to (\"stderr\" logs to console; default from config)")
	plain := flag.Bool("plain", false, "line-oriented stdin/stdout mode without the terminal UI")
	noPlayback := flag.Bool("no-playback", false, "synthesize replies but do not play them")
	printConfig := flag.Bool("print-config", false, "print the effective configuration and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	if *printConfig {
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	logLevel, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (using normal)\n", err)
	}
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}

	logOut, closeLog := openLogOutput(cfg.Log.File)
	defer closeLog()

	// Third-party libraries log through the stdlib package.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)
	defer log.Sync()

	if cfg.Source != "" {
		log.Info("loaded config file %s", cfg.Source)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metrics := telemetry.NewMetrics()

	comps, err := buildComponents(cfg, log, metrics, *noPlayback)
	if err != nil {
		return err
	}
	defer comps.Close()

	var srv *telemetry.Server
	if cfg.Metrics.Addr != "" {
		srv = telemetry.NewServer(cfg.Metrics.Addr, metrics.Registry, log)
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				log.Error("%v", err)
			}
		}()
	}

	engineOpts := []engine.Option{
		engine.WithCapture(cfg.Capture.Duration, cfg.Capture.SampleRate),
		engine.WithObserver(metrics),
	}

	if *plain {
		svc := comps.services
		svc.Presenter = conversation.NewCLINotifier(log, nil, comps.player)
		eng, err := engine.New(svc, log, engineOpts...)
		if err != nil {
			return err
		}
		if srv != nil {
			srv.SetReady(true)
		}
		app := newApp(eng, newPlainFrontend(os.Stdout, comps.info), log)
		app.runPlain(ctx, os.Stdin)
		return nil
	}

	ui := display.NewUI(comps.info)
	presenter := display.NewPresenter(ui, comps.player, log)

	svc := comps.services
	svc.Presenter = presenter
	eng, err := engine.New(svc, log, engineOpts...)
	if err != nil {
		return err
	}
	if srv != nil {
		srv.SetReady(true)
	}

	app := newApp(eng, ui, log)
	app.timing = presenter.Timing

	fmt.Println(display.RenderBanner())
	fmt.Println(display.BannerStyle.Render("  Press ctrl+r or type /rec to speak, type a message to chat, /help for more."))
	fmt.Println()

	go func() {
		ui.WaitReady()
		app.runUI(ctx, ui)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal; blocks until quit.
	if err := ui.Run(); err != nil {
		log.Error("display: %v", err)
	}
	cancel()
	return nil
}

// openLogOutput returns the log writer for path, creating its directory.
// "stderr" or an empty path logs to the console.
func openLogOutput(path string) (io.Writer, func()) {
	if path == "" || path == "stderr" {
		return os.Stderr, func() {}
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", path, err)
		return os.Stderr, func() {}
	}
	return f, func() { f.Close() }
}

// languageLabel is what the status bar shows for a text-turn language.
func languageLabel(lang string) string {
	if lang == "" {
		return domain.LangEnglish
	}
	return lang
}

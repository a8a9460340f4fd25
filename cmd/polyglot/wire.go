package main

import (
	"fmt"

	"github.com/hammamikhairi/polyglot/internal/audio"
	"github.com/hammamikhairi/polyglot/internal/config"
	"github.com/hammamikhairi/polyglot/internal/conversation"
	"github.com/hammamikhairi/polyglot/internal/display"
	"github.com/hammamikhairi/polyglot/internal/engine"
	"github.com/hammamikhairi/polyglot/internal/gpt"
	"github.com/hammamikhairi/polyglot/internal/logger"
	"github.com/hammamikhairi/polyglot/internal/retry"
	"github.com/hammamikhairi/polyglot/internal/speech"
	"github.com/hammamikhairi/polyglot/internal/telemetry"
)

// playback is the device player; nil with -no-playback.
type playback interface {
	Start(data []byte, contentType string) error
}

// components is the service registry built once at startup. The
// presenter is attached per front-end.
type components struct {
	services engine.Services
	info     display.SystemInfo
	player   playback // nil = print paths, don't play
	closers  []func() error
	log      *logger.Logger
}

// Close releases devices in reverse order of acquisition.
func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.log.Warn("shutdown: %v", err)
		}
	}
}

func buildComponents(cfg *config.Config, log *logger.Logger, metrics *telemetry.Metrics, noPlayback bool) (*components, error) {
	c := &components{log: log}

	// Hosted model: chat, and transcription when stt.backend is groq.
	client := gpt.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, log,
		gpt.WithModel(cfg.LLM.Model),
		gpt.WithTemperature(float64(cfg.LLM.Temperature)),
		gpt.WithMaxTokens(cfg.LLM.MaxTokens),
		gpt.WithTranscriptionModel(cfg.STT.Model),
		gpt.WithHTTPTimeout(cfg.LLM.Timeout),
	)
	if cfg.LLM.APIKey == "" {
		log.Warn("no API key configured (set GROQ_API_KEY): every reply will use the offline table")
	}

	generator := gpt.NewGenerator(client, log,
		gpt.WithBreaker(cfg.LLM.Breaker.MaxFailures, cfg.LLM.Breaker.OpenTimeout),
		gpt.WithStateHook(metrics.BreakerChanged),
	)

	var recognizer speech.Recognizer = client
	sttName := cfg.STT.Backend + "/" + cfg.STT.Model
	if cfg.STT.Backend == config.STTWhisperCLI {
		recognizer = speech.NewWhisperCLI(cfg.STT.WhisperBin, cfg.STT.WhisperModel, log)
		sttName = "whisper.cpp"
	}
	transcriber := speech.NewTranscription(recognizer, log, speech.WithErrorHook(metrics.TranscriptionFailed))

	policy := retry.Policy{
		MaxAttempts: cfg.Cleanup.MaxAttempts,
		BaseDelay:   cfg.Cleanup.BaseDelay,
		Multiplier:  cfg.Cleanup.Multiplier,
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("cleanup policy: %w", err)
	}
	store := audio.NewTempStore(cfg.TempDir, retry.New(policy), log, audio.WithLeakHook(metrics.CleanupFailed))

	var backend speech.TTSBackend
	switch cfg.TTS.Backend {
	case config.TTSAzure:
		backend = speech.NewAzureClient(cfg.TTS.AzureKey, cfg.TTS.AzureRegion, log)
	default:
		backend = speech.NewGoogleTTS(log)
	}
	cache := speech.NewAudioCache(backend.Name(), cfg.TTS.CacheDir, cfg.TTS.DiskCache, log)
	synth := speech.NewSynthesizer(backend, cache, store, log)
	c.closers = append(c.closers, func() error {
		hits, misses := cache.Stats()
		log.Info("tts cache: %d hits, %d misses, %d entries", hits, misses, cache.Len())
		return nil
	})

	c.services = engine.Services{
		Transcriber: transcriber,
		Classifier:  conversation.NewKeywordClassifier(log),
		Responder:   generator,
		Fallbacks:   conversation.DefaultFallbacks,
		Synthesizer: synth,
		Store:       store,
	}

	// A missing microphone only disables audio turns.
	if rec, err := audio.NewRecorder(log); err != nil {
		log.Warn("audio capture unavailable, /rec disabled: %v", err)
	} else {
		c.services.Recorder = rec
		c.closers = append(c.closers, rec.Close)
	}

	// Without a player the presenters print the reply's file path.
	if !noPlayback {
		p := speech.NewPlayer(log)
		c.player = p
		c.closers = append(c.closers, p.Close)
	}

	c.info = display.SystemInfo{
		Languages: []string{"All"},
		Features:  display.DefaultFeatures,
		STT:       sttName,
		LLM:       client.Model(),
		TTS:       backend.Name(),
	}

	log.Info("services ready (stt=%s, llm=%s, tts=%s, recorder=%v)",
		sttName, client.Model(), backend.Name(), c.services.Recorder != nil)
	return c, nil
}

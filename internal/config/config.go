// Package config loads polyglot's settings from defaults, an optional
// YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	STTGroq       = "groq"
	STTWhisperCLI = "whisper-cli"
	TTSGoogle     = "gtts"
	TTSAzure      = "azure"
)

// Config is the root configuration.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	STT     STTConfig     `mapstructure:"stt" yaml:"stt"`
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
	TTS     TTSConfig     `mapstructure:"tts" yaml:"tts"`
	Cleanup CleanupConfig `mapstructure:"cleanup" yaml:"cleanup"`
	TempDir string        `mapstructure:"temp_dir" yaml:"temp_dir"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`

	// Source is the config file that was read, empty when none was found.
	Source string `mapstructure:"-" yaml:"-"`
}

// LLMConfig configures the hosted chat model.
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Model       string        `mapstructure:"model" yaml:"model"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Breaker     BreakerConfig `mapstructure:"breaker" yaml:"breaker"`
}

// BreakerConfig configures the primary-path circuit breaker.
type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures" yaml:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" yaml:"open_timeout"`
}

// STTConfig selects the speech recognizer.
type STTConfig struct {
	Backend      string `mapstructure:"backend" yaml:"backend"` // "groq" or "whisper-cli"
	Model        string `mapstructure:"model" yaml:"model"`
	WhisperBin   string `mapstructure:"whisper_bin" yaml:"whisper_bin"`
	WhisperModel string `mapstructure:"whisper_model" yaml:"whisper_model"`
}

// CaptureConfig is the recording length and rate.
type CaptureConfig struct {
	Duration   time.Duration `mapstructure:"duration" yaml:"duration"`
	SampleRate int           `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// TTSConfig selects the speech synthesizer.
type TTSConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"` // "gtts" or "azure"
	CacheDir    string `mapstructure:"cache_dir" yaml:"cache_dir"`
	DiskCache   bool   `mapstructure:"disk_cache" yaml:"disk_cache"`
	AzureKey    string `mapstructure:"azure_key" yaml:"azure_key"`
	AzureRegion string `mapstructure:"azure_region" yaml:"azure_region"`
}

// CleanupConfig is the retry policy for deleting recorded input.
type CleanupConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	Multiplier  float64       `mapstructure:"multiplier" yaml:"multiplier"`
}

// MetricsConfig enables the telemetry server when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // off, normal, verbose
	File  string `mapstructure:"file" yaml:"file"`   // "stderr" logs to the console
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "llama-3.1-8b-instant")
	v.SetDefault("llm.temperature", 0.5)
	v.SetDefault("llm.max_tokens", 250)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.breaker.max_failures", 3)
	v.SetDefault("llm.breaker.open_timeout", "30s")
	v.SetDefault("stt.backend", STTGroq)
	v.SetDefault("stt.model", "whisper-large-v3")
	v.SetDefault("stt.whisper_bin", "whisper-cli")
	v.SetDefault("stt.whisper_model", "bin/ggml-medium.bin")
	v.SetDefault("capture.duration", "5s")
	v.SetDefault("capture.sample_rate", 16000)
	v.SetDefault("tts.backend", TTSGoogle)
	v.SetDefault("tts.cache_dir", ".polyglot-cache")
	v.SetDefault("tts.disk_cache", true)
	v.SetDefault("tts.azure_key", "")
	v.SetDefault("tts.azure_region", "")
	v.SetDefault("cleanup.max_attempts", 5)
	v.SetDefault("cleanup.base_delay", "100ms")
	v.SetDefault("cleanup.multiplier", 2.0)
	v.SetDefault("temp_dir", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "normal")
	v.SetDefault("log.file", ".polyglot-logs/polyglot.log")
}

// Load reads the configuration. If configFile is empty, polyglot.yaml is
// searched in the working directory and $HOME/.config/polyglot; a missing
// file is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("polyglot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/polyglot")
		}
	}

	// POLYGLOT_LLM_MODEL, POLYGLOT_CAPTURE_DURATION, ...
	v.SetEnvPrefix("POLYGLOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider credentials keep their conventional names.
	_ = v.BindEnv("llm.api_key", "POLYGLOT_LLM_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("tts.azure_key", "POLYGLOT_TTS_AZURE_KEY", "AZURE_SPEECH_KEY")
	_ = v.BindEnv("tts.azure_region", "POLYGLOT_TTS_AZURE_REGION", "AZURE_SPEECH_REGION")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()

	cfg.LLM.APIKey = resolveEnvRef(cfg.LLM.APIKey)
	cfg.TTS.AzureKey = resolveEnvRef(cfg.TTS.AzureKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and backend names.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.LLM.MaxTokens > 0, "llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	check(c.LLM.Temperature >= 0 && c.LLM.Temperature <= 2, "llm.temperature must be in [0, 2], got %v", c.LLM.Temperature)
	check(c.LLM.Timeout > 0, "llm.timeout must be positive")
	check(c.LLM.Breaker.MaxFailures >= 1, "llm.breaker.max_failures must be at least 1")
	check(c.LLM.Breaker.OpenTimeout > 0, "llm.breaker.open_timeout must be positive")
	check(c.STT.Backend == STTGroq || c.STT.Backend == STTWhisperCLI, "stt.backend %q is not one of groq, whisper-cli", c.STT.Backend)
	check(c.Capture.Duration > 0, "capture.duration must be positive")
	check(c.Capture.SampleRate > 0, "capture.sample_rate must be positive, got %d", c.Capture.SampleRate)
	check(c.TTS.Backend == TTSGoogle || c.TTS.Backend == TTSAzure, "tts.backend %q is not one of gtts, azure", c.TTS.Backend)
	check(c.Cleanup.MaxAttempts >= 1, "cleanup.max_attempts must be at least 1, got %d", c.Cleanup.MaxAttempts)
	check(c.Cleanup.BaseDelay >= 0, "cleanup.base_delay must not be negative")
	check(c.Cleanup.Multiplier >= 1, "cleanup.multiplier must be at least 1, got %v", c.Cleanup.Multiplier)

	if c.TTS.Backend == TTSAzure {
		check(c.TTS.AzureKey != "" && c.TTS.AzureRegion != "", "tts.backend azure needs AZURE_SPEECH_KEY and AZURE_SPEECH_REGION")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// YAML renders the effective configuration with secrets masked.
func (c *Config) YAML() ([]byte, error) {
	masked := *c
	masked.LLM.APIKey = mask(c.LLM.APIKey)
	masked.TTS.AzureKey = mask(c.TTS.AzureKey)
	return yaml.Marshal(&masked)
}

func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return secret[:4] + "****"
	}
}

// resolveEnvRef replaces "${VAR_NAME}" with the variable's value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		if envVal := os.Getenv(val[2 : len(val)-1]); envVal != "" {
			return envVal
		}
	}
	return val
}

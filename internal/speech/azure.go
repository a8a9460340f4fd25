package speech

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/logger"
)

// Compile-time interface check.
var _ TTSBackend = (*AzureClient)(nil)

// AzureOption configures the Azure TTS client.
type AzureOption func(*AzureClient)

// WithVoice sets the voice used for a normalized language code.
func WithVoice(lang, voice string) AzureOption {
	return func(c *AzureClient) {
		c.voices[lang] = voice
	}
}

// WithAudioFormat sets the audio output format.
func WithAudioFormat(format string) AzureOption {
	return func(c *AzureClient) {
		c.format = format
	}
}

// WithHTTPTimeout sets the HTTP client timeout for TTS requests.
func WithHTTPTimeout(d time.Duration) AzureOption {
	return func(c *AzureClient) {
		c.httpClient.Timeout = d
	}
}

// WithEndpoint overrides the regional endpoint URL.
func WithEndpoint(u string) AzureOption {
	return func(c *AzureClient) {
		c.endpoint = u
	}
}

// AzureClient handles text-to-speech synthesis via Azure Cognitive Services.
type AzureClient struct {
	subscriptionKey string
	endpoint        string
	voices          map[string]string // normalized language -> voice name
	format          string
	httpClient      *http.Client
	log             *logger.Logger
}

// NewAzureClient creates an Azure TTS client with the given credentials.
func NewAzureClient(key, region string, log *logger.Logger, opts ...AzureOption) *AzureClient {
	c := &AzureClient{
		subscriptionKey: key,
		endpoint:        fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region),
		voices: map[string]string{
			domain.LangEnglish: DefaultVoiceEnglish,
			domain.LangHindi:   DefaultVoiceHindi,
		},
		format: DefaultAudioFormat,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements TTSBackend.
func (c *AzureClient) Name() string { return "azure" }

// Voice returns the voice for a normalized language, defaulting to English.
func (c *AzureClient) Voice(lang string) string {
	if v, ok := c.voices[lang]; ok {
		return v
	}
	return c.voices[domain.LangEnglish]
}

// Synthesize converts text to MP3 audio in the given language.
func (c *AzureClient) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	ssml, err := c.buildSSML(text, lang)
	if err != nil {
		return nil, err
	}
	c.log.Debug("azure tts: synthesizing %d chars with voice %s", len(text), c.Voice(lang))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("azure tts: creating request: %w", err)
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", c.format)
	req.Header.Set("User-Agent", "Polyglot/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azure tts: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure tts: error %d: %s", resp.StatusCode, string(body))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("azure tts: reading audio data: %w", err)
	}

	c.log.Debug("azure tts: got %d bytes of audio", len(audioData))
	return audioData, nil
}

// buildSSML creates SSML markup for the synthesis request. The text is
// XML-escaped.
func (c *AzureClient) buildSSML(text, lang string) ([]byte, error) {
	voice := c.Voice(lang)
	xmlLang := "en-US"
	if lang == domain.LangHindi {
		xmlLang = "hi-IN"
	}

	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(text)); err != nil {
		return nil, fmt.Errorf("azure tts: escape text: %w", err)
	}

	return []byte(fmt.Sprintf(
		`<speak version='1.0' xml:lang='%s'><voice xml:lang='%s' name='%s'>%s</voice></speak>`,
		xmlLang, xmlLang, voice, escaped.String(),
	)), nil
}

// Package gpt provides the OpenAI-compatible client used for the primary
// reply path and for hosted speech recognition, plus the Generator that
// turns chat failures into fallback replies.
package gpt

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/logger"
)

// Defaults for the hosted model.
const (
	DefaultBaseURL            = "https://api.groq.com/openai/v1"
	DefaultModel              = "llama-3.1-8b-instant"
	DefaultTemperature        = 0.5
	DefaultMaxTokens          = 250
	DefaultTranscriptionModel = "whisper-large-v3"
)

// ── Wire types ───────────────────────────────────────────────────

// Role constants.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Message is a single chat-completion message.
type Message struct {
	Role    string
	Content string
}

// TextMessage is a convenience constructor for a plain-text message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}

// ── Client ───────────────────────────────────────────────────────

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithModel overrides the default chat model name.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithTranscriptionModel overrides the speech recognition model name.
func WithTranscriptionModel(model string) ClientOption {
	return func(c *Client) { c.sttModel = model }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) ClientOption {
	return func(c *Client) { c.temperature = t }
}

// WithMaxTokens sets the response token limit.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) { c.maxTokens = n }
}

// WithHTTPTimeout sets the HTTP client timeout.
func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// Client talks to an OpenAI-compatible API (Groq by default).
type Client struct {
	api         *openai.Client
	apiKey      string
	baseURL     string
	model       string
	sttModel    string
	temperature float64
	maxTokens   int
	http        *http.Client
	log         *logger.Logger
}

// NewClient creates a client.
//   - baseURL: API root, e.g. "https://api.groq.com/openai/v1"
//   - apiKey:  bearer token; when empty every call fails with ErrNoAPIKey
func NewClient(baseURL, apiKey string, log *logger.Logger, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       DefaultModel,
		sttModel:    DefaultTranscriptionModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		http:        &http.Client{Timeout: 30 * time.Second},
		log:         log,
	}
	for _, o := range opts {
		o(c)
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = c.baseURL
	cfg.HTTPClient = c.http
	c.api = openai.NewClientWithConfig(cfg)
	return c
}

// Model returns the chat model name.
func (c *Client) Model() string { return c.model }

// Chat sends a chat-completion request and returns the assistant's
// reply exactly as received.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("gpt: chat: %w", domain.ErrNoAPIKey)
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: float32(c.temperature),
		MaxTokens:   c.maxTokens,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	c.log.Debug("gpt: POST %s/chat/completions (model=%s, %d messages)", c.baseURL, c.model, len(messages))

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("gpt: request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("gpt: no choices: %w", domain.ErrEmptyResponse)
	}

	reply := resp.Choices[0].Message.Content
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("gpt: blank reply: %w", domain.ErrEmptyResponse)
	}
	c.log.Debug("gpt: reply (%d chars): %s", len(reply), truncate(reply, 120))
	return reply, nil
}

// Transcribe sends an audio file to the speech recognition endpoint and
// returns the text and the language the service reports (for Groq and
// OpenAI a lowercase name such as "hindi").
func (c *Client) Transcribe(ctx context.Context, path string) (text, language string, err error) {
	if c.apiKey == "" {
		return "", "", fmt.Errorf("gpt: transcribe: %w", domain.ErrNoAPIKey)
	}

	c.log.Debug("gpt: POST %s/audio/transcriptions (model=%s, file=%s)", c.baseURL, c.sttModel, path)

	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.sttModel,
		FilePath: path,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return "", "", fmt.Errorf("gpt: transcription failed: %w", err)
	}
	return resp.Text, resp.Language, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

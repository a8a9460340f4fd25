package gpt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/logger"
)

// Compile-time interface check.
var _ domain.Responder = (*Generator)(nil)

// Chatter is the part of Client the Generator needs.
type Chatter interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*generatorConfig)

type generatorConfig struct {
	prompt      string
	maxFailures uint32
	openTimeout time.Duration
	onState     func(from, to string)
}

// WithSystemPrompt replaces SystemPrompt.
func WithSystemPrompt(p string) GeneratorOption {
	return func(c *generatorConfig) { c.prompt = p }
}

// WithBreaker sets how many consecutive failures open the circuit and
// how long it stays open before a probe request is let through.
func WithBreaker(maxFailures uint32, openTimeout time.Duration) GeneratorOption {
	return func(c *generatorConfig) {
		c.maxFailures = maxFailures
		c.openTimeout = openTimeout
	}
}

// WithStateHook is called whenever the circuit changes state.
func WithStateHook(fn func(from, to string)) GeneratorOption {
	return func(c *generatorConfig) { c.onState = fn }
}

// Generator is the primary reply path. Each call makes at most one
// request; any failure, including an open circuit, comes back as a
// Fallback reply so the caller can use a canned answer.
type Generator struct {
	client  Chatter
	prompt  string
	breaker *gobreaker.CircuitBreaker
	log     *logger.Logger
}

// NewGenerator creates a Generator over client.
func NewGenerator(client Chatter, log *logger.Logger, opts ...GeneratorOption) *Generator {
	cfg := generatorConfig{
		prompt:      SystemPrompt,
		maxFailures: 3,
		openTimeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.maxFailures == 0 {
		cfg.maxFailures = 1
	}

	g := &Generator{client: client, prompt: cfg.prompt, log: log}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     cfg.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.maxFailures
		},
		IsSuccessful: func(err error) bool {
			// A missing key or a cancelled turn says nothing about the
			// health of the service.
			return err == nil ||
				errors.Is(err, domain.ErrNoAPIKey) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("gpt: circuit %s %s -> %s", name, from, to)
			if cfg.onState != nil {
				cfg.onState(from.String(), to.String())
			}
		},
	})
	return g
}

// Respond asks the model for a reply to text. It never returns an error:
// failures are reported as domain.Fallback with the cause.
func (g *Generator) Respond(ctx context.Context, text string) domain.Reply {
	messages := []Message{
		TextMessage(RoleSystem, g.prompt),
		TextMessage(RoleUser, text),
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.client.Chat(ctx, messages)
	})
	if err != nil {
		g.log.Warn("gpt: primary reply failed, using fallback: %v", err)
		return domain.Fallback(fmt.Errorf("gpt: respond: %w", err))
	}

	reply, _ := out.(string)
	return domain.Ok(reply)
}

// State returns the circuit state ("closed", "half-open", "open").
func (g *Generator) State() string {
	return g.breaker.State().String()
}

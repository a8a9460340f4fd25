package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hammamikhairi/polyglot/internal/logger"
)

// Compile-time interface check.
var _ TTSBackend = (*GoogleTTS)(nil)

// DefaultGoogleTTSURL is the translate text-to-speech endpoint.
const DefaultGoogleTTSURL = "https://translate.google.com/translate_tts"

// GoogleOption configures the GoogleTTS client.
type GoogleOption func(*GoogleTTS)

// WithGoogleURL points the client at a different endpoint.
func WithGoogleURL(u string) GoogleOption {
	return func(g *GoogleTTS) { g.endpoint = u }
}

// WithGoogleHTTPTimeout sets the HTTP client timeout.
func WithGoogleHTTPTimeout(d time.Duration) GoogleOption {
	return func(g *GoogleTTS) { g.http.Timeout = d }
}

// GoogleTTS synthesizes MP3 speech through the translate endpoint. Text
// longer than the endpoint limit is split on word boundaries and the MP3
// segments are concatenated.
type GoogleTTS struct {
	endpoint string
	http     *http.Client
	log      *logger.Logger
}

// NewGoogleTTS creates the client.
func NewGoogleTTS(log *logger.Logger, opts ...GoogleOption) *GoogleTTS {
	g := &GoogleTTS{
		endpoint: DefaultGoogleTTSURL,
		http:     &http.Client{Timeout: defaultHTTPTimeout},
		log:      log,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Name implements TTSBackend.
func (g *GoogleTTS) Name() string { return "gtts" }

// Synthesize implements TTSBackend. lang must already be normalized.
func (g *GoogleTTS) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	chunks := splitText(text, googleChunkLimit)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("gtts: nothing to synthesize")
	}

	g.log.Debug("gtts: synthesizing %d chars in %d chunk(s), lang=%s", len(text), len(chunks), lang)

	var out bytes.Buffer
	for i, chunk := range chunks {
		data, err := g.fetch(ctx, chunk, lang, i, len(chunks))
		if err != nil {
			return nil, err
		}
		out.Write(data)
	}
	return out.Bytes(), nil
}

func (g *GoogleTTS) fetch(ctx context.Context, chunk, lang string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", chunk)
	q.Set("tl", lang)
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))
	q.Set("client", "tw-ob")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("gtts: create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (polyglot)")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gtts: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gtts: error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gtts: read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("gtts: empty audio for chunk %d", idx)
	}
	return data, nil
}

// splitText breaks text into pieces of at most limit runes, preferring
// whitespace boundaries. Words longer than limit are cut.
func splitText(text string, limit int) []string {
	var (
		chunks []string
		cur    []rune
	)
	flush := func() {
		if s := strings.TrimSpace(string(cur)); s != "" {
			chunks = append(chunks, s)
		}
		cur = cur[:0]
	}

	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > limit {
			flush()
			chunks = append(chunks, string(w[:limit]))
			w = w[limit:]
		}
		need := len(w)
		if len(cur) > 0 {
			need++ // separating space
		}
		if len(cur)+need > limit {
			flush()
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, w...)
	}
	flush()
	return chunks
}

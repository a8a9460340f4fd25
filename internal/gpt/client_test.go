package gpt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hammamikhairi/polyglot/internal/domain"
	"github.com/hammamikhairi/polyglot/internal/logger"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatServer(t *testing.T, reply string, got *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		if got != nil {
			if err := json.Unmarshal(body, got); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  DefaultModel,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": reply},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatSendsConfiguredRequest(t *testing.T) {
	var req chatRequest
	srv := chatServer(t, "Hello!", &req)

	log := logger.New(logger.LevelOff, nil)
	c := NewClient(srv.URL+"/v1", "test-key", log)

	reply, err := c.Chat(context.Background(), []Message{
		TextMessage(RoleSystem, SystemPrompt),
		TextMessage(RoleUser, "hi"),
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "Hello!" {
		t.Fatalf("reply = %q", reply)
	}

	if req.Model != "llama-3.1-8b-instant" {
		t.Errorf("model = %q", req.Model)
	}
	if req.Temperature != 0.5 {
		t.Errorf("temperature = %v", req.Temperature)
	}
	if req.MaxTokens != 250 {
		t.Errorf("max_tokens = %d", req.MaxTokens)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "hi" {
		t.Errorf("messages = %+v", req.Messages)
	}
	if !strings.Contains(req.Messages[0].Content, "Devanagari") {
		t.Errorf("system prompt missing script rule: %q", req.Messages[0].Content)
	}
}

func TestChatWithoutKey(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	c := NewClient("http://127.0.0.1:1", "", log)

	_, err := c.Chat(context.Background(), []Message{TextMessage(RoleUser, "hi")})
	if !errors.Is(err, domain.ErrNoAPIKey) {
		t.Fatalf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestChatEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","choices":[]}`)
	}))
	defer srv.Close()

	log := logger.New(logger.LevelOff, nil)
	c := NewClient(srv.URL, "test-key", log)

	_, err := c.Chat(context.Background(), []Message{TextMessage(RoleUser, "hi")})
	if !errors.Is(err, domain.ErrEmptyResponse) {
		t.Fatalf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestChatBlankContent(t *testing.T) {
	for _, content := range []string{"", "  \n "} {
		srv := chatServer(t, content, nil)
		c := NewClient(srv.URL+"/v1", "test-key", logger.New(logger.LevelOff, nil))

		_, err := c.Chat(context.Background(), []Message{TextMessage(RoleUser, "hi")})
		if !errors.Is(err, domain.ErrEmptyResponse) {
			t.Fatalf("content %q: err = %v, want ErrEmptyResponse", content, err)
		}
	}
}

func TestGeneratorFallsBackOnBlankContent(t *testing.T) {
	srv := chatServer(t, "", nil)
	log := logger.New(logger.LevelOff, nil)
	g := NewGenerator(NewClient(srv.URL+"/v1", "test-key", log), log)

	r := g.Respond(context.Background(), "hello")
	if !r.IsFallback() {
		t.Fatalf("source = %s, text = %q, want fallback", r.Source, r.Text)
	}
	if !errors.Is(r.Reason, domain.ErrEmptyResponse) {
		t.Fatalf("reason = %v, want ErrEmptyResponse", r.Reason)
	}
}

func TestTranscribeVerboseJSON(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q", got)
		}
		if got := r.FormValue("model"); got != "whisper-large-v3" {
			t.Errorf("model = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"task":"transcribe","language":"hindi","duration":1.5,"text":"namaste"}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "in.wav")
	if err := os.WriteFile(path, []byte("RIFF....WAVE"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := logger.New(logger.LevelOff, nil)
	c := NewClient(srv.URL+"/v1", "test-key", log)

	text, lang, err := c.Transcribe(context.Background(), path)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "namaste" || lang != "hindi" {
		t.Fatalf("got (%q, %q)", text, lang)
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d", hits.Load())
	}
}

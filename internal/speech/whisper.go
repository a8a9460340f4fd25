package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hammamikhairi/polyglot/internal/logger"
)

// Compile-time interface check.
var _ Recognizer = (*WhisperCLI)(nil)

// WhisperCLI runs a local whisper.cpp binary on a WAV file with language
// auto-detection and reads back its JSON output.
type WhisperCLI struct {
	bin   string
	model string
	log   *logger.Logger
}

// NewWhisperCLI creates a local recognizer.
//   - bin:   path to the whisper-cli executable
//   - model: path to the GGML model file
func NewWhisperCLI(bin, model string, log *logger.Logger) *WhisperCLI {
	if _, err := exec.LookPath(bin); err != nil {
		log.Error("stt: whisper binary %q not found in PATH: %v", bin, err)
	}
	return &WhisperCLI{bin: bin, model: model, log: log}
}

// whisperOutput is the subset of whisper.cpp's -oj output we read.
type whisperOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe implements Recognizer.
func (w *WhisperCLI) Transcribe(ctx context.Context, path string) (string, string, error) {
	outDir, err := os.MkdirTemp("", "polyglot-whisper-*")
	if err != nil {
		return "", "", fmt.Errorf("whisper: temp dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	outBase := filepath.Join(outDir, "out")
	args := []string{
		"-m", w.model,
		"-f", path,
		"-l", "auto",
		"-oj",
		"-of", outBase,
		"-np",
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, w.bin, args...)
	cmd.Stderr = &stderr

	w.log.Debug("whisper: %s %s", w.bin, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return "", "", fmt.Errorf("whisper: run %s: %w (%s)", w.bin, err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(outBase + ".json")
	if err != nil {
		return "", "", fmt.Errorf("whisper: read output: %w", err)
	}
	return parseWhisperJSON(data)
}

func parseWhisperJSON(data []byte) (string, string, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return "", "", fmt.Errorf("whisper: decode output: %w", err)
	}
	var b strings.Builder
	for _, seg := range out.Transcription {
		b.WriteString(seg.Text)
	}
	return stripWhisperMarkers(b.String()), out.Result.Language, nil
}

// whisperTag matches the tags whisper.cpp emits in place of speech, such
// as "[BLANK_AUDIO]" or "[MUSIC]". Only upper case, underscores and spaces.
var whisperTag = regexp.MustCompile(`\[[A-Z_ ]+\]`)

// whisperTimestamp matches "[00:00:00.000 --> 00:00:05.000]".
var whisperTimestamp = regexp.MustCompile(`\[\d{2}:\d{2}[:.\d]*\s*-->\s*\d{2}:\d{2}[:.\d]*\]`)

var multiSpace = regexp.MustCompile(`\s+`)

// stripWhisperMarkers removes whisper.cpp markers and collapses
// whitespace. Everything else the recognizer heard is kept.
func stripWhisperMarkers(s string) string {
	s = whisperTimestamp.ReplaceAllString(s, " ")
	s = whisperTag.ReplaceAllString(s, " ")
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

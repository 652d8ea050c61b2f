package tts_service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SpeechService turns text into MP3 audio.
type SpeechService interface {
	SynthesizeSpeech(ctx context.Context, text string) ([]byte, error)
}

var ErrNothingToSay = errors.New("no speakable text after sanitization")

var (
	headingMarks = regexp.MustCompile(`#+\s*`)
	emphasis     = regexp.MustCompile(`\*+`)
	bulletMarks  = regexp.MustCompile(`(?m)^\s*[\-\*\+]\s+`)
	numberMarks  = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
)

// SanitizeForSpeech strips markdown that would otherwise be read aloud:
// heading hashes, emphasis asterisks, list bullets and list numbers.
// Passes repeat until nothing changes, so nested markers like "- - x" are
// fully removed and sanitizing a second time is a no-op.
func SanitizeForSpeech(text string) string {
	for {
		next := headingMarks.ReplaceAllString(text, "")
		next = emphasis.ReplaceAllString(next, "")
		next = bulletMarks.ReplaceAllString(next, "")
		next = numberMarks.ReplaceAllString(next, "")
		next = strings.TrimSpace(next)
		if next == text {
			return next
		}
		text = next
	}
}

// Narrator sanitizes text, synthesizes it and stores the audio under
// <storageDir>/audio. Paths it returns are public URL paths under
// /data/audio.
type Narrator struct {
	speech     SpeechService
	storageDir string
	logger     *slog.Logger
}

func NewNarrator(speech SpeechService, storageDir string, logger *slog.Logger) *Narrator {
	return &Narrator{speech: speech, storageDir: storageDir, logger: logger}
}

func (n *Narrator) Narrate(ctx context.Context, text string) (string, error) {
	clean := SanitizeForSpeech(text)
	if clean == "" {
		return "", ErrNothingToSay
	}

	start := time.Now()
	audio, err := n.speech.SynthesizeSpeech(ctx, clean)
	if err != nil {
		return "", fmt.Errorf("speech synthesis failed: %w", err)
	}
	if len(audio) == 0 {
		return "", errors.New("speech synthesis returned no audio")
	}

	directory := filepath.Join(n.storageDir, "audio")
	if err := os.MkdirAll(directory, 0755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}

	filename := uuid.NewString() + ".mp3"
	if err := os.WriteFile(filepath.Join(directory, filename), audio, 0644); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}

	n.logger.Info("Audio generated",
		slog.String("file", filename),
		slog.Int("size", len(audio)),
		slog.Int("text_length", len(clean)),
		slog.Duration("duration", time.Since(start)))

	return "/data/audio/" + filename, nil
}

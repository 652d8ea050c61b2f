package tts_service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSanitizeForSpeech(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "heading", input: "## Overview\nText", expected: "Overview\nText"},
		{name: "emphasis", input: "This is **bold** and *italic*.", expected: "This is bold and italic."},
		{name: "bullets", input: "Items:\n- first\n+ second\n  - third", expected: "Items:\nfirst\nsecond\nthird"},
		{name: "nested markers", input: "- - nested\n1. 2. deep", expected: "nested\ndeep"},
		{name: "numbered", input: "Steps:\n1. install\n2. run", expected: "Steps:\ninstall\nrun"},
		{name: "surrounding space", input: "   plain text \n", expected: "plain text"},
		{name: "only markup", input: "### ***", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeForSpeech(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, SanitizeForSpeech(got), "sanitizing twice must not change the result")
		})
	}
}

func TestNarrate(t *testing.T) {
	dir := t.TempDir()
	mock := &MockSpeechService{}
	n := NewNarrator(mock, dir, discardLogger())

	path, err := n.Narrate(context.Background(), "# Summary\nThe **service** uses PostgreSQL.")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, "/data/audio/"))
	assert.True(t, strings.HasSuffix(path, ".mp3"))
	assert.Equal(t, []string{"Summary\nThe service uses PostgreSQL."}, mock.Texts())

	data, err := os.ReadFile(filepath.Join(dir, "audio", filepath.Base(path)))
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3mock-audio"), data)
}

func TestNarrate_Failures(t *testing.T) {
	dir := t.TempDir()

	_, err := NewNarrator(&MockSpeechService{}, dir, discardLogger()).Narrate(context.Background(), "**")
	assert.ErrorIs(t, err, ErrNothingToSay)

	boom := errors.New("quota exceeded")
	failing := &MockSpeechService{
		SynthesizeSpeechFunc: func(ctx context.Context, text string) ([]byte, error) { return nil, boom },
	}
	_, err = NewNarrator(failing, dir, discardLogger()).Narrate(context.Background(), "hello")
	assert.ErrorIs(t, err, boom)

	entries, _ := os.ReadDir(filepath.Join(dir, "audio"))
	assert.Empty(t, entries)
}

func TestElevenLabsService(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/voice-1", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["text"])
		assert.Equal(t, elevenLabsDefaultModel, body["model_id"])

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	s := NewElevenLabsService("secret", "voice-1", discardLogger())
	s.apiURL = server.URL

	audio, err := s.SynthesizeSpeech(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), audio)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestElevenLabsService_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		expectedCalls int32
	}{
		{name: "quota is not retried", status: http.StatusTooManyRequests, expectedCalls: 1},
		{name: "server error is retried", status: http.StatusInternalServerError, expectedCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"detail": {"message": "nope", "status": "quota_exceeded"}}`))
			}))
			defer server.Close()

			s := NewElevenLabsService("secret", "voice-1", discardLogger())
			s.apiURL = server.URL
			s.retryDelay = time.Millisecond

			_, err := s.SynthesizeSpeech(context.Background(), "hello")
			require.Error(t, err)

			var httpErr *ElevenLabsHttpError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, "nope", httpErr.Message)
			assert.Equal(t, tt.expectedCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestElevenLabsService_MissingKey(t *testing.T) {
	s := NewElevenLabsService("", "voice-1", discardLogger())
	_, err := s.SynthesizeSpeech(context.Background(), "hello")

	var httpErr *ElevenLabsHttpError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
}

func TestOpenAISpeechService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["input"])
		assert.Equal(t, "nova", body["voice"])
		assert.Equal(t, "mp3", body["response_format"])

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("openai-mp3"))
	}))
	defer server.Close()

	s := NewOpenAISpeechService("test-key", "nova", discardLogger(),
		option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))

	audio, err := s.SynthesizeSpeech(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("openai-mp3"), audio)
}

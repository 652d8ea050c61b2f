package tts_service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAISpeechService uses the OpenAI audio speech endpoint.
type OpenAISpeechService struct {
	client *openai.Client
	voice  string
	logger *slog.Logger
}

func NewOpenAISpeechService(apiKey, voice string, logger *slog.Logger, opts ...option.RequestOption) *OpenAISpeechService {
	clientOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(clientOpts...)
	if voice == "" {
		voice = "alloy"
	}
	return &OpenAISpeechService{client: &client, voice: voice, logger: logger}
}

func (s *OpenAISpeechService) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModelGPT4oMiniTTS,
		Voice:          openai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		s.logger.Error("Error calling OpenAI speech API",
			slog.String("voice", s.voice),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("openai speech call failed: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech audio: %w", err)
	}
	return audio, nil
}

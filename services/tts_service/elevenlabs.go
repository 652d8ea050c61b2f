package tts_service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	elevenLabsAPIURL       = "https://api.elevenlabs.io/v1/text-to-speech"
	elevenLabsDefaultModel = "eleven_multilingual_v2"
)

type ElevenLabsService struct {
	httpClient    *http.Client
	logger        *slog.Logger
	apiURL        string
	apiKey        string
	voiceID       string
	modelID       string
	voiceSettings VoiceSettings

	maxRetries int
	retryDelay time.Duration
}

type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

func NewElevenLabsService(apiKey, voiceID string, logger *slog.Logger) *ElevenLabsService {
	return &ElevenLabsService{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
		apiURL:     elevenLabsAPIURL,
		apiKey:     apiKey,
		voiceID:    voiceID,
		modelID:    elevenLabsDefaultModel,
		voiceSettings: VoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			UseSpeakerBoost: true,
		},
		maxRetries: 3,
		retryDelay: 5 * time.Second,
	}
}

func (s *ElevenLabsService) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		audio, err := s.callElevenLabs(ctx, text)
		if err == nil {
			return audio, nil
		}

		if httpErr, ok := err.(*ElevenLabsHttpError); ok {
			if httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode == http.StatusUnauthorized {
				s.logger.Error("ElevenLabs request rejected",
					slog.String("error_type", httpErr.ErrorType),
					slog.String("error_message", httpErr.Message),
					slog.Int("status_code", httpErr.StatusCode))
				return nil, err
			}

			s.logger.Error("ElevenLabs API error",
				slog.Int("attempt", attempt),
				slog.Int("status_code", httpErr.StatusCode),
				slog.String("error_type", httpErr.ErrorType),
				slog.String("error_message", httpErr.Message))
		}

		if attempt == s.maxRetries {
			return nil, fmt.Errorf("failed to call ElevenLabs API after %d attempts: %w", s.maxRetries, err)
		}

		s.logger.Warn("Attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("retry_delay", s.retryDelay),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
	return nil, fmt.Errorf("failed to call ElevenLabs API after exhausting all retry attempts")
}

func (s *ElevenLabsService) callElevenLabs(ctx context.Context, text string) ([]byte, error) {
	if s.apiKey == "" {
		return nil, &ElevenLabsHttpError{StatusCode: http.StatusUnauthorized, Message: "api key not configured", ErrorType: "missing_api_key"}
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"text":           text,
		"model_id":       s.modelID,
		"voice_settings": s.voiceSettings,
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request body: %w", err)
	}

	fullURL := fmt.Sprintf("%s/%s", s.apiURL, s.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleErrorResponse(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}
	return audio, nil
}

func (s *ElevenLabsService) handleErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ElevenLabsHttpError{
			StatusCode: resp.StatusCode,
			Message:    "Failed to read error response",
			ErrorType:  "unknown",
		}
	}

	var errorResp struct {
		Detail struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"detail"`
	}

	if err := json.Unmarshal(body, &errorResp); err != nil {
		return &ElevenLabsHttpError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			ErrorType:  "unknown",
			RawBody:    string(body),
		}
	}

	return &ElevenLabsHttpError{
		StatusCode: resp.StatusCode,
		Message:    errorResp.Detail.Message,
		ErrorType:  errorResp.Detail.Status,
		RawBody:    string(body),
	}
}

type ElevenLabsHttpError struct {
	StatusCode int
	Message    string
	ErrorType  string
	RawBody    string
}

func (e *ElevenLabsHttpError) Error() string {
	return fmt.Sprintf("ElevenLabs API error (HTTP %d): %s (Type: %s)", e.StatusCode, e.Message, e.ErrorType)
}

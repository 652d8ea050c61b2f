package llm_service

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

type GeminiService struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
}

// NewGeminiService calls the generateContent endpoint at apiURL, e.g.
// https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent
func NewGeminiService(apiURL, apiKey string, logger *slog.Logger) *GeminiService {
	return &GeminiService{
		apiURL:     apiURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
		maxRetries: 3,
		retryDelay: 5 * time.Second,
	}
}

func (s *GeminiService) CallLLM(ctx context.Context, config map[string]interface{}, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		response, err := s.callGemini(ctx, config, prompt)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if isPermanentError(err) {
			s.logger.Error("Gemini API rejected the request",
				slog.Int("status_code", statusCode(err)),
				slog.String("error", err.Error()))
			return "", err
		}

		if attempt == s.maxRetries {
			break
		}

		s.logger.Warn("Attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("retry_delay", s.retryDelay),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}

	s.logger.Error("Error calling Gemini API after multiple attempts",
		slog.Int("attempts", s.maxRetries),
		slog.String("error", lastErr.Error()))
	return "", fmt.Errorf("failed to call Gemini API after %d attempts: %w", s.maxRetries, lastErr)
}

func (s *GeminiService) callGemini(ctx context.Context, config map[string]interface{}, prompt string) (string, error) {
	if s.apiKey == "" {
		return "", &APIHttpError{Provider: "Gemini", StatusCode: http.StatusUnauthorized, Message: "api key not configured", ErrorType: "config"}
	}

	url := fmt.Sprintf("%s?key=%s", s.apiURL, s.apiKey)

	generationConfig := map[string]interface{}{
		"temperature":      safeParseFloat(config[ConfigTemperature], 1.0),
		"topK":             safeParseFloat(config["top_k"], 64.0),
		"topP":             safeParseFloat(config["top_p"], 0.95),
		"maxOutputTokens":  safeParseFloat(config[ConfigMaxTokens], 8192.0),
		"responseMimeType": "text/plain",
	}
	if _, _, ok := responseSchema(config); ok {
		generationConfig["responseMimeType"] = "application/json"
	}

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
		"generationConfig": generationConfig,
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", extractGeminiErrorDetails(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %w", err)
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("unexpected response format from Gemini API")
	}
	parts := result.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", fmt.Errorf("parts not found in Gemini API response")
	}

	var text string
	for _, part := range parts {
		text += part.Text
	}
	return text, nil
}

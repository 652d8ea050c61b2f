package llm_service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// OpenAIService talks to the Responses API. When the call config carries a
// response schema the output is constrained with a strict json_schema format.
type OpenAIService struct {
	client *openai.Client
	model  string
	logger *slog.Logger

	rateLimitWaits   []time.Duration
	serverErrorWaits []time.Duration
}

func NewOpenAIService(apiKey, model string, logger *slog.Logger, opts ...option.RequestOption) *OpenAIService {
	clientOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(clientOpts...)
	return &OpenAIService{
		client:           &client,
		model:            model,
		logger:           logger,
		rateLimitWaits:   []time.Duration{65 * time.Second, 100 * time.Second},
		serverErrorWaits: []time.Duration{5 * time.Second, 30 * time.Second},
	}
}

func (s *OpenAIService) CallLLM(ctx context.Context, config map[string]interface{}, prompt string) (string, error) {
	params := responses.ResponseNewParams{
		Model: s.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if _, ok := config[ConfigTemperature]; ok {
		params.Temperature = openai.Float(safeParseFloat(config[ConfigTemperature], 0))
	}
	if _, ok := config[ConfigMaxTokens]; ok {
		params.MaxOutputTokens = openai.Int(int64(safeParseFloat(config[ConfigMaxTokens], 4096)))
	}
	if schema, name, ok := responseSchema(config); ok {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   name,
					Schema: schema,
					Strict: openai.Bool(true),
					Type:   "json_schema",
				},
			},
		}
	}

	resp, err := s.callWithRetry(ctx, params)
	if err != nil {
		s.logger.Error("Error calling OpenAI API",
			slog.String("model", s.model),
			slog.String("error", err.Error()))
		return "", err
	}
	return resp.OutputText(), nil
}

func (s *OpenAIService) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	maxRetries := len(s.rateLimitWaits) + 1
	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := s.client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}

		var wait time.Duration
		switch {
		case isRateLimitError(err) && attempt < len(s.rateLimitWaits):
			wait = s.rateLimitWaits[attempt]
		case isServerError(err) && attempt < len(s.serverErrorWaits):
			wait = s.serverErrorWaits[attempt]
		default:
			return nil, fmt.Errorf("openai responses call failed: %w", err)
		}

		s.logger.Warn("Attempt failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("retry_delay", wait),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("failed after %d attempts due to OpenAI API issues", maxRetries)
}

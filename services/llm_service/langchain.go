package llm_service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainService drives any OpenAI-compatible endpoint (Ollama, vLLM,
// LM Studio) through langchaingo.
type LangChainService struct {
	llm    llms.Model
	model  string
	logger *slog.Logger
}

func NewLangChainService(baseURL, model string, logger *slog.Logger) (*LangChainService, error) {
	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken("none"),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchain client: %w", err)
	}
	return NewLangChainServiceWithModel(client, model, logger), nil
}

// NewLangChainServiceWithModel wraps an existing langchaingo model.
func NewLangChainServiceWithModel(llm llms.Model, model string, logger *slog.Logger) *LangChainService {
	return &LangChainService{llm: llm, model: model, logger: logger}
}

func (s *LangChainService) CallLLM(ctx context.Context, config map[string]interface{}, prompt string) (string, error) {
	opts := []llms.CallOption{
		llms.WithTemperature(safeParseFloat(config[ConfigTemperature], 0.0)),
	}
	if _, ok := config[ConfigMaxTokens]; ok {
		opts = append(opts, llms.WithMaxTokens(int(safeParseFloat(config[ConfigMaxTokens], 4096))))
	}
	if _, _, ok := responseSchema(config); ok {
		opts = append(opts, llms.WithJSONMode())
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, s.llm, prompt, opts...)
	if err != nil {
		s.logger.Error("Error calling local LLM",
			slog.String("model", s.model),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("local llm call failed: %w", err)
	}
	return out, nil
}

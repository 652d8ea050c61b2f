package summary_service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/serisow/docqa/services/llm_service"
	"github.com/tmc/langchaingo/prompts"
)

const summaryTemplate = `Provide a concise summary of the following document content.
Focus on the main topics and key takeaways. Keep the summary concise and under 200 words for optimal readability and audio narration.

Content: {{.text}}

Summary:`

var ErrEmptySummary = errors.New("model returned an empty summary")

// Summarizer produces a short digest of a document text.
type Summarizer struct {
	llm    llm_service.LLMService
	logger *slog.Logger
	prompt prompts.PromptTemplate
}

func NewSummarizer(llm llm_service.LLMService, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		llm:    llm,
		logger: logger,
		prompt: prompts.NewPromptTemplate(summaryTemplate, []string{"text"}),
	}
}

func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	prompt, err := s.prompt.Format(map[string]any{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to render summary prompt: %w", err)
	}

	out, err := s.llm.CallLLM(ctx, map[string]interface{}{
		llm_service.ConfigTemperature: 0.3,
	}, prompt)
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}

	summary := strings.TrimSpace(out)
	if summary == "" {
		return "", ErrEmptySummary
	}

	s.logger.Debug("Summary generated",
		slog.Int("input_length", len(text)),
		slog.Int("summary_length", len(summary)))
	return summary, nil
}

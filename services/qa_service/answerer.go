package qa_service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/serisow/docqa/pipeline_type"
	"github.com/serisow/docqa/services/llm_service"
	"github.com/tmc/langchaingo/prompts"
)

// GroundedAnswerer answers questions from a document text and returns the
// excerpts the model claims support the answer. Quotes are not verified
// here.
type GroundedAnswerer struct {
	llm            llm_service.LLMService
	logger         *slog.Logger
	condensePrompt prompts.PromptTemplate
	answerPrompt   prompts.PromptTemplate
	schema         map[string]interface{}
}

func NewGroundedAnswerer(llm llm_service.LLMService, logger *slog.Logger) *GroundedAnswerer {
	return &GroundedAnswerer{
		llm:            llm,
		logger:         logger,
		condensePrompt: newCondensePrompt(),
		answerPrompt:   newAnswerPrompt(),
		schema:         answerSchema(),
	}
}

// Answer runs condensation (only when history is non-empty) and grounded
// generation. Errors are returned only when the model cannot be reached;
// unparseable output degrades to an Unparsed result.
func (a *GroundedAnswerer) Answer(ctx context.Context, contextText, question string, history []pipeline_type.ChatHistoryEntry) (pipeline_type.QAResult, error) {
	standalone, err := a.StandaloneQuestion(ctx, question, history)
	if err != nil {
		return pipeline_type.QAResult{}, err
	}

	prompt, err := a.answerPrompt.Format(map[string]any{
		"context":  contextText,
		"question": standalone,
	})
	if err != nil {
		return pipeline_type.QAResult{}, fmt.Errorf("failed to render answer prompt: %w", err)
	}

	start := time.Now()
	raw, err := a.llm.CallLLM(ctx, map[string]interface{}{
		llm_service.ConfigTemperature:    0.0,
		llm_service.ConfigResponseSchema: a.schema,
		llm_service.ConfigSchemaName:     "grounded_answer",
	}, prompt)
	if err != nil {
		return pipeline_type.QAResult{}, fmt.Errorf("answer generation failed: %w", err)
	}

	result := ParseAnswer(raw)
	if result.Kind == pipeline_type.AnswerUnparsed {
		a.logger.Warn("Model output is not valid answer JSON, using raw text",
			slog.Int("output_length", len(raw)))
	}
	a.logger.Info("Answer generated",
		slog.String("kind", result.Kind.String()),
		slog.Int("quotes", len(result.Quotes)),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

// StandaloneQuestion rewrites question so it can be understood without the
// conversation. With no history the question is returned verbatim and the
// model is not called.
func (a *GroundedAnswerer) StandaloneQuestion(ctx context.Context, question string, history []pipeline_type.ChatHistoryEntry) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	prompt, err := a.condensePrompt.Format(map[string]any{
		"chat_history": FormatHistory(history),
		"question":     question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render condense prompt: %w", err)
	}

	out, err := a.llm.CallLLM(ctx, map[string]interface{}{llm_service.ConfigTemperature: 0.0}, prompt)
	if err != nil {
		return "", fmt.Errorf("question condensation failed: %w", err)
	}

	standalone := strings.TrimSpace(out)
	if standalone == "" {
		return question, nil
	}
	a.logger.Debug("Condensed follow-up question",
		slog.Int("history_length", len(history)),
		slog.String("standalone_question", standalone))
	return standalone, nil
}

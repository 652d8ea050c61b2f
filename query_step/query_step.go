package query_step

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/serisow/docqa/pipeline_type"
)

type Answerer interface {
	Answer(ctx context.Context, contextText, question string, history []pipeline_type.ChatHistoryEntry) (pipeline_type.QAResult, error)
}

// Annotator returns the path of an annotated copy, or nil.
type Annotator interface {
	Annotate(data []byte, quotes []string) *string
}

type AnswerStepImpl struct {
	Answerer Answerer
	Logger   *slog.Logger
}

func (s *AnswerStepImpl) Execute(ctx context.Context, pipelineContext *pipeline_type.Context) error {
	if s.Answerer == nil {
		return fmt.Errorf("answerer is not initialized for step %s", s.GetType())
	}

	result, err := s.Answerer.Answer(ctx, pipelineContext.TextContent, pipelineContext.Query, pipelineContext.ChatHistory)
	if err != nil {
		return fmt.Errorf("answer generation failed: %w", err)
	}

	pipelineContext.Answer = result.Answer
	pipelineContext.AnswerKind = result.Kind
	pipelineContext.Quotes = result.Quotes
	if pipelineContext.Quotes == nil {
		pipelineContext.Quotes = []string{}
	}
	return nil
}

func (s *AnswerStepImpl) GetType() string {
	return pipeline_type.StepAnswer
}

// HighlightStepImpl marks the answer's quotes in the original document. It
// runs even with no quotes and never fails the run.
type HighlightStepImpl struct {
	Annotator Annotator
	Logger    *slog.Logger
}

func (s *HighlightStepImpl) Execute(ctx context.Context, pipelineContext *pipeline_type.Context) (err error) {
	pipelineContext.HighlightPath = nil
	if s.Annotator == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("Recovered from panic in highlight step",
				slog.Int64("document_id", pipelineContext.DocumentID),
				slog.Any("panic", r))
			pipelineContext.HighlightPath = nil
			err = nil
		}
	}()

	pipelineContext.HighlightPath = s.Annotator.Annotate(pipelineContext.PDFBytes, pipelineContext.Quotes)
	return nil
}

func (s *HighlightStepImpl) GetType() string {
	return pipeline_type.StepHighlight
}

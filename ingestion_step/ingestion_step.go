package ingestion_step

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/serisow/docqa/pipeline_type"
)

type TextExtractor interface {
	ExtractText(data []byte) (string, error)
	ExtractMetadata(data []byte) (map[string]string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Narrator sanitizes and synthesizes text, returning the audio path.
type Narrator interface {
	Narrate(ctx context.Context, text string) (string, error)
}

var errNoDocumentWriter = errors.New("no document writer on pipeline context")

// ExtractStepImpl pulls the text out of the uploaded bytes and commits it
// before later stages run.
type ExtractStepImpl struct {
	Extractor TextExtractor
	Logger    *slog.Logger
}

func (s *ExtractStepImpl) Execute(ctx context.Context, pipelineContext *pipeline_type.Context) error {
	if s.Extractor == nil {
		return fmt.Errorf("text extractor is not initialized for step %s", s.GetType())
	}
	if pipelineContext.Documents == nil {
		return errNoDocumentWriter
	}

	text, err := s.Extractor.ExtractText(pipelineContext.PDFBytes)
	if err != nil {
		return fmt.Errorf("text extraction failed: %w", err)
	}

	metadata, err := s.Extractor.ExtractMetadata(pipelineContext.PDFBytes)
	if err != nil {
		return fmt.Errorf("metadata extraction failed: %w", err)
	}
	for k, v := range metadata {
		pipelineContext.Metadata[k] = v
	}

	if err := pipelineContext.Documents.UpdateText(ctx, pipelineContext.DocumentID, text); err != nil {
		return fmt.Errorf("failed to save document text: %w", err)
	}
	pipelineContext.TextContent = text

	s.Logger.Info("Document text ready",
		slog.Int64("document_id", pipelineContext.DocumentID),
		slog.Int("text_length", len(text)),
		slog.String("format", pipelineContext.Metadata["format"]))
	return nil
}

func (s *ExtractStepImpl) GetType() string {
	return pipeline_type.StepExtract
}

type SummarizeStepImpl struct {
	Summarizer Summarizer
	Logger     *slog.Logger
}

func (s *SummarizeStepImpl) Execute(ctx context.Context, pipelineContext *pipeline_type.Context) error {
	if s.Summarizer == nil {
		return fmt.Errorf("summarizer is not initialized for step %s", s.GetType())
	}
	if pipelineContext.Documents == nil {
		return errNoDocumentWriter
	}
	if strings.TrimSpace(pipelineContext.TextContent) == "" {
		return errors.New("no document text to summarize")
	}

	summary, err := s.Summarizer.Summarize(ctx, pipelineContext.TextContent)
	if err != nil {
		return fmt.Errorf("summarization failed: %w", err)
	}

	if err := pipelineContext.Documents.UpdateSummary(ctx, pipelineContext.DocumentID, summary); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	pipelineContext.Summary = summary
	return nil
}

func (s *SummarizeStepImpl) GetType() string {
	return pipeline_type.StepSummarize
}

// SynthesizeAudioStepImpl narrates the summary. Audio is optional: any
// failure is logged and the run carries on without it.
type SynthesizeAudioStepImpl struct {
	Narrator Narrator
	Logger   *slog.Logger
}

func (s *SynthesizeAudioStepImpl) Execute(ctx context.Context, pipelineContext *pipeline_type.Context) error {
	if s.Narrator == nil || pipelineContext.Documents == nil {
		s.Logger.Warn("Audio synthesis unavailable",
			slog.Int64("document_id", pipelineContext.DocumentID))
		return nil
	}
	if strings.TrimSpace(pipelineContext.Summary) == "" {
		s.Logger.Info("No summary to narrate",
			slog.Int64("document_id", pipelineContext.DocumentID))
		return nil
	}

	audioPath, err := s.Narrator.Narrate(ctx, pipelineContext.Summary)
	if err != nil {
		s.Logger.Error("Audio synthesis failed",
			slog.Int64("document_id", pipelineContext.DocumentID),
			slog.String("error", err.Error()))
		return nil
	}

	if err := pipelineContext.Documents.UpdateAudioPath(ctx, pipelineContext.DocumentID, audioPath); err != nil {
		s.Logger.Error("Failed to save audio path",
			slog.Int64("document_id", pipelineContext.DocumentID),
			slog.String("audio_path", audioPath),
			slog.String("error", err.Error()))
		return nil
	}
	pipelineContext.AudioPath = &audioPath
	return nil
}

func (s *SynthesizeAudioStepImpl) GetType() string {
	return pipeline_type.StepSynthesizeAudio
}

package orchestrator

import (
	"log/slog"

	"github.com/serisow/docqa/ingestion_step"
	"github.com/serisow/docqa/pipeline/step"
	"github.com/serisow/docqa/pipeline_type"
	"github.com/serisow/docqa/plugin_registry"
	"github.com/serisow/docqa/query_step"
)

// StageServices are the external services the stages call.
type StageServices struct {
	Extractor  ingestion_step.TextExtractor
	Summarizer ingestion_step.Summarizer
	Narrator   ingestion_step.Narrator
	Answerer   query_step.Answerer
	Annotator  query_step.Annotator
}

// RegisterSteps registers a factory for every stage type used by the
// ingestion and query pipelines.
func RegisterSteps(registry *plugin_registry.PluginRegistry, services StageServices, logger *slog.Logger) {
	registry.RegisterStepType(pipeline_type.StepExtract, func() step.Step {
		return &ingestion_step.ExtractStepImpl{Extractor: services.Extractor, Logger: logger}
	})
	registry.RegisterStepType(pipeline_type.StepSummarize, func() step.Step {
		return &ingestion_step.SummarizeStepImpl{Summarizer: services.Summarizer, Logger: logger}
	})
	registry.RegisterStepType(pipeline_type.StepSynthesizeAudio, func() step.Step {
		return &ingestion_step.SynthesizeAudioStepImpl{Narrator: services.Narrator, Logger: logger}
	})
	registry.RegisterStepType(pipeline_type.StepAnswer, func() step.Step {
		return &query_step.AnswerStepImpl{Answerer: services.Answerer, Logger: logger}
	})
	registry.RegisterStepType(pipeline_type.StepHighlight, func() step.Step {
		return &query_step.HighlightStepImpl{Annotator: services.Annotator, Logger: logger}
	})
}

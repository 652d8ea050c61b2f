package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/serisow/docqa/pipeline/step"
	"github.com/serisow/docqa/pipeline_type"
)

// Pipeline is an immutable, ordered list of stages. It is built once at
// startup and shared by every run of its kind.
type Pipeline struct {
	id     string
	label  string
	steps  []pipeline_type.PipelineStep
	stages []step.Step
}

// NewPipeline pairs each step of def with the stage that implements it.
func NewPipeline(def pipeline_type.PipelineDefinition, stages []step.Step) (*Pipeline, error) {
	if len(def.Steps) == 0 {
		return nil, fmt.Errorf("pipeline %s has no steps", def.ID)
	}
	if len(def.Steps) != len(stages) {
		return nil, fmt.Errorf("pipeline %s declares %d steps but got %d stages", def.ID, len(def.Steps), len(stages))
	}
	for i, s := range stages {
		if s == nil {
			return nil, fmt.Errorf("pipeline %s: nil stage for step %s", def.ID, def.Steps[i].ID)
		}
	}

	p := &Pipeline{
		id:     def.ID,
		label:  def.Label,
		steps:  make([]pipeline_type.PipelineStep, len(def.Steps)),
		stages: make([]step.Step, len(stages)),
	}
	copy(p.steps, def.Steps)
	copy(p.stages, stages)
	return p, nil
}

func (p *Pipeline) ID() string {
	return p.id
}

func (p *Pipeline) Label() string {
	return p.label
}

// StepIDs returns the stage ids in execution order.
func (p *Pipeline) StepIDs() []string {
	ids := make([]string, len(p.steps))
	for i, s := range p.steps {
		ids[i] = s.ID
	}
	return ids
}

// StageError reports the stage that aborted a run.
type StageError struct {
	Pipeline string
	Stage    string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("error executing step %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ExecutePipeline runs the stages of p in order against pipelineContext.
// The first stage error stops the run and is returned as a *StageError;
// nothing is retried and writes made by earlier stages are kept. A canceled
// ctx is reported against the stage that was about to start.
func ExecutePipeline(ctx context.Context, p *Pipeline, pipelineContext *pipeline_type.Context, logger *slog.Logger) error {
	if pipelineContext == nil {
		return fmt.Errorf("pipeline %s: nil context", p.id)
	}

	runStart := time.Now()
	for i, s := range p.stages {
		stepID := p.steps[i].ID

		if err := ctx.Err(); err != nil {
			return &StageError{Pipeline: p.id, Stage: stepID, Err: err}
		}

		logger.Debug("Starting step",
			slog.String("pipeline", p.id),
			slog.String("step", stepID),
			slog.String("type", s.GetType()),
			slog.Int64("document_id", pipelineContext.DocumentID))

		stepStart := time.Now()
		if err := s.Execute(ctx, pipelineContext); err != nil {
			logger.Error("Step failed",
				slog.String("pipeline", p.id),
				slog.String("step", stepID),
				slog.Int64("document_id", pipelineContext.DocumentID),
				slog.Duration("duration", time.Since(stepStart)),
				slog.String("error", err.Error()))
			return &StageError{Pipeline: p.id, Stage: stepID, Err: err}
		}
		pipelineContext.MarkCompleted(stepID)

		logger.Info("Step completed",
			slog.String("pipeline", p.id),
			slog.String("step", stepID),
			slog.Int64("document_id", pipelineContext.DocumentID),
			slog.Duration("duration", time.Since(stepStart)))
	}

	logger.Info("Pipeline completed",
		slog.String("pipeline", p.id),
		slog.Int64("document_id", pipelineContext.DocumentID),
		slog.Duration("duration", time.Since(runStart)))
	return nil
}

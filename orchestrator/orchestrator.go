package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/serisow/docqa/pipeline"
	"github.com/serisow/docqa/pipeline_type"
	"github.com/serisow/docqa/plugin_registry"
	"github.com/serisow/docqa/store"
)

var (
	ErrTextNotReady     = errors.New("document text is not ready yet")
	ErrEmptyQuestion    = errors.New("question is empty")
	ErrDispatcherClosed = errors.New("ingestion dispatcher is closed")
)

// Orchestrator owns the two pipelines, built once at startup, and runs
// them against per-run store scopes.
type Orchestrator struct {
	store      store.Store
	ingestion  *pipeline.Pipeline
	query      *pipeline.Pipeline
	executions *pipeline.ExecutionStore
	logger     *slog.Logger
}

func New(st store.Store, registry *plugin_registry.PluginRegistry, executions *pipeline.ExecutionStore, logger *slog.Logger) (*Orchestrator, error) {
	ingestion, err := registry.BuildPipeline(pipeline_type.IngestionDefinition())
	if err != nil {
		return nil, fmt.Errorf("failed to build ingestion pipeline: %w", err)
	}
	query, err := registry.BuildPipeline(pipeline_type.QueryDefinition())
	if err != nil {
		return nil, fmt.Errorf("failed to build query pipeline: %w", err)
	}
	return &Orchestrator{
		store:      st,
		ingestion:  ingestion,
		query:      query,
		executions: executions,
		logger:     logger,
	}, nil
}

// CreateDocument stores a new document with no derived fields.
func (o *Orchestrator) CreateDocument(ctx context.Context, filename string, content []byte) (*pipeline_type.Document, error) {
	scope, err := o.store.Scope(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Close()

	doc, err := scope.Documents().Create(ctx, &pipeline_type.Document{Filename: filename, Content: content})
	if err != nil {
		return nil, err
	}
	o.logger.Info("Document created",
		slog.Int64("document_id", doc.ID),
		slog.String("filename", filename),
		slog.Int("size", len(content)))
	return doc, nil
}

// Ingest runs the ingestion pipeline for a stored document. Each stage
// commits its own field; a failure leaves earlier fields in place and is
// never retried.
func (o *Orchestrator) Ingest(ctx context.Context, documentID int64) error {
	scope, err := o.store.Scope(ctx)
	if err != nil {
		return err
	}
	defer scope.Close()

	doc, err := scope.Documents().Get(ctx, documentID)
	if err != nil {
		return err
	}

	execID := uuid.NewString()
	o.executions.Start(o.ingestion.ID(), execID, documentID)

	pctx := pipeline_type.NewIngestionContext(doc.ID, doc.Content, scope.Documents())
	runErr := pipeline.ExecutePipeline(ctx, o.ingestion, pctx, o.logger)

	var failedStep string
	var stageErr *pipeline.StageError
	if errors.As(runErr, &stageErr) {
		failedStep = stageErr.Stage
	}
	o.executions.Complete(execID, pctx.CompletedSteps, failedStep, runErr)

	if runErr != nil {
		o.logger.Error("Ingestion failed",
			slog.Int64("document_id", documentID),
			slog.String("execution_id", execID),
			slog.String("failed_step", failedStep),
			slog.String("error", runErr.Error()))
	}
	return runErr
}

// Ask answers question about a document and appends the interaction. The
// history is read once before the run. Nothing is recorded when the answer
// stage fails.
func (o *Orchestrator) Ask(ctx context.Context, documentID int64, question string) (*pipeline_type.Interaction, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	scope, err := o.store.Scope(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Close()

	doc, err := scope.Documents().Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.TextReady() {
		return nil, ErrTextNotReady
	}

	past, err := scope.Interactions().ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pctx := pipeline_type.NewQueryContext(doc, question, pipeline_type.HistoryFromInteractions(past))
	if err := pipeline.ExecutePipeline(ctx, o.query, pctx, o.logger); err != nil {
		return nil, err
	}

	interaction, err := scope.Interactions().Create(ctx, &pipeline_type.Interaction{
		DocumentID:    documentID,
		Query:         question,
		Answer:        pctx.Answer,
		Quotes:        pctx.Quotes,
		HighlightPath: pctx.HighlightPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save interaction: %w", err)
	}

	o.logger.Info("Question answered",
		slog.Int64("document_id", documentID),
		slog.Int64("interaction_id", interaction.ID),
		slog.Int("history_length", len(past)),
		slog.String("answer_kind", pctx.AnswerKind.String()),
		slog.Bool("highlighted", interaction.HighlightPath != nil),
		slog.Duration("duration", time.Since(start)))
	return interaction, nil
}

func (o *Orchestrator) Document(ctx context.Context, documentID int64) (*pipeline_type.Document, error) {
	scope, err := o.store.Scope(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Close()
	return scope.Documents().Get(ctx, documentID)
}

func (o *Orchestrator) Documents(ctx context.Context) ([]*pipeline_type.Document, error) {
	scope, err := o.store.Scope(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Close()
	return scope.Documents().List(ctx)
}

// Interactions returns the document's interactions, oldest first.
func (o *Orchestrator) Interactions(ctx context.Context, documentID int64) ([]*pipeline_type.Interaction, error) {
	scope, err := o.store.Scope(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Close()

	if _, err := scope.Documents().Get(ctx, documentID); err != nil {
		return nil, err
	}
	return scope.Interactions().ListByDocument(ctx, documentID)
}

// Status returns the latest ingestion run recorded for a document.
func (o *Orchestrator) Status(documentID int64) (*pipeline.ExecutionResult, bool) {
	return o.executions.LatestForDocument(documentID)
}

// Package store defines persistence for documents and their interactions.
//
// Documents are mutated only through single-field updates, each committed
// on its own. Interactions are append-only.
package store

import (
	"context"
	"errors"

	"github.com/serisow/docqa/pipeline_type"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrMissingPrerequisite indicates a write that would break the field
	// dependency text_content <- summary <- audio_path, or an interaction
	// for a document whose text is not ready.
	ErrMissingPrerequisite = errors.New("prerequisite field not set")

	// ErrAlreadySet indicates a write to a derived field that already holds
	// its value. Derived fields are set once and never replaced.
	ErrAlreadySet = errors.New("field already set")
)

type DocumentRepository interface {
	// Create assigns ID and CreatedAt and stores the document with all
	// derived fields empty.
	Create(ctx context.Context, doc *pipeline_type.Document) (*pipeline_type.Document, error)

	// Get returns ErrNotFound if the document doesn't exist.
	Get(ctx context.Context, id int64) (*pipeline_type.Document, error)

	// List returns all documents, newest first.
	List(ctx context.Context) ([]*pipeline_type.Document, error)

	UpdateText(ctx context.Context, id int64, text string) error
	UpdateSummary(ctx context.Context, id int64, summary string) error
	UpdateAudioPath(ctx context.Context, id int64, audioPath string) error
}

type InteractionRepository interface {
	// Create assigns ID and Timestamp and appends the interaction.
	Create(ctx context.Context, interaction *pipeline_type.Interaction) (*pipeline_type.Interaction, error)

	// ListByDocument returns a document's interactions in chronological
	// order.
	ListByDocument(ctx context.Context, documentID int64) ([]*pipeline_type.Interaction, error)
}

// Scope is an isolated data-access session. Each pipeline run and each
// request opens its own and closes it when done.
type Scope interface {
	Documents() DocumentRepository
	Interactions() InteractionRepository
	Close() error
}

type Store interface {
	Scope(ctx context.Context) (Scope, error)
	Close() error
}

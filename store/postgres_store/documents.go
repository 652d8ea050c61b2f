package postgres_store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/serisow/docqa/pipeline_type"
	"github.com/serisow/docqa/store"
)

type DocumentRepository struct {
	db     querier
	logger *slog.Logger
}

var _ store.DocumentRepository = (*DocumentRepository)(nil)

func NewDocumentRepository(db querier, logger *slog.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

const documentColumns = `id, filename, content, text_content, summary, audio_path, created_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *pipeline_type.Document) (*pipeline_type.Document, error) {
	query := `
		INSERT INTO documents (filename, content)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	created := &pipeline_type.Document{Filename: doc.Filename, Content: doc.Content}
	if err := r.db.QueryRow(ctx, query, doc.Filename, doc.Content).Scan(&created.ID, &created.CreatedAt); err != nil {
		r.logger.Error("Failed to insert document",
			slog.String("filename", doc.Filename),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}
	return created, nil
}

func (r *DocumentRepository) Get(ctx context.Context, id int64) (*pipeline_type.Document, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %d: %w", id, err)
	}
	return doc, nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]*pipeline_type.Document, error) {
	rows, err := r.db.Query(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*pipeline_type.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepository) UpdateText(ctx context.Context, id int64, text string) error {
	return r.updateField(ctx, id, "text_content", "", text)
}

func (r *DocumentRepository) UpdateSummary(ctx context.Context, id int64, summary string) error {
	return r.updateField(ctx, id, "summary", "text_content", summary)
}

func (r *DocumentRepository) UpdateAudioPath(ctx context.Context, id int64, audioPath string) error {
	return r.updateField(ctx, id, "audio_path", "summary", audioPath)
}

// updateStatement sets column only while it is still NULL and, when
// requires is given, only once requires holds a value.
func updateStatement(column, requires string) string {
	query := fmt.Sprintf(`UPDATE documents SET %[1]s = $2 WHERE id = $1 AND %[1]s IS NULL`, column)
	if requires != "" {
		query += fmt.Sprintf(` AND %s IS NOT NULL`, requires)
	}
	return query
}

// updateField runs a guarded single-column update. When nothing changed it
// tells a missing document, a field already set and an unmet prerequisite
// apart.
func (r *DocumentRepository) updateField(ctx context.Context, id int64, column, requires, value string) error {
	tag, err := r.db.Exec(ctx, updateStatement(column, requires), id, value)
	if err != nil {
		return fmt.Errorf("failed to update document %d: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var alreadySet bool
	err = r.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s IS NOT NULL FROM documents WHERE id = $1`, column), id).Scan(&alreadySet)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check document %d: %w", id, err)
	}
	if alreadySet {
		return store.ErrAlreadySet
	}
	return store.ErrMissingPrerequisite
}

func scanDocument(row pgx.Row) (*pipeline_type.Document, error) {
	var doc pipeline_type.Document
	err := row.Scan(&doc.ID, &doc.Filename, &doc.Content, &doc.TextContent, &doc.Summary, &doc.AudioPath, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

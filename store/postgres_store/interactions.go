package postgres_store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/serisow/docqa/pipeline_type"
	"github.com/serisow/docqa/store"
)

type InteractionRepository struct {
	db     querier
	logger *slog.Logger
}

var _ store.InteractionRepository = (*InteractionRepository)(nil)

func NewInteractionRepository(db querier, logger *slog.Logger) *InteractionRepository {
	return &InteractionRepository{db: db, logger: logger}
}

// Create appends the interaction in one statement. The insert only
// happens when the document's text is ready.
func (r *InteractionRepository) Create(ctx context.Context, interaction *pipeline_type.Interaction) (*pipeline_type.Interaction, error) {
	quotes := interaction.Quotes
	if quotes == nil {
		quotes = []string{}
	}
	quotesJSON, err := json.Marshal(quotes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quotes: %w", err)
	}

	query := `
		INSERT INTO interactions (document_id, query, answer, quotes, highlight_path)
		SELECT id, $2::text, $3::text, $4::jsonb, $5::text FROM documents
		WHERE id = $1 AND text_content IS NOT NULL
		RETURNING id, timestamp
	`
	created := &pipeline_type.Interaction{
		DocumentID:    interaction.DocumentID,
		Query:         interaction.Query,
		Answer:        interaction.Answer,
		Quotes:        quotes,
		HighlightPath: interaction.HighlightPath,
	}
	err = r.db.QueryRow(ctx, query,
		interaction.DocumentID, interaction.Query, interaction.Answer, quotesJSON, interaction.HighlightPath,
	).Scan(&created.ID, &created.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrMissingPrerequisite
	}
	if err != nil {
		r.logger.Error("Failed to insert interaction",
			slog.Int64("document_id", interaction.DocumentID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to insert interaction: %w", err)
	}
	return created, nil
}

func (r *InteractionRepository) ListByDocument(ctx context.Context, documentID int64) ([]*pipeline_type.Interaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, document_id, query, answer, quotes, highlight_path, timestamp
		FROM interactions
		WHERE document_id = $1
		ORDER BY timestamp ASC, id ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer rows.Close()

	interactions := make([]*pipeline_type.Interaction, 0)
	for rows.Next() {
		var i pipeline_type.Interaction
		var quotesJSON []byte
		if err := rows.Scan(&i.ID, &i.DocumentID, &i.Query, &i.Answer, &quotesJSON, &i.HighlightPath, &i.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		i.Quotes, err = decodeQuotes(quotesJSON)
		if err != nil {
			return nil, err
		}
		interactions = append(interactions, &i)
	}
	return interactions, rows.Err()
}

func decodeQuotes(data []byte) ([]string, error) {
	quotes := []string{}
	if len(data) == 0 {
		return quotes, nil
	}
	if err := json.Unmarshal(data, &quotes); err != nil {
		return nil, fmt.Errorf("failed to decode quotes: %w", err)
	}
	if quotes == nil {
		quotes = []string{}
	}
	return quotes, nil
}

package badger_store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/serisow/docqa/pipeline_type"
	"github.com/serisow/docqa/store"
)

type InteractionRepository struct {
	store *Store
}

var _ store.InteractionRepository = (*InteractionRepository)(nil)

func (r *InteractionRepository) Create(ctx context.Context, interaction *pipeline_type.Interaction) (*pipeline_type.Interaction, error) {
	id, err := nextID(r.store.interactionSeq)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate interaction id: %w", err)
	}
	quotes := interaction.Quotes
	if quotes == nil {
		quotes = []string{}
	}
	created := &pipeline_type.Interaction{
		ID:            id,
		DocumentID:    interaction.DocumentID,
		Query:         interaction.Query,
		Answer:        interaction.Answer,
		Quotes:        quotes,
		HighlightPath: interaction.HighlightPath,
		Timestamp:     time.Now().UTC(),
	}

	err = r.store.update(func(txn *badger.Txn) error {
		doc, err := readDocument(txn, interaction.DocumentID)
		if err != nil {
			return err
		}
		if !doc.TextReady() {
			return store.ErrMissingPrerequisite
		}
		value, err := json.Marshal(created)
		if err != nil {
			return err
		}
		return txn.Set(makeInteractionKey(created.DocumentID, created.ID), value)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *InteractionRepository) ListByDocument(ctx context.Context, documentID int64) ([]*pipeline_type.Interaction, error) {
	interactions := make([]*pipeline_type.Interaction, 0)
	err := r.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeInteractionDocumentPrefix(documentID)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var interaction pipeline_type.Interaction
			err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &interaction)
			})
			if err != nil {
				return err
			}
			if interaction.Quotes == nil {
				interaction.Quotes = []string{}
			}
			interactions = append(interactions, &interaction)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	return interactions, nil
}

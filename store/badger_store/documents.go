package badger_store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/serisow/docqa/pipeline_type"
	"github.com/serisow/docqa/store"
)

type DocumentRepository struct {
	store *Store
}

var _ store.DocumentRepository = (*DocumentRepository)(nil)

func (r *DocumentRepository) Create(ctx context.Context, doc *pipeline_type.Document) (*pipeline_type.Document, error) {
	id, err := nextID(r.store.documentSeq)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate document id: %w", err)
	}
	created := &pipeline_type.Document{
		ID:        id,
		Filename:  doc.Filename,
		Content:   doc.Content,
		CreatedAt: time.Now().UTC(),
	}

	err = r.store.update(func(txn *badger.Txn) error {
		return writeDocument(txn, created)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	return created, nil
}

func (r *DocumentRepository) Get(ctx context.Context, id int64) (*pipeline_type.Document, error) {
	var doc *pipeline_type.Document
	err := r.store.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = readDocument(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]*pipeline_type.Document, error) {
	docs := make([]*pipeline_type.Document, 0)
	err := r.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var doc pipeline_type.Document
			err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			})
			if err != nil {
				return err
			}
			docs = append(docs, &doc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	slices.SortFunc(docs, func(a, b *pipeline_type.Document) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID > b.ID {
			return -1
		}
		if a.ID < b.ID {
			return 1
		}
		return 0
	})
	return docs, nil
}

func (r *DocumentRepository) UpdateText(ctx context.Context, id int64, text string) error {
	return r.updateField(id, func(doc *pipeline_type.Document) error {
		if doc.TextContent != nil {
			return store.ErrAlreadySet
		}
		doc.TextContent = &text
		return nil
	})
}

func (r *DocumentRepository) UpdateSummary(ctx context.Context, id int64, summary string) error {
	return r.updateField(id, func(doc *pipeline_type.Document) error {
		if doc.TextContent == nil {
			return store.ErrMissingPrerequisite
		}
		if doc.Summary != nil {
			return store.ErrAlreadySet
		}
		doc.Summary = &summary
		return nil
	})
}

func (r *DocumentRepository) UpdateAudioPath(ctx context.Context, id int64, audioPath string) error {
	return r.updateField(id, func(doc *pipeline_type.Document) error {
		if doc.Summary == nil {
			return store.ErrMissingPrerequisite
		}
		if doc.AudioPath != nil {
			return store.ErrAlreadySet
		}
		doc.AudioPath = &audioPath
		return nil
	})
}

func (r *DocumentRepository) updateField(id int64, mutate func(doc *pipeline_type.Document) error) error {
	return r.store.update(func(txn *badger.Txn) error {
		doc, err := readDocument(txn, id)
		if err != nil {
			return err
		}
		if err := mutate(doc); err != nil {
			return err
		}
		return writeDocument(txn, doc)
	})
}

// documentRecord is the stored form; Document hides Content from JSON.
type documentRecord struct {
	pipeline_type.Document
	Content []byte `json:"content"`
}

func writeDocument(txn *badger.Txn, doc *pipeline_type.Document) error {
	value, err := json.Marshal(documentRecord{Document: *doc, Content: doc.Content})
	if err != nil {
		return err
	}
	return txn.Set(makeDocumentKey(doc.ID), value)
}

func readDocument(txn *badger.Txn, id int64) (*pipeline_type.Document, error) {
	item, err := txn.Get(makeDocumentKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	var record documentRecord
	if err := json.Unmarshal(value, &record); err != nil {
		return nil, fmt.Errorf("failed to decode document %d: %w", id, err)
	}
	doc := record.Document
	doc.Content = record.Content
	return &doc, nil
}

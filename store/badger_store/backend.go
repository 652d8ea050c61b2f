package badger_store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/serisow/docqa/store"
)

const (
	defaultSequenceBandwidth = 100
	maxConflictRetries       = 3
)

// Store keeps documents and interactions in an embedded BadgerDB.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	documentSeq    *badger.Sequence
	interactionSeq *badger.Sequence
}

var _ store.Store = (*Store)(nil)

type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens the database at path, creating the directory if needed. An
// empty path opens an in-memory database.
func Open(path string, logger *slog.Logger) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create badger directory: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	documentSeq, err := db.GetSequence([]byte(documentIDSeq), defaultSequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, err
	}
	interactionSeq, err := db.GetSequence([]byte(interactionIDSeq), defaultSequenceBandwidth)
	if err != nil {
		documentSeq.Release()
		db.Close()
		return nil, err
	}

	return &Store{
		db:             db,
		logger:         logger,
		documentSeq:    documentSeq,
		interactionSeq: interactionSeq,
	}, nil
}

// OpenInMemory is a convenience for tests.
func OpenInMemory(logger *slog.Logger) (*Store, error) {
	return Open("", logger)
}

// Scope returns a session over the shared database. Every repository call
// runs in its own transaction, so scopes need no cleanup.
func (s *Store) Scope(ctx context.Context) (store.Scope, error) {
	if s.db.IsClosed() {
		return nil, errors.New("badger database is closed")
	}
	return &scope{
		documents:    &DocumentRepository{store: s},
		interactions: &InteractionRepository{store: s},
	}, nil
}

func (s *Store) Close() error {
	if err := s.documentSeq.Release(); err != nil {
		s.logger.Warn("Failed to release document sequence", slog.String("error", err.Error()))
	}
	if err := s.interactionSeq.Release(); err != nil {
		s.logger.Warn("Failed to release interaction sequence", slog.String("error", err.Error()))
	}
	return s.db.Close()
}

// nextID draws from seq, skipping the 0 a fresh sequence starts with.
func nextID(seq *badger.Sequence) (int64, error) {
	id, err := seq.Next()
	if err != nil {
		return 0, err
	}
	if id == 0 {
		if id, err = seq.Next(); err != nil {
			return 0, err
		}
	}
	return int64(id), nil
}

// update runs fn in a read-write transaction, retrying on write conflicts.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

type scope struct {
	documents    *DocumentRepository
	interactions *InteractionRepository
}

func (s *scope) Documents() store.DocumentRepository       { return s.documents }
func (s *scope) Interactions() store.InteractionRepository { return s.interactions }
func (s *scope) Close() error                              { return nil }

package postgres_store

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serisow/docqa/store"
)

// querier is satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Scope returns a session over the pool. Every repository call checks a
// connection out and returns it when the statement is done, so a run that
// spends minutes in model calls holds no connection meanwhile.
func (s *Store) Scope(ctx context.Context) (store.Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &scope{
		documents:    NewDocumentRepository(s.pool, s.logger),
		interactions: NewInteractionRepository(s.pool, s.logger),
	}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type scope struct {
	documents    *DocumentRepository
	interactions *InteractionRepository
}

func (s *scope) Documents() store.DocumentRepository       { return s.documents }
func (s *scope) Interactions() store.InteractionRepository { return s.interactions }
func (s *scope) Close() error                              { return nil }

package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/local/titleplant/internal/config"
)

// Store wraps the index database connection pool. All queue, cleaning,
// statistics and related-items operations go through it; each mutation is
// its own commit and long transactions are never held.
type Store struct {
	db *pgxpool.Pool
}

// Open connects to the index database. The pool is sized for the worker
// count plus slack so status transitions never queue behind each other.
func Open(ctx context.Context, cfg config.DBConfig, workers int) (*Store, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	pc.MaxConns = int32(workers + 5)
	db, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect to index db: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping index db: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing pool, useful for tests.
func NewStore(db *pgxpool.Pool) *Store { return &Store{db: db} }

// Close releases the connection pool.
func (s *Store) Close() { s.db.Close() }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

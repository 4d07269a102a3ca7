package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the query surface shared by pgxpool.Pool and pgx.Tx, so every
// Postgres store works both standalone and inside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store over a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Users() UserStore       { return &PostgresUserStore{db: s.pool} }
func (s *PostgresStore) Listings() ListingStore { return &PostgresListingStore{db: s.pool} }
func (s *PostgresStore) Chats() ChatStore       { return &PostgresChatStore{db: s.pool} }
func (s *PostgresStore) Messages() MessageStore { return &PostgresMessageStore{db: s.pool} }
func (s *PostgresStore) Offers() OfferStore     { return &PostgresOfferStore{db: s.pool} }

// WithinTx runs fn inside a single database transaction. Row locks taken via
// the ForUpdate store methods are held until commit or rollback.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&postgresTxStore{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type postgresTxStore struct {
	tx pgx.Tx
}

func (s *postgresTxStore) Users() UserStore       { return &PostgresUserStore{db: s.tx} }
func (s *postgresTxStore) Listings() ListingStore { return &PostgresListingStore{db: s.tx} }
func (s *postgresTxStore) Chats() ChatStore       { return &PostgresChatStore{db: s.tx} }
func (s *postgresTxStore) Messages() MessageStore { return &PostgresMessageStore{db: s.tx} }
func (s *postgresTxStore) Offers() OfferStore     { return &PostgresOfferStore{db: s.tx} }

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradenest-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PostgresOfferStore implements OfferStore with PostgreSQL.
type PostgresOfferStore struct {
	db DBTX
}

func NewPostgresOfferStore(db DBTX) *PostgresOfferStore {
	return &PostgresOfferStore{db: db}
}

const offerColumns = `id, chat_id, listing_id, buyer_id, seller_id, amount, message, status, resolved_at, created_at, updated_at`

func scanOffer(row pgx.Row) (*models.Offer, error) {
	offer := &models.Offer{}
	err := row.Scan(
		&offer.ID,
		&offer.ChatID,
		&offer.ListingID,
		&offer.BuyerID,
		&offer.SellerID,
		&offer.Amount,
		&offer.Message,
		&offer.Status,
		&offer.ResolvedAt,
		&offer.CreatedAt,
		&offer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return offer, nil
}

func (s *PostgresOfferStore) CreateOffer(ctx context.Context, offer *models.Offer) error {
	query := `
        INSERT INTO offers (id, chat_id, listing_id, buyer_id, seller_id, amount, message, status, resolved_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `
	_, err := s.db.Exec(ctx, query,
		offer.ID,
		offer.ChatID,
		offer.ListingID,
		offer.BuyerID,
		offer.SellerID,
		offer.Amount,
		offer.Message,
		offer.Status,
		offer.ResolvedAt,
		offer.CreatedAt,
		offer.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	return nil
}

func (s *PostgresOfferStore) getOffer(ctx context.Context, query string, args ...any) (*models.Offer, error) {
	offer, err := scanOffer(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return offer, nil
}

func (s *PostgresOfferStore) GetOfferByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	return s.getOffer(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id)
}

func (s *PostgresOfferStore) GetOfferForUpdate(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	return s.getOffer(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1 FOR UPDATE`, id)
}

func (s *PostgresOfferStore) GetPendingOfferForUpdate(ctx context.Context, chatID uuid.UUID) (*models.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE chat_id = $1 AND status = 'pending' FOR UPDATE`
	return s.getOffer(ctx, query, chatID)
}

func (s *PostgresOfferStore) UpdatePendingOffer(ctx context.Context, id uuid.UUID, amount float64, message *string, now time.Time) error {
	query := `
        UPDATE offers
        SET amount = $2, message = $3, updated_at = $4
        WHERE id = $1 AND status = 'pending'
    `
	result, err := s.db.Exec(ctx, query, id, amount, message, now)
	if err != nil {
		return fmt.Errorf("failed to update pending offer %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrOfferNotFound
	}
	return nil
}

func (s *PostgresOfferStore) ResolveOffer(ctx context.Context, id uuid.UUID, status models.OfferStatus, now time.Time) error {
	// The status = 'pending' guard makes the terminal transition a
	// compare-and-set even outside a row lock.
	query := `
        UPDATE offers
        SET status = $2, resolved_at = $3, updated_at = $3
        WHERE id = $1 AND status = 'pending'
    `
	result, err := s.db.Exec(ctx, query, id, status, now)
	if err != nil {
		return fmt.Errorf("failed to resolve offer %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrOfferNotFound
	}
	return nil
}

func (s *PostgresOfferStore) GetLatestOfferByChat(ctx context.Context, chatID uuid.UUID) (*models.Offer, error) {
	query := `
        SELECT ` + offerColumns + `
        FROM offers
        WHERE chat_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT 1
    `
	return s.getOffer(ctx, query, chatID)
}

func (s *PostgresOfferStore) GetOffersByChat(ctx context.Context, chatID uuid.UUID) ([]*models.Offer, error) {
	query := `
        SELECT ` + offerColumns + `
        FROM offers
        WHERE chat_id = $1
        ORDER BY created_at DESC, id DESC
    `
	rows, err := s.db.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query offers by chat ID: %w", err)
	}
	defer rows.Close()

	offers := make([]*models.Offer, 0)
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer row: %w", err)
		}
		offers = append(offers, offer)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offer rows: %w", err)
	}
	return offers, nil
}

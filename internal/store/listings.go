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

// PostgresListingStore implements ListingStore with PostgreSQL.
type PostgresListingStore struct {
	db DBTX
}

func NewPostgresListingStore(db DBTX) *PostgresListingStore {
	return &PostgresListingStore{db: db}
}

const listingColumns = `id, seller_id, title, description, price, status, created_at, updated_at`

func scanListing(row pgx.Row) (*models.Listing, error) {
	listing := &models.Listing{}
	err := row.Scan(
		&listing.ID,
		&listing.SellerID,
		&listing.Title,
		&listing.Description,
		&listing.Price,
		&listing.Status,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *PostgresListingStore) CreateListing(ctx context.Context, listing *models.Listing) error {
	query := `
        INSERT INTO listings (id, seller_id, title, description, price, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := s.db.Exec(ctx, query,
		listing.ID,
		listing.SellerID,
		listing.Title,
		listing.Description,
		listing.Price,
		listing.Status,
		listing.CreatedAt,
		listing.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

func (s *PostgresListingStore) GetListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	listing, err := scanListing(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing by ID %s: %w", id, err)
	}
	return listing, nil
}

func (s *PostgresListingStore) ListListingsBySeller(ctx context.Context, sellerID uuid.UUID) ([]*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE seller_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.Query(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings for seller %s: %w", sellerID, err)
	}
	defer rows.Close()

	listings := make([]*models.Listing, 0)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		listings = append(listings, listing)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing rows: %w", err)
	}
	return listings, nil
}

func (s *PostgresListingStore) UpdateListingStatus(ctx context.Context, id uuid.UUID, status models.ListingStatus, now time.Time) error {
	query := `UPDATE listings SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := s.db.Exec(ctx, query, id, status, now)
	if err != nil {
		return fmt.Errorf("failed to update status for listing %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrListingNotFound
	}
	return nil
}

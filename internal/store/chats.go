package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradenest-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresChatStore implements ChatStore with PostgreSQL.
type PostgresChatStore struct {
	db DBTX
}

func NewPostgresChatStore(db DBTX) *PostgresChatStore {
	return &PostgresChatStore{db: db}
}

const chatColumns = `id, listing_id, buyer_id, seller_id, last_message_at, last_message_text, created_at, updated_at`

func scanChat(row pgx.Row) (*models.Chat, error) {
	chat := &models.Chat{}
	err := row.Scan(
		&chat.ID,
		&chat.ListingID,
		&chat.BuyerID,
		&chat.SellerID,
		&chat.LastMessageAt,
		&chat.LastMessageText,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *PostgresChatStore) CreateChat(ctx context.Context, chat *models.Chat) error {
	query := `
        INSERT INTO chats (id, listing_id, buyer_id, seller_id, last_message_at, last_message_text, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := s.db.Exec(ctx, query,
		chat.ID,
		chat.ListingID,
		chat.BuyerID,
		chat.SellerID,
		chat.LastMessageAt,
		chat.LastMessageText,
		chat.CreatedAt,
		chat.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return ErrChatExists
		}
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

func (s *PostgresChatStore) getChat(ctx context.Context, query string, args ...any) (*models.Chat, error) {
	chat, err := scanChat(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return chat, nil
}

func (s *PostgresChatStore) GetChatByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	return s.getChat(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = $1`, id)
}

func (s *PostgresChatStore) GetChatForUpdate(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	return s.getChat(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = $1 FOR UPDATE`, id)
}

func (s *PostgresChatStore) GetChatByListingAndBuyer(ctx context.Context, listingID, buyerID uuid.UUID) (*models.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE listing_id = $1 AND buyer_id = $2`
	return s.getChat(ctx, query, listingID, buyerID)
}

func (s *PostgresChatStore) GetUserChats(ctx context.Context, userID uuid.UUID) ([]*models.Chat, error) {
	query := `
        SELECT ` + chatColumns + `
        FROM chats
        WHERE buyer_id = $1 OR seller_id = $1
        ORDER BY last_message_at DESC
    `
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats for user %s: %w", userID, err)
	}
	defer rows.Close()

	chats := make([]*models.Chat, 0)
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat rows: %w", err)
	}
	return chats, nil
}

func (s *PostgresChatStore) TouchChat(ctx context.Context, id uuid.UUID, previewText string, now time.Time) error {
	query := `
        UPDATE chats
        SET last_message_at = $2, last_message_text = $3, updated_at = $2
        WHERE id = $1
    `
	result, err := s.db.Exec(ctx, query, id, now, previewText)
	if err != nil {
		return fmt.Errorf("failed to touch chat %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrChatNotFound
	}
	return nil
}

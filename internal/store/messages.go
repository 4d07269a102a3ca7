package store

import (
	"context"
	"fmt"

	"tradenest-backend/internal/models"

	"github.com/google/uuid"
)

// PostgresMessageStore implements MessageStore with PostgreSQL.
type PostgresMessageStore struct {
	db DBTX
}

func NewPostgresMessageStore(db DBTX) *PostgresMessageStore {
	return &PostgresMessageStore{db: db}
}

func (s *PostgresMessageStore) CreateMessage(ctx context.Context, message *models.Message) error {
	query := `
        INSERT INTO messages (id, chat_id, sender_id, text, kind, offer_id, is_read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := s.db.Exec(ctx, query,
		message.ID,
		message.ChatID,
		message.SenderID,
		message.Text,
		message.Kind,
		message.OfferID,
		message.IsRead,
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (s *PostgresMessageStore) GetMessagesByChatID(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error) {
	query := `
        SELECT id, chat_id, sender_id, text, kind, offer_id, is_read, created_at
        FROM messages
        WHERE chat_id = $1
        ORDER BY created_at ASC, id ASC
    `
	rows, err := s.db.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages by chat ID: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		msg := &models.Message{}
		err := rows.Scan(
			&msg.ID,
			&msg.ChatID,
			&msg.SenderID,
			&msg.Text,
			&msg.Kind,
			&msg.OfferID,
			&msg.IsRead,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return messages, nil
}

func (s *PostgresMessageStore) MarkMessagesRead(ctx context.Context, chatID, readerID uuid.UUID) error {
	query := `
        UPDATE messages
        SET is_read = TRUE
        WHERE chat_id = $1 AND sender_id != $2 AND is_read = FALSE
    `
	_, err := s.db.Exec(ctx, query, chatID, readerID)
	if err != nil {
		return fmt.Errorf("failed to mark messages read for chat %s: %w", chatID, err)
	}
	return nil
}

func (s *PostgresMessageStore) GetUnreadCountForChat(ctx context.Context, chatID, readerID uuid.UUID) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM messages
        WHERE chat_id = $1 AND sender_id != $2 AND is_read = FALSE
    `
	var count int
	if err := s.db.QueryRow(ctx, query, chatID, readerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get unread count for chat %s: %w", chatID, err)
	}
	return count, nil
}

func (s *PostgresMessageStore) GetUnreadCountForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM messages m
        JOIN chats c ON c.id = m.chat_id
        WHERE (c.buyer_id = $1 OR c.seller_id = $1)
          AND m.sender_id != $1
          AND m.is_read = FALSE
    `
	var count int
	if err := s.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get unread message count: %w", err)
	}
	return count, nil
}

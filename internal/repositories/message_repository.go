package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"call-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, conversationID int, senderID int, content string) (models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	ListMessages(ctx context.Context, conversationID int) ([]models.Message, error)
	MarkSeen(ctx context.Context, messageID int) (models.Message, bool, error)
	ListUnreadFromOthers(ctx context.Context, conversationID int, userID int) ([]models.Message, error)
	UnreadCount(ctx context.Context, conversationID int, userID int) (int, error)
	SetPinned(ctx context.Context, messageID int, pinned bool) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message in a conversation.
func (r *MessageRepo) CreateMessage(ctx context.Context, conversationID int, senderID int, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (conversation_id, sender_id, content) VALUES ($1, $2, $3) RETURNING id, conversation_id, sender_id, content, pinned, is_read, created_at`, conversationID, senderID, content).
		Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.Pinned, &msg.IsRead, &msg.CreatedAt)
	return msg, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, conversation_id, sender_id, content, pinned, is_read, created_at FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListMessages returns ordered messages for a conversation.
func (r *MessageRepo) ListMessages(ctx context.Context, conversationID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, conversation_id, sender_id, content, pinned, is_read, created_at
        FROM messages WHERE conversation_id=$1 ORDER BY created_at ASC`, conversationID)
	return msgs, err
}

// MarkSeen flips the persisted is_read flag. The second return value reports
// whether the row actually changed; re-marking an already-seen message is a
// no-op so callers can suppress duplicate broadcasts.
func (r *MessageRepo) MarkSeen(ctx context.Context, messageID int) (models.Message, bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_read = TRUE WHERE id=$1 AND is_read = FALSE`, messageID)
	if err != nil {
		return models.Message{}, false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return models.Message{}, false, err
	}

	msg, err := r.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, false, err
	}
	return msg, count > 0, nil
}

// ListUnreadFromOthers returns the unread messages in a conversation that were
// sent by someone other than the user, oldest first. This feeds the bulk
// delivered transition when a recipient opens the conversation.
func (r *MessageRepo) ListUnreadFromOthers(ctx context.Context, conversationID int, userID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, conversation_id, sender_id, content, pinned, is_read, created_at
        FROM messages WHERE conversation_id=$1 AND sender_id<>$2 AND is_read = FALSE
        ORDER BY created_at ASC`, conversationID, userID)
	return msgs, err
}

// UnreadCount counts unread messages addressed to the user in a conversation.
func (r *MessageRepo) UnreadCount(ctx context.Context, conversationID int, userID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages WHERE conversation_id=$1 AND sender_id<>$2 AND is_read = FALSE`, conversationID, userID)
	return count, err
}

// SetPinned sets or clears the pinned flag on a message.
func (r *MessageRepo) SetPinned(ctx context.Context, messageID int, pinned bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET pinned = $2 WHERE id=$1`, messageID, pinned)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vibes/internal/realtime"
)

var (
	ErrNotFound     = errors.New("conversation not found")
	ErrUserNotFound = errors.New("user not found")
	ErrSelfChat     = errors.New("cannot start conversation with yourself")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// IsParticipant reports whether the user belongs to the conversation's
// participant set. A missing conversation simply reads as "no".
func (r *Repository) IsParticipant(ctx context.Context, conversationID, userID int) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM participants WHERE conversation_id = $1 AND user_id = $2)"
	err := r.db.QueryRowContext(ctx, query, conversationID, userID).Scan(&exists)
	return exists, err
}

// CreateMessage persists a message and bumps the conversation's updated_at in
// the same transaction, so a failure leaves no partial state.
func (r *Repository) CreateMessage(ctx context.Context, conversationID, senderID int, content string) (*realtime.Message, error) {
	return r.createMessage(ctx, conversationID, senderID, content, nil)
}

// CreateMessageWithImage is the REST variant; the websocket protocol has no
// image field.
func (r *Repository) CreateMessageWithImage(ctx context.Context, conversationID, senderID int, content string, image *string) (*realtime.Message, error) {
	return r.createMessage(ctx, conversationID, senderID, content, image)
}

func (r *Repository) createMessage(ctx context.Context, conversationID, senderID int, content string, image *string) (*realtime.Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	msg := &realtime.Message{
		Conversation: conversationID,
		SenderID:     senderID,
		Content:      content,
		Image:        image,
	}

	insert := `
		INSERT INTO messages (conversation_id, sender_id, content, image)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, is_read
	`
	if err := tx.QueryRowContext(ctx, insert, conversationID, senderID, content, image).Scan(&msg.ID, &msg.CreatedAt, &msg.IsRead); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	touch := "UPDATE conversations SET updated_at = CURRENT_TIMESTAMP WHERE id = $1"
	if _, err := tx.ExecContext(ctx, touch, conversationID); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}

	sender := "SELECT username, fullname, profile_picture FROM profiles WHERE id = $1"
	if err := tx.QueryRowContext(ctx, sender, senderID).Scan(&msg.SenderUsername, &msg.SenderFullname, &msg.SenderProfilePicture); err != nil {
		return nil, fmt.Errorf("load sender: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkRead flips every unread message in the conversation that the reader did
// not send. Returns the number of rows updated; calling it again right away
// yields zero.
func (r *Repository) MarkRead(ctx context.Context, conversationID, readerID int) (int64, error) {
	query := `
		UPDATE messages
		SET is_read = TRUE
		WHERE conversation_id = $1 AND sender_id <> $2 AND is_read = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, conversationID, readerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListConversations returns the user's conversations newest-activity first,
// each with the other participant, a last-message preview and an unread count.
func (r *Repository) ListConversations(ctx context.Context, userID int) ([]Conversation, error) {
	query := `
		SELECT c.id, c.created_at, c.updated_at,
		       p.id, p.username, p.fullname, p.profile_picture,
		       lm.content, lm.sender_id, lm.created_at, lm.is_read,
		       (SELECT COUNT(*) FROM messages m
		        WHERE m.conversation_id = c.id AND m.is_read = FALSE AND m.sender_id <> $1)
		FROM conversations c
		JOIN participants me ON me.conversation_id = c.id AND me.user_id = $1
		JOIN participants other ON other.conversation_id = c.id AND other.user_id <> $1
		JOIN profiles p ON p.id = other.user_id
		LEFT JOIN LATERAL (
			SELECT content, sender_id, created_at, is_read
			FROM messages m
			WHERE m.conversation_id = c.id
			ORDER BY m.created_at DESC
			LIMIT 1
		) lm ON TRUE
		ORDER BY c.updated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *c)
	}
	return conversations, rows.Err()
}

// GetConversation returns one conversation, scoped to a participant. Missing
// conversation and non-participant both come back as ErrNotFound.
func (r *Repository) GetConversation(ctx context.Context, conversationID, userID int) (*Conversation, error) {
	query := `
		SELECT c.id, c.created_at, c.updated_at,
		       p.id, p.username, p.fullname, p.profile_picture,
		       lm.content, lm.sender_id, lm.created_at, lm.is_read,
		       (SELECT COUNT(*) FROM messages m
		        WHERE m.conversation_id = c.id AND m.is_read = FALSE AND m.sender_id <> $2)
		FROM conversations c
		JOIN participants me ON me.conversation_id = c.id AND me.user_id = $2
		JOIN participants other ON other.conversation_id = c.id AND other.user_id <> $2
		JOIN profiles p ON p.id = other.user_id
		LEFT JOIN LATERAL (
			SELECT content, sender_id, created_at, is_read
			FROM messages m
			WHERE m.conversation_id = c.id
			ORDER BY m.created_at DESC
			LIMIT 1
		) lm ON TRUE
		WHERE c.id = $1
	`
	row := r.db.QueryRowContext(ctx, query, conversationID, userID)
	c, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// CreateOrGet finds the 1:1 conversation between two users or creates it.
func (r *Repository) CreateOrGet(ctx context.Context, userID, otherID int) (*Conversation, bool, error) {
	if userID == otherID {
		return nil, false, ErrSelfChat
	}

	var exists bool
	check := "SELECT EXISTS(SELECT 1 FROM profiles WHERE id = $1)"
	if err := r.db.QueryRowContext(ctx, check, otherID).Scan(&exists); err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, ErrUserNotFound
	}

	var conversationID int
	find := `
		SELECT c.id
		FROM conversations c
		JOIN participants a ON a.conversation_id = c.id AND a.user_id = $1
		JOIN participants b ON b.conversation_id = c.id AND b.user_id = $2
		LIMIT 1
	`
	err := r.db.QueryRowContext(ctx, find, userID, otherID).Scan(&conversationID)
	if err == nil {
		c, err := r.GetConversation(ctx, conversationID, userID)
		return c, false, err
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, "INSERT INTO conversations DEFAULT VALUES RETURNING id").Scan(&conversationID); err != nil {
		return nil, false, err
	}
	join := "INSERT INTO participants (conversation_id, user_id) VALUES ($1, $2), ($1, $3)"
	if _, err := tx.ExecContext(ctx, join, conversationID, userID, otherID); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	c, err := r.GetConversation(ctx, conversationID, userID)
	return c, true, err
}

// ListMessages returns the conversation history oldest first.
func (r *Repository) ListMessages(ctx context.Context, conversationID int) ([]realtime.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, p.username, p.fullname, p.profile_picture,
		       m.content, m.image, m.created_at, m.is_read
		FROM messages m
		JOIN profiles p ON p.id = m.sender_id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []realtime.Message
	for rows.Next() {
		var m realtime.Message
		err := rows.Scan(&m.ID, &m.Conversation, &m.SenderID, &m.SenderUsername, &m.SenderFullname,
			&m.SenderProfilePicture, &m.Content, &m.Image, &m.CreatedAt, &m.IsRead)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*Conversation, error) {
	var (
		c       Conversation
		p       Participant
		content sql.NullString
		sender  sql.NullInt64
		sentAt  sql.NullTime
		isRead  sql.NullBool
	)

	err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt,
		&p.ID, &p.Username, &p.Fullname, &p.ProfilePicture,
		&content, &sender, &sentAt, &isRead,
		&c.UnreadCount)
	if err != nil {
		return nil, err
	}

	c.OtherParticipant = &p
	if content.Valid {
		c.LastMessage = &LastMessage{
			Content:   truncate(content.String, 50),
			SenderID:  int(sender.Int64),
			CreatedAt: sentAt.Time,
			IsRead:    isRead.Bool,
		}
	}
	return &c, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

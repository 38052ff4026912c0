package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/betterself/voice-therapist-api/internal/model"
)

// MessageRepo provides append and read access to the `messages` table.
// Messages are append-only.  Ordering within a conversation is carried by
// the seq column, a per-conversation monotonic counter assigned inside the
// insert transaction; timestamps are stored but never used as the ordering
// key.
type MessageRepo struct{ DB *sql.DB }

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{DB: db} }

// Append inserts a message and assigns the next seq value for its
// conversation.  The MAX(seq) read is taken FOR UPDATE in the same
// transaction as the insert so two writers on one conversation cannot be
// assigned the same position.  The generated ID and seq are populated on
// the provided message.
func (r *MessageRepo) Append(ctx context.Context, m *model.Message) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var maxSeq uint64
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq),0) FROM messages WHERE conversation_hash=? FOR UPDATE",
		m.ConversationHash).Scan(&maxSeq)
	if err != nil {
		return err
	}
	m.Seq = maxSeq + 1

	var clientTurnID sql.NullString
	if m.ClientTurnID != "" {
		clientTurnID = sql.NullString{String: m.ClientTurnID, Valid: true}
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO messages (conversation_hash, user_hash, sender, message, message_type, seq, client_turn_id, created_at) VALUES (?,?,?,?,?,?,?,?)",
		m.ConversationHash, m.UserHash, m.Sender, m.Content, m.Kind, m.Seq, clientTurnID, m.CreatedAt)
	if err != nil {
		// the unique index on (conversation_hash, client_turn_id) backstops
		// retries racing across instances
		if clientTurnID.Valid && strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicateTurn
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return tx.Commit()
}

// CountBySender returns the number of messages a given sender has in the
// conversation.  The tier resolver calls this with the user role right
// after the inbound turn is written, so the count includes the message that
// may cross a threshold.
func (r *MessageRepo) CountBySender(ctx context.Context, conversationHash, sender string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE conversation_hash=? AND sender=?",
		conversationHash, sender).Scan(&n)
	return n, err
}

// HasClientTurn reports whether a message carrying the given client turn ID
// already exists in the conversation.  Used to make client-driven retries of
// a failed turn idempotent on the user-message write.
func (r *MessageRepo) HasClientTurn(ctx context.Context, conversationHash, clientTurnID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM messages WHERE conversation_hash=? AND client_turn_id=?)",
		conversationHash, clientTurnID).Scan(&exists)
	return exists, err
}

// RecentWindow returns up to limit messages of the conversation, newest
// first by seq.  The prompt assembler reverses the slice before use.
func (r *MessageRepo) RecentWindow(ctx context.Context, conversationHash string, limit int) ([]model.Message, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, conversation_hash, user_hash, sender, message, message_type, seq, created_at FROM messages WHERE conversation_hash=? ORDER BY seq DESC LIMIT ?",
		conversationHash, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListPage returns a page of the conversation in replay order (seq
// ascending).
func (r *MessageRepo) ListPage(ctx context.Context, conversationHash string, limit, offset int) ([]model.Message, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, conversation_hash, user_hash, sender, message, message_type, seq, created_at FROM messages WHERE conversation_hash=? ORDER BY seq ASC LIMIT ? OFFSET ?",
		conversationHash, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]model.Message, error) {
	msgs := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationHash, &m.UserHash, &m.Sender, &m.Content, &m.Kind, &m.Seq, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

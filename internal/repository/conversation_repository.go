package repository

import (
	"context"
	"database/sql"

	"github.com/betterself/voice-therapist-api/internal/model"
)

// ConversationRepo provides access to the `conversations` table.
type ConversationRepo struct{ DB *sql.DB }

func NewConversationRepo(db *sql.DB) *ConversationRepo { return &ConversationRepo{DB: db} }

// Create inserts a new conversation thread for the given owner.
func (r *ConversationRepo) Create(ctx context.Context, conversationHash, userHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO conversations (conversation_hash, user_hash) VALUES (?,?)",
		conversationHash, userHash)
	return err
}

// GetByHash fetches a conversation by its opaque identifier.
func (r *ConversationRepo) GetByHash(ctx context.Context, hash string) (model.Conversation, error) {
	var cv model.Conversation
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, conversation_hash, user_hash, created_at FROM conversations WHERE conversation_hash=? LIMIT 1",
		hash).Scan(&cv.ID, &cv.ConversationHash, &cv.UserHash, &cv.CreatedAt)
	return cv, err
}

// LatestByUser returns the most recently created conversation owned by the
// given user hash.  sql.ErrNoRows is returned when the user has none;
// conversation creation is a signup-time concern and is not retried here.
func (r *ConversationRepo) LatestByUser(ctx context.Context, userHash string) (model.Conversation, error) {
	var cv model.Conversation
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, conversation_hash, user_hash, created_at FROM conversations WHERE user_hash=? ORDER BY created_at DESC, id DESC LIMIT 1",
		userHash).Scan(&cv.ID, &cv.ConversationHash, &cv.UserHash, &cv.CreatedAt)
	return cv, err
}

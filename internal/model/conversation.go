package model

import "time"

// Conversation represents a row in the `conversations` table.  A
// conversation is a thread owned by exactly one user hash at any time; in
// the steady-state design each user has a single conversation created at
// signup.  Re-keying a user rewrites UserHash on all of their
// conversations.
type Conversation struct {
	ID               uint64    // conversations.id
	ConversationHash string    // conversations.conversation_hash (opaque UUID)
	UserHash         string    // conversations.user_hash
	CreatedAt        time.Time // conversations.created_at
}

package model

import "time"

// Sender role values stored in messages.sender.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Message kind values stored in messages.message_type.
const (
	MessageKindText     = "text"
	MessageKindAudio    = "audio"
	MessageKindFollowUp = "follow_up"
)

// Message represents a row in the `messages` table.  Messages are
// append-only; they are never mutated or deleted.  Seq is a monotonic
// per-conversation counter assigned on insert and is the sole ordering key
// for replay: within one turn the assistant message always carries a higher
// Seq than the paired user message.  CreatedAt is retained for the
// re-engagement window queries but is not used for ordering.
type Message struct {
	ID               uint64    // messages.id
	ConversationHash string    // messages.conversation_hash
	UserHash         string    // messages.user_hash
	Sender           string    // messages.sender (user | assistant)
	Content          string    // messages.message
	Kind             string    // messages.message_type (text | audio | follow_up)
	Seq              uint64    // messages.seq (per-conversation, assigned on insert)
	ClientTurnID     string    // messages.client_turn_id (optional idempotency key)
	CreatedAt        time.Time // messages.created_at
}

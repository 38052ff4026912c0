// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records completed turns.
package queue

// TurnCompletedEvent is published after a conversation turn has been fully
// persisted.  It carries enough for downstream consumers to log or feed
// analytics without querying the primary database.
type TurnCompletedEvent struct {
	ConversationHash string `json:"conversation_hash"`
	UserHash         string `json:"user_hash"`
	Tier             string `json:"tier"`
	InputKind        string `json:"input_kind"`
	InputChars       int    `json:"input_chars"`
	ReplyChars       int    `json:"reply_chars"`
	AudioBytes       int    `json:"audio_bytes"`
	CompletedAt      string `json:"completed_at"`
}

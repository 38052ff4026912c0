package therapy

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed turn by which step broke, so a client can
// decide whether resubmitting the same turn is safe.  Every external-call
// failure is terminal for its turn; nothing is retried inside the pipeline.
type ErrorKind string

const (
	// KindValidation: missing or malformed request fields; nothing written.
	KindValidation ErrorKind = "validation"
	// KindConversationNotFound: the owner has no conversation; nothing written.
	KindConversationNotFound ErrorKind = "conversation_not_found"
	// KindInputConversion: the audio payload could not be normalized; nothing written.
	KindInputConversion ErrorKind = "input_conversion"
	// KindTranscription: the transcription service failed; nothing written.
	KindTranscription ErrorKind = "transcription"
	// KindStoreWrite: a persistence step failed; Stage tells which write.
	KindStoreWrite ErrorKind = "store_write"
	// KindGeneration: the completion service failed; the user message is
	// already durable, so a retry must not resubmit the same content.
	KindGeneration ErrorKind = "generation"
	// KindSynthesis: speech synthesis failed after the reply text was
	// persisted; the TurnError carries the reply so it is not lost.
	KindSynthesis ErrorKind = "synthesis"
)

// Pipeline stages reported on KindStoreWrite errors.  Stages before
// StageUserMessage mean nothing was durably written; a failure at or after
// StageTierState means the user message is already stored.
const (
	StageConversationLookup = "conversation_lookup"
	StageHistory            = "history"
	StageUserMessage        = "user_message"
	StageTierState          = "tier_state"
	StageAssistantMessage   = "assistant_message"
)

// TurnError is the structured failure returned by the orchestrator.
type TurnError struct {
	Kind ErrorKind
	// Stage identifies the failing persistence step for KindStoreWrite.
	Stage string
	// ReplyText carries the already-persisted reply on KindSynthesis so a
	// synthesis outage never loses a generated reply.
	ReplyText string
	Err       error
}

func (e *TurnError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("turn failed (%s/%s): %v", e.Kind, e.Stage, e.Err)
	}
	return fmt.Sprintf("turn failed (%s): %v", e.Kind, e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }

// AsTurnError extracts a *TurnError from err, or nil.
func AsTurnError(err error) *TurnError {
	var te *TurnError
	if errors.As(err, &te) {
		return te
	}
	return nil
}

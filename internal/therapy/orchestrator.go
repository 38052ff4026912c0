// Package therapy implements the conversation turn pipeline: input
// normalization, tier resolution, reply generation and the ordered
// persistence of both sides of a turn.
package therapy

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/betterself/voice-therapist-api/internal/audio"
	"github.com/betterself/voice-therapist-api/internal/model"
	"github.com/betterself/voice-therapist-api/internal/repository"
)

// InputKind tells the orchestrator how to normalize the inbound payload.
type InputKind string

const (
	InputText  InputKind = "text"
	InputAudio InputKind = "audio"
)

// Transcriber converts an audio upload to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Completer generates a reply from a system instruction and a prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Synthesizer converts reply text to audio for a given voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// ConversationStore resolves the conversation a turn belongs to.
type ConversationStore interface {
	GetByHash(ctx context.Context, hash string) (model.Conversation, error)
	LatestByUser(ctx context.Context, userHash string) (model.Conversation, error)
}

// MessageStore persists and reads the ordered turns of a conversation.
type MessageStore interface {
	Append(ctx context.Context, m *model.Message) error
	CountBySender(ctx context.Context, conversationHash, sender string) (int, error)
	HasClientTurn(ctx context.Context, conversationHash, clientTurnID string) (bool, error)
	RecentWindow(ctx context.Context, conversationHash string, limit int) ([]model.Message, error)
}

// SubscriptionStore answers whether a user is subscribed at an instant.
type SubscriptionStore interface {
	ActiveAt(ctx context.Context, userHash string, at time.Time) (bool, error)
}

// TurnRequest is one inbound user turn.
type TurnRequest struct {
	UserHash         string
	ConversationHash string // optional; latest conversation is used when empty
	Voice            string
	Kind             InputKind
	Text             string // set when Kind == InputText
	Audio            []byte // set when Kind == InputAudio
	AudioName        string // uploaded filename, container hint for raw PCM
	Authenticated    bool   // verified external identity present
	ClientTurnID     string // optional idempotency key
}

// TurnResult is the successful outcome of a turn.
type TurnResult struct {
	ConversationHash string
	InputText        string // normalized user utterance (transcript for audio turns)
	ReplyText        string
	ReplyAudio       []byte
	Tier             Tier
}

// Orchestrator sequences a turn across the store and the three external
// services.  All dependencies are injected; there is no package state.
type Orchestrator struct {
	conversations ConversationStore
	messages      MessageStore
	subscriptions SubscriptionStore
	transcriber   Transcriber
	completer     Completer
	synthesizer   Synthesizer
	callTimeout   time.Duration
	locks         *convLocks
	now           func() time.Time
}

// NewOrchestrator wires a turn orchestrator.  callTimeout bounds every
// external call (store operations included) so a hung collaborator fails
// the turn instead of stalling it; zero disables the bound.
func NewOrchestrator(
	conversations ConversationStore,
	messages MessageStore,
	subscriptions SubscriptionStore,
	transcriber Transcriber,
	completer Completer,
	synthesizer Synthesizer,
	callTimeout time.Duration,
) *Orchestrator {
	return &Orchestrator{
		conversations: conversations,
		messages:      messages,
		subscriptions: subscriptions,
		transcriber:   transcriber,
		completer:     completer,
		synthesizer:   synthesizer,
		callTimeout:   callTimeout,
		locks:         newConvLocks(),
		now:           time.Now,
	}
}

// Run handles one turn end to end.  Side effects are strictly ordered: the
// user message is durable before generation starts, and the assistant
// message is durable before synthesis starts.  No step is retried; the
// first failure aborts the rest of the turn and is returned as a
// *TurnError.  On KindSynthesis the reply text is already persisted and is
// carried inside the error.
func (o *Orchestrator) Run(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	conv, err := o.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	text, inputKind, err := o.normalizeInput(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &TurnResult{ConversationHash: conv.ConversationHash, InputText: text}

	// Persistence and generation are serialized per conversation so
	// concurrent turns on one thread cannot interleave their writes.
	mu := o.locks.get(conv.ConversationHash)
	mu.Lock()
	replyText, tier, err := o.persistAndReply(ctx, conv, req, text, inputKind)
	mu.Unlock()
	if err != nil {
		return nil, err
	}
	result.ReplyText = replyText
	result.Tier = tier

	callCtx, cancel := o.callContext(ctx)
	replyAudio, err := o.synthesizer.Synthesize(callCtx, replyText, req.Voice)
	cancel()
	if err != nil {
		return nil, &TurnError{Kind: KindSynthesis, ReplyText: replyText, Err: err}
	}
	result.ReplyAudio = replyAudio
	return result, nil
}

func validate(req TurnRequest) error {
	switch {
	case strings.TrimSpace(req.UserHash) == "":
		return &TurnError{Kind: KindValidation, Err: errors.New("userHash is required")}
	case strings.TrimSpace(req.Voice) == "":
		return &TurnError{Kind: KindValidation, Err: errors.New("voice selector is required")}
	case req.Kind == InputText && strings.TrimSpace(req.Text) == "":
		return &TurnError{Kind: KindValidation, Err: errors.New("message is required")}
	case req.Kind == InputAudio && len(req.Audio) == 0:
		return &TurnError{Kind: KindValidation, Err: errors.New("audio payload is required")}
	case req.Kind != InputText && req.Kind != InputAudio:
		return &TurnError{Kind: KindValidation, Err: errors.New("inputKind must be text or audio")}
	}
	return nil
}

// resolveConversation finds the conversation addressed by the request:
// an explicit hash when supplied, otherwise the owner's most recent
// thread.  A hash owned by someone else is treated as not found.
func (o *Orchestrator) resolveConversation(ctx context.Context, req TurnRequest) (model.Conversation, error) {
	callCtx, cancel := o.callContext(ctx)
	defer cancel()

	var conv model.Conversation
	var err error
	if req.ConversationHash != "" {
		conv, err = o.conversations.GetByHash(callCtx, req.ConversationHash)
	} else {
		conv, err = o.conversations.LatestByUser(callCtx, req.UserHash)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.Conversation{}, &TurnError{Kind: KindConversationNotFound, Err: err}
	}
	if err != nil {
		return model.Conversation{}, &TurnError{Kind: KindStoreWrite, Stage: StageConversationLookup, Err: err}
	}
	if conv.UserHash != req.UserHash {
		return model.Conversation{}, &TurnError{Kind: KindConversationNotFound, Err: errors.New("conversation not owned by user")}
	}
	return conv, nil
}

// normalizeInput turns the inbound payload into text.  Audio is converted
// to a transcribable container and sent to the transcription service;
// nothing is persisted until this has succeeded, so a user message is only
// ever stored once it is known as text.
func (o *Orchestrator) normalizeInput(ctx context.Context, req TurnRequest) (string, string, error) {
	if req.Kind == InputText {
		return strings.TrimSpace(req.Text), model.MessageKindText, nil
	}

	payload, filename, err := audio.Normalize(req.Audio, req.AudioName)
	if err != nil {
		return "", "", &TurnError{Kind: KindInputConversion, Err: err}
	}

	callCtx, cancel := o.callContext(ctx)
	defer cancel()
	text, err := o.transcriber.Transcribe(callCtx, payload, filename)
	if err != nil {
		return "", "", &TurnError{Kind: KindTranscription, Err: err}
	}
	return strings.TrimSpace(text), model.MessageKindAudio, nil
}

// persistAndReply runs the write-ordered middle of the pipeline under the
// per-conversation lock: history snapshot, user-message write, tier
// resolution and the assistant-message write.
func (o *Orchestrator) persistAndReply(ctx context.Context, conv model.Conversation, req TurnRequest, text, inputKind string) (string, Tier, error) {
	// The prompt window is snapshotted before the inbound write so the
	// transcript is "last 20 persisted messages plus the new utterance".
	callCtx, cancel := o.callContext(ctx)
	window, err := o.messages.RecentWindow(callCtx, conv.ConversationHash, promptWindow)
	cancel()
	if err != nil {
		return "", "", &TurnError{Kind: KindStoreWrite, Stage: StageHistory, Err: err}
	}

	userTs := o.now().UTC()
	duplicate := false
	if req.ClientTurnID != "" {
		callCtx, cancel = o.callContext(ctx)
		duplicate, err = o.messages.HasClientTurn(callCtx, conv.ConversationHash, req.ClientTurnID)
		cancel()
		if err != nil {
			return "", "", &TurnError{Kind: KindStoreWrite, Stage: StageUserMessage, Err: err}
		}
	}
	if !duplicate {
		userMsg := &model.Message{
			ConversationHash: conv.ConversationHash,
			UserHash:         req.UserHash,
			Sender:           model.SenderUser,
			Content:          text,
			Kind:             inputKind,
			ClientTurnID:     req.ClientTurnID,
			CreatedAt:        userTs,
		}
		callCtx, cancel = o.callContext(ctx)
		err = o.messages.Append(callCtx, userMsg)
		cancel()
		// another instance won the race on the same client turn id; the
		// message is durable either way
		if err != nil && !errors.Is(err, repository.ErrDuplicateTurn) {
			return "", "", &TurnError{Kind: KindStoreWrite, Stage: StageUserMessage, Err: err}
		}
	}

	tier, err := o.resolveTier(ctx, conv, req)
	if err != nil {
		return "", "", err
	}

	replyText := tier.GatingMessage()
	if !tier.Limited() {
		callCtx, cancel = o.callContext(ctx)
		replyText, err = o.completer.Complete(callCtx, SystemInstruction, BuildPrompt(window, text))
		cancel()
		if err != nil {
			return "", "", &TurnError{Kind: KindGeneration, Err: err}
		}
	}

	// The assistant row must sort strictly after the user row.  seq
	// assignment already guarantees that; the timestamp is nudged past the
	// user's so the stored times agree with the replay order.
	assistantTs := o.now().UTC()
	if !assistantTs.After(userTs) {
		assistantTs = userTs.Add(time.Millisecond)
	}
	assistantMsg := &model.Message{
		ConversationHash: conv.ConversationHash,
		UserHash:         req.UserHash,
		Sender:           model.SenderAssistant,
		Content:          replyText,
		Kind:             model.MessageKindText,
		CreatedAt:        assistantTs,
	}
	callCtx, cancel = o.callContext(ctx)
	err = o.messages.Append(callCtx, assistantMsg)
	cancel()
	if err != nil {
		return "", "", &TurnError{Kind: KindStoreWrite, Stage: StageAssistantMessage, Err: err}
	}
	return replyText, tier, nil
}

// resolveTier gathers the tier inputs: total persisted user messages
// (including the one just written) and subscription validity at server
// time.
func (o *Orchestrator) resolveTier(ctx context.Context, conv model.Conversation, req TurnRequest) (Tier, error) {
	callCtx, cancel := o.callContext(ctx)
	count, err := o.messages.CountBySender(callCtx, conv.ConversationHash, model.SenderUser)
	cancel()
	if err != nil {
		return "", &TurnError{Kind: KindStoreWrite, Stage: StageTierState, Err: err}
	}

	subscribed := false
	if req.Authenticated {
		callCtx, cancel = o.callContext(ctx)
		subscribed, err = o.subscriptions.ActiveAt(callCtx, req.UserHash, o.now().UTC())
		cancel()
		if err != nil {
			return "", &TurnError{Kind: KindStoreWrite, Stage: StageTierState, Err: err}
		}
	}
	return ResolveTier(req.Authenticated, subscribed, count), nil
}

func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.callTimeout)
}

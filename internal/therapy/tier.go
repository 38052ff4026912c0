package therapy

// Tier is the access level governing whether a turn receives a generated
// reply or a fixed gating message.  It is derived per turn from the auth
// state, the persisted user-message count and subscription validity; nothing
// about it is stored.
type Tier string

const (
	// TierAnonymous gets real generation while under the guest limit.
	TierAnonymous Tier = "anonymous"
	// TierAnonymousLimited gets the fixed login prompt instead of generation.
	TierAnonymousLimited Tier = "anonymous_limited"
	// TierFull gets real generation (subscribed, or under the free limit).
	TierFull Tier = "full"
	// TierAuthenticatedLimited gets the fixed subscribe prompt.
	TierAuthenticatedLimited Tier = "authenticated_limited"
)

// Message-count thresholds.  Counts are evaluated against the
// conversation's total persisted user messages including the turn being
// handled, so the message that crosses a limit is itself gated rather than
// the one after it.
const (
	anonymousMessageLimit = 8
	freeMessageLimit      = 15
)

// ResolveTier computes the access tier for the current turn.
// userMessages is the total user-authored message count in the conversation
// after the inbound turn has been written.
func ResolveTier(authenticated, subscribed bool, userMessages int) Tier {
	if !authenticated {
		if userMessages > anonymousMessageLimit {
			return TierAnonymousLimited
		}
		return TierAnonymous
	}
	if subscribed || userMessages < freeMessageLimit {
		return TierFull
	}
	return TierAuthenticatedLimited
}

// Limited reports whether the tier suppresses generation in favor of a
// fixed gating message.
func (t Tier) Limited() bool {
	return t == TierAnonymousLimited || t == TierAuthenticatedLimited
}

// GatingMessage returns the fixed reply for a limited tier, or "" for tiers
// that generate.
func (t Tier) GatingMessage() string {
	switch t {
	case TierAnonymousLimited:
		return loginGateMessage
	case TierAuthenticatedLimited:
		return subscribeGateMessage
	}
	return ""
}

const (
	loginGateMessage = "You've reached the limit of free messages for guests. " +
		"Please sign in to keep talking with me - your conversation will be waiting for you."

	subscribeGateMessage = "You've used all the messages included in the free plan. " +
		"Please subscribe to continue our sessions whenever you need them."
)

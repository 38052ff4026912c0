package model

import "time"

// User represents a row in the `users` table.  A user is created on first
// interaction (anonymous, keyed by a client-generated hash) or at signup.
// When an anonymous user authenticates, UserHash is rewritten exactly once
// to the external identity provider's subject and the change cascades to
// the user's conversations and messages.
//
// Fields:
//  ID               – primary key identifier.
//  UserHash         – stable owner identifier (pre- or post-authentication).
//  Name             – display name.
//  Photo            – avatar reference (URL or asset key).
//  Voice            – voice-profile selector used for speech synthesis.
//  StripeCustomerID – optional external billing-customer reference.
//  CreatedAt        – timestamp of creation.
type User struct {
	ID               uint64    // users.id
	UserHash         string    // users.user_hash
	Name             string    // users.name
	Photo            string    // users.photo
	Voice            string    // users.voice
	StripeCustomerID string    // users.stripe_customer_id (empty when unset)
	CreatedAt        time.Time // users.created_at
}

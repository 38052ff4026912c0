package model

import "time"

// Subscription represents a row in the `subscriptions` table: a validity
// interval [StartDate, EndDate) bound to a user hash.  Rows are append-only;
// a renewal inserts a new row rather than extending an existing one.  A user
// is subscribed at time T iff the maximum EndDate across their rows is
// strictly greater than T.
type Subscription struct {
	ID        uint64    // subscriptions.id
	UserHash  string    // subscriptions.user_hash
	StartDate time.Time // subscriptions.start_date
	EndDate   time.Time // subscriptions.end_date
	CreatedAt time.Time // subscriptions.created_at
}

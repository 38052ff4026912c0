package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/betterself/voice-therapist-api/internal/model"
)

// SubscriptionRepo provides access to the `subscriptions` table.  Rows are
// append-only; the billing webhook inserts one row per paid invoice period.
type SubscriptionRepo struct{ DB *sql.DB }

func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{DB: db} }

// Create inserts a subscription validity interval for a user.
func (r *SubscriptionRepo) Create(ctx context.Context, s *model.Subscription) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO subscriptions (user_hash, start_date, end_date) VALUES (?,?,?)",
		s.UserHash, s.StartDate, s.EndDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// ActiveAt reports whether the user holds a subscription valid at the given
// instant, i.e. whether any row has end_date strictly greater than it.
func (r *SubscriptionRepo) ActiveAt(ctx context.Context, userHash string, at time.Time) (bool, error) {
	var active bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM subscriptions WHERE user_hash=? AND end_date > ?)",
		userHash, at).Scan(&active)
	return active, err
}

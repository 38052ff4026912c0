package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/betterself/voice-therapist-api/internal/model"
)

// UserRepo provides access to the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user profile and populates the generated ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (user_hash, name, photo, voice) VALUES (?,?,?,?)",
		u.UserHash, u.Name, u.Photo, u.Voice)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrUserExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByHash fetches a user by its stable owner identifier.
func (r *UserRepo) GetByHash(ctx context.Context, hash string) (model.User, error) {
	var u model.User
	var stripeID sql.NullString
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_hash, name, photo, voice, stripe_customer_id, created_at FROM users WHERE user_hash=? LIMIT 1",
		hash).Scan(&u.ID, &u.UserHash, &u.Name, &u.Photo, &u.Voice, &stripeID, &u.CreatedAt)
	if stripeID.Valid {
		u.StripeCustomerID = stripeID.String
	}
	return u, err
}

// SetStripeCustomer records the billing customer reference for a user so
// later invoice events can be traced back to an owner hash.
func (r *UserRepo) SetStripeCustomer(ctx context.Context, userHash, customerID string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET stripe_customer_id=? WHERE user_hash=?", customerID, userHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetByStripeCustomer resolves the owner of a billing customer reference.
func (r *UserRepo) GetByStripeCustomer(ctx context.Context, customerID string) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_hash, name, photo, voice, created_at FROM users WHERE stripe_customer_id=? LIMIT 1",
		customerID).Scan(&u.ID, &u.UserHash, &u.Name, &u.Photo, &u.Voice, &u.CreatedAt)
	u.StripeCustomerID = customerID
	return u, err
}

// Rekey rewrites an anonymous user hash to the external identity provider's
// subject.  The update cascades to conversations and messages inside one
// transaction so a thread is never split between two owner identifiers.
// sql.ErrNoRows is returned when no user carries the old hash.
func (r *UserRepo) Rekey(ctx context.Context, oldHash, newHash string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "UPDATE users SET user_hash=? WHERE user_hash=?", newHash, oldHash)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrUserExists
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	if _, err := tx.ExecContext(ctx, "UPDATE conversations SET user_hash=? WHERE user_hash=?", newHash, oldHash); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE messages SET user_hash=? WHERE user_hash=?", newHash, oldHash); err != nil {
		return err
	}
	return tx.Commit()
}

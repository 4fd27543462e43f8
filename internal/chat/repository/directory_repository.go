package repository

import (
	"context"
	"errors"

	"campus_market_service/internal/chat/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ErrUserNotFound no user row for the given id
var ErrUserNotFound = errors.New("user not found")

// DirectoryRepository read-only access to the users table maintained by
// the user service. The relay only needs display names for notification
// text; lookup failures degrade to a placeholder, never block delivery.
type DirectoryRepository interface {
	FindProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
}

type directoryRepository struct {
	db *pgxpool.Pool
}

// NewDirectoryRepository create a DirectoryRepository
func NewDirectoryRepository(db *pgxpool.Pool) DirectoryRepository {
	return &directoryRepository{db: db}
}

func (r *directoryRepository) FindProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	row := r.db.QueryRow(ctx,
		"SELECT user_id, display_name, email FROM users WHERE user_id = $1", userID)

	var profile domain.UserProfile
	err := row.Scan(&profile.UserID, &profile.DisplayName, &profile.Email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &profile, nil
}

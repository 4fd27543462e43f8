package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"campus_market_service/internal/user/domain"
)

// ErrUserNotFound no user matched the query
var ErrUserNotFound = errors.New("no user found with given criteria")

// UserRepository definition get User info
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUserStatus(ctx context.Context, user *domain.User) error
	UpdateDisplayName(ctx context.Context, userID, displayName string) error
	FindByUser(ctx context.Context, query *domain.UserQuery) (*domain.User, error)
}

type userRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository create a UserRepository
func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO users(user_id, email, password, display_name) VALUES ($1, $2, $3, $4)",
		user.UserID, user.Email, user.Password, user.DisplayName)
	return err
}

func (r *userRepository) UpdateUserStatus(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx,
		"UPDATE users SET status = $1 WHERE user_id = $2",
		user.Status, user.UserID)
	return err
}

func (r *userRepository) UpdateDisplayName(ctx context.Context, userID, displayName string) error {
	_, err := r.db.Exec(ctx,
		"UPDATE users SET display_name = $1 WHERE user_id = $2",
		displayName, userID)
	return err
}

func (r *userRepository) FindByUser(ctx context.Context, query *domain.UserQuery) (*domain.User, error) {
	queryStr := "SELECT id, user_id, email, password, display_name, status FROM users WHERE 1=1"
	params := []interface{}{}
	paramCount := 1

	if query.Email != nil {
		queryStr += fmt.Sprintf(" AND email = $%d", paramCount)
		params = append(params, *query.Email)
		paramCount++
	}
	if query.UserID != nil {
		queryStr += fmt.Sprintf(" AND user_id = $%d", paramCount)
		params = append(params, *query.UserID)
		paramCount++
	}
	if query.ID != nil {
		queryStr += fmt.Sprintf(" AND id = $%d", paramCount)
		params = append(params, *query.ID)
		paramCount++
	}

	row := r.db.QueryRow(ctx, queryStr, params...)
	var user domain.User
	err := row.Scan(&user.ID, &user.UserID, &user.Email, &user.Password, &user.DisplayName, &user.Status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

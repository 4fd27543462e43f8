package domain

import (
	"time"

	"campus_market_service/pkg/encrypt"
)

// UserStatus account state
type UserStatus int

// states: 0=offline, 1=online, 2=ban, 3=delete
const (
	// UserStatusOffLine account has no live session
	UserStatusOffLine UserStatus = iota
	// UserStatusOnLine account has a live session
	UserStatusOnLine
	// UserStatusBan account blocked by moderation
	UserStatusBan
	// UserStatusDelete account removed
	UserStatusDelete
)

// User is one marketplace account. DisplayName is what counterparties
// see in threads and notifications.
type User struct {
	ID          int64
	UserID      string
	Email       string
	Password    string
	DisplayName string
	Status      UserStatus
}

// UserSession redis-backed login session
type UserSession struct {
	Token        string    `json:"Token"`
	UserID       string    `json:"UserID"`
	CreatedAt    time.Time `json:"CreatedAt"`
	LastActivity time.Time `json:"LastActivity"`
	ExpiredAt    time.Time `json:"ExpiredAt"`
}

// IsPasswordMatch check the stored hash against a login attempt
func (u *User) IsPasswordMatch(inputPwd string) error {
	return encrypt.CheckPassword(u.Password, inputPwd)
}

// IsExpired report whether the session has passed its deadline
func (s *UserSession) IsExpired() bool {
	return time.Now().After(s.ExpiredAt)
}

// UserQuery join conditions used to look up users
type UserQuery struct {
	ID     *int64  `db:"id"`
	UserID *string `db:"user_id"`
	Email  *string `db:"email"`
}

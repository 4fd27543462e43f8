package app

import (
	"context"
	"fmt"
	"time"

	"campus_market_service/internal/user/domain"
	"campus_market_service/internal/user/repository"
	"campus_market_service/pkg/config"
	"campus_market_service/pkg/database"
	"campus_market_service/pkg/encrypt"
	errprocess "campus_market_service/pkg/err"
	"campus_market_service/pkg/logger"
	token "campus_market_service/pkg/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserUseCase application services of the account context
type UserUseCase interface {
	Register(ctx context.Context, email, password, displayName string) error
	FindUser(ctx context.Context, query *domain.UserQuery) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, token string) error
	ForceLogout(ctx context.Context, userID string) error
	CheckSessionTimeout(ctx context.Context, token string) (bool, error)
	ReconnectSession(ctx context.Context, token string) error
	UpdateDisplayName(ctx context.Context, userID, displayName string) error
}

type userUseCase struct {
	userRepo   repository.UserRepository
	sessionTTL time.Duration
	redisRepo  database.RedisRepository[domain.UserSession]
}

// NewUserUseCase create a new UserUseCase
func NewUserUseCase(userRepo repository.UserRepository,
	sessionTTL time.Duration,
	redisRepo database.RedisRepository[domain.UserSession],
) UserUseCase {
	return &userUseCase{
		userRepo:   userRepo,
		sessionTTL: sessionTTL,
		redisRepo:  redisRepo,
	}
}

// Register create an account after email and password checks
func (u *userUseCase) Register(ctx context.Context, email, password, displayName string) error {
	if _, err := u.userRepo.FindByUser(ctx, &domain.UserQuery{Email: &email}); err == nil {
		return errprocess.Set("email already exists")
	}
	if err := encrypt.ValidatePasswordStrength(password); err != nil {
		return err
	}
	if displayName == "" {
		return errprocess.Set("display name is required")
	}

	pw, err := encrypt.HashPassword(password)
	if err != nil {
		logger.Log.Errorf("password err :", err)
		return err
	}

	user := domain.User{
		UserID:      uuid.New().String(),
		Email:       email,
		Password:    pw,
		DisplayName: displayName,
	}

	logger.Log.Info(fmt.Sprintf("usecase Register : %s", user.Email))

	return u.userRepo.CreateUser(ctx, &user)
}

// FindUser look up one account
func (u *userUseCase) FindUser(ctx context.Context, query *domain.UserQuery) (*domain.User, error) {
	return u.userRepo.FindByUser(ctx, query)
}

// Login verify credentials, open a redis session and return a JWT
func (u *userUseCase) Login(ctx context.Context, email, password string) (string, error) {
	user, err := u.userRepo.FindByUser(ctx, &domain.UserQuery{Email: &email})
	if err != nil {
		logger.Log.Error("email can't find!!!")
		return "", errprocess.Set("user not found")
	}
	if user.Status == domain.UserStatusBan || user.Status == domain.UserStatusDelete {
		return "", errprocess.Set("account unavailable")
	}

	if err = user.IsPasswordMatch(password); err != nil {
		logger.Log.Error("password can't match!!!")
		return "", err
	}

	user.Status = domain.UserStatusOnLine

	t, err := token.GenerateJWT(user.UserID, string(token.RoleUser), config.EnvConfig.UserService)
	if err != nil {
		return "", err
	}
	now := time.Now()
	session := domain.UserSession{
		Token:        t,
		UserID:       user.UserID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiredAt:    now.Add(u.sessionTTL),
	}

	u.redisRepo.Set(context.Background(), user.UserID, session, u.sessionTTL)

	if err := u.userRepo.UpdateUserStatus(ctx, user); err != nil {
		return "", err
	}

	return t, nil
}

// Logout close the session named by the token
func (u *userUseCase) Logout(ctx context.Context, t string) error {
	tokenInfo, err := token.ParseJWT(t)
	if err != nil {
		logger.Log.Error("Logout err :", zap.String("err", err.Error()))
		return err
	}

	u.redisRepo.Del(context.Background(), tokenInfo.UserID)

	return u.userRepo.UpdateUserStatus(ctx, &domain.User{
		UserID: tokenInfo.UserID,
		Status: domain.UserStatusOffLine,
	})
}

// ForceLogout clear every session of the user
func (u *userUseCase) ForceLogout(ctx context.Context, userID string) error {
	u.redisRepo.Del(context.Background(), userID)

	return u.userRepo.UpdateUserStatus(ctx, &domain.User{
		UserID: userID,
		Status: domain.UserStatusOffLine,
	})
}

// CheckSessionTimeout report whether the session behind the token expired
func (u *userUseCase) CheckSessionTimeout(ctx context.Context, t string) (bool, error) {
	tokenInfo, err := token.ParseJWT(t)
	if err != nil {
		logger.Log.Error("CheckSessionTimeout err :", zap.String("err", err.Error()))
		return true, err
	}

	ttl, err := u.redisRepo.GetTTL(context.Background(), tokenInfo.UserID)
	if err != nil {
		return true, err
	}

	if ttl > 0 {
		return false, nil
	}
	return true, nil
}

// ReconnectSession extend the session after a client reconnects
func (u *userUseCase) ReconnectSession(ctx context.Context, t string) error {
	tokenInfo, err := token.ParseJWT(t)
	if err != nil {
		logger.Log.Error("ReconnectSession err :", zap.String("err", err.Error()))
		return err
	}

	u.redisRepo.ExtendTTL(context.Background(), tokenInfo.UserID, u.sessionTTL)

	return nil
}

// UpdateDisplayName rename the account's public display name
func (u *userUseCase) UpdateDisplayName(ctx context.Context, userID, displayName string) error {
	if displayName == "" {
		return errprocess.Set("display name is required")
	}
	return u.userRepo.UpdateDisplayName(ctx, userID, displayName)
}

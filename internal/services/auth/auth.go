// Package services содержит логику бизнес-уровня для аутентификации пользователей:
// выдачу и проверку JWT, вход по email и паролю и восстановление пароля.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/billing-backend/internal/lib/jwt"
	"github.com/magabrotheeeer/billing-backend/internal/lib/password"
	"github.com/magabrotheeeer/billing-backend/internal/models"
	"github.com/magabrotheeeer/billing-backend/internal/storage/repository"
)

// ErrInvalidCredentials возвращается при неверных учётных данных.
// Неизвестный email и неверный пароль не различаются.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidResetToken возвращается для отсутствующего или просроченного
// токена восстановления пароля.
var ErrInvalidResetToken = errors.New("invalid or expired token")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// GetUserByEmail возвращает пользователя по email или ошибку, если не найден.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdateUserToken записывает значение токена пользователя, пустая строка очищает его.
	UpdateUserToken(ctx context.Context, email, token string) error

	// UpdateUserPassword сохраняет новый хэш пароля.
	UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error
}

// PasswordResetRepository описывает контракт для одноразовых токенов восстановления.
type PasswordResetRepository interface {
	GetPasswordResetByToken(ctx context.Context, token string) (*models.PasswordReset, error)
	DeletePasswordReset(ctx context.Context, id int64) error
}

// AuthService отвечает за выдачу токенов, вход и восстановление пароля.
type AuthService struct {
	users    UserRepository
	resets   PasswordResetRepository
	jwtMaker jwt.Maker
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, resets PasswordResetRepository, jwtMaker jwt.Maker) *AuthService {
	return &AuthService{
		users:    users,
		resets:   resets,
		jwtMaker: jwtMaker,
	}
}

// GenerateToken выдаёт подписанный bearer-токен с email пользователя.
func (s *AuthService) GenerateToken(email string) (string, error) {
	return s.jwtMaker.GenerateToken(email)
}

// ValidateUserToken разбирает токен без проверки подписи и сравнивает срок
// действия с текущим временем. Просроченный токен дополнительно очищает
// сохранённое значение токена на записи пользователя — проверка с побочной
// записью, сохранённая намеренно.
func (s *AuthService) ValidateUserToken(ctx context.Context, token string) (bool, error) {
	claims, err := s.jwtMaker.DecodeUnverified(token)
	if err != nil {
		return false, nil
	}
	if claims.ExpiresAt == nil {
		return false, nil
	}

	now := time.Now()
	if now.After(claims.ExpiresAt.Time) {
		if err := s.users.UpdateUserToken(ctx, claims.Email, ""); err != nil &&
			!errors.Is(err, repository.ErrUserNotFound) {
			return false, err
		}
	}
	return now.Before(claims.ExpiresAt.Time), nil
}

// Login проверяет пароль пользователя и выдаёт новый JWT.
//
// Возвращаемый пользователь содержит свежий токен; хэш пароля наружу
// не отдаётся обработчиками.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, err := s.jwtMaker.GenerateToken(user.Email)
	if err != nil {
		return nil, err
	}
	user.Token = token
	return user, nil
}

// ResetPassword проверяет одноразовый токен восстановления, сохраняет новый
// хэш пароля владельцу и удаляет использованный токен.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "services.auth.ResetPassword"

	reset, err := s.resets.GetPasswordResetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if reset.ExpiresAt.Before(time.Now()) {
		return ErrInvalidResetToken
	}

	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdateUserPassword(ctx, reset.UserID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.resets.DeletePasswordReset(ctx, reset.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/billing-backend/internal/models"
)

// CreatePasswordReset сохраняет одноразовый токен восстановления пароля.
func (s *Storage) CreatePasswordReset(ctx context.Context, userID int64, token string, expiresAt time.Time) (int64, error) {
	const op = "storage.CreatePasswordReset"

	var newID int64
	query := `INSERT INTO password_resets (token, expires_at, user_id)
			  VALUES ($1, $2, $3)
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query, token, expiresAt, userID).Scan(&newID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetPasswordResetByToken возвращает запись восстановления пароля по токену.
func (s *Storage) GetPasswordResetByToken(ctx context.Context, token string) (*models.PasswordReset, error) {
	const op = "storage.GetPasswordResetByToken"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, token, expires_at, user_id, created_at
			  FROM password_resets
			  WHERE token = $1`
	pr := &models.PasswordReset{}
	row := s.DB.QueryRowContext(ctx, query, token)
	if err := row.Scan(&pr.ID, &pr.Token, &pr.ExpiresAt, &pr.UserID, &pr.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrResetTokenNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return pr, nil
}

// GetUserByID возвращает пользователя по его числовому идентификатору.
func (s *Storage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUserByID"

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// DeletePasswordReset удаляет использованный токен восстановления.
func (s *Storage) DeletePasswordReset(ctx context.Context, id int64) error {
	const op = "storage.DeletePasswordReset"

	commandTag, err := s.DB.ExecContext(ctx, `
		DELETE FROM password_resets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := commandTag.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, ErrResetTokenNotFound)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/magabrotheeeer/billing-backend/internal/models"
)

const userColumns = `id, COALESCE(name, ''), COALESCE(sur_name, ''), COALESCE(avatar, ''),
			      COALESCE(username, ''), email, password_hash, COALESCE(token, ''),
			      COALESCE(stripe_customer_id, ''), COALESCE(subscription_id, ''),
			      COALESCE(subscription_status, '')`

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Name, &u.SurName, &u.Avatar, &u.Username, &u.Email,
		&u.PasswordHash, &u.Token, &u.StripeCustomerID, &u.SubscriptionID,
		&u.SubscriptionStatus)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser сохраняет нового пользователя в базу данных и возвращает его ID.
// Нарушение уникальности email возвращается как ErrUserAlreadyExists.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (int64, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int64
	query := `INSERT INTO users (name, sur_name, avatar, username, email, password_hash, token)
			  VALUES (NULLIF($1, ''), NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $6, NULLIF($7, ''))
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Name, user.SurName, user.Avatar, user.Username, user.Email,
		user.PasswordHash, user.Token).Scan(&newID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%s: %w", op, ErrUserAlreadyExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetUserByEmail возвращает пользователя по его email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByStripeCustomerID возвращает пользователя по идентификатору
// клиента платёжного провайдера.
func (s *Storage) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	const op = "storage.GetUserByStripeCustomerID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateUserToken записывает новое значение токена пользователя.
// Пустая строка очищает сохранённый токен.
func (s *Storage) UpdateUserToken(ctx context.Context, email, token string) error {
	const op = "storage.UpdateUserToken"

	commandTag, err := s.DB.ExecContext(ctx, `
		UPDATE users SET token = NULLIF($1, '') WHERE email = $2`, token, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := commandTag.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// RefreshUserToken атомарно обновляет токен пользователя и возвращает
// обновлённую запись.
func (s *Storage) RefreshUserToken(ctx context.Context, email, token string) (*models.User, error) {
	const op = "storage.RefreshUserToken"

	query := `UPDATE users SET token = $1 WHERE email = $2
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, token, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateUserPassword сохраняет новый хэш пароля пользователя.
func (s *Storage) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error {
	const op = "storage.UpdateUserPassword"

	commandTag, err := s.DB.ExecContext(ctx, `
		UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := commandTag.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// UpdateStripeCustomerID закрепляет за пользователем идентификатор клиента
// платёжного провайдера. Привязка назначается один раз и далее не меняется.
func (s *Storage) UpdateStripeCustomerID(ctx context.Context, userID int64, customerID string) error {
	const op = "storage.UpdateStripeCustomerID"

	_, err := s.DB.ExecContext(ctx, `
		UPDATE users SET stripe_customer_id = $1 WHERE id = $2`, customerID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateSubscriptionID записывает идентификатор последней созданной подписки.
func (s *Storage) UpdateSubscriptionID(ctx context.Context, userID int64, subscriptionID string) error {
	const op = "storage.UpdateSubscriptionID"

	_, err := s.DB.ExecContext(ctx, `
		UPDATE users SET subscription_id = $1 WHERE id = $2`, subscriptionID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateSubscriptionStatusByCustomerID обновляет статус подписки пользователя
// по идентификатору клиента платёжного провайдера. Возвращает число
// затронутых строк.
func (s *Storage) UpdateSubscriptionStatusByCustomerID(ctx context.Context, customerID, status string) (int64, error) {
	const op = "storage.UpdateSubscriptionStatusByCustomerID"

	commandTag, err := s.DB.ExecContext(ctx, `
		UPDATE users SET subscription_status = $1 WHERE stripe_customer_id = $2`,
		status, customerID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := commandTag.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}

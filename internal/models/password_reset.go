package models

import "time"

// PasswordReset представляет одноразовый токен восстановления пароля.
// Токен действителен до ExpiresAt и удаляется при успешном использовании.
type PasswordReset struct {
	ID        int64     // Уникальный идентификатор записи
	Token     string    // Одноразовый токен (уникальный)
	ExpiresAt time.Time // Срок действия токена
	UserID    int64     // Владелец токена
	CreatedAt time.Time // Дата создания записи
}

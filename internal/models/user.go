// Package models содержит доменную модель пользователя системы,
// включающую данные учётной записи, хэш пароля и привязку к платёжному
// провайдеру. Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID                 int64  // Уникальный числовой идентификатор
	Name               string // Имя (опционально)
	SurName            string // Фамилия (опционально)
	Avatar             string // Ссылка на аватар (опционально)
	Username           string // Имя пользователя, по умолчанию равно email
	Email              string // Электронная почта (уникальная)
	PasswordHash       string // Хэш пароля пользователя
	Token              string // Последний выданный bearer-токен
	StripeCustomerID   string // Идентификатор клиента у платёжного провайдера
	SubscriptionID     string // Идентификатор последней созданной подписки
	SubscriptionStatus string // Статус подписки: active, paused, canceled
}

// PublicUser — проекция пользователя для ответов API.
// Хэш пароля в проекцию не входит.
type PublicUser struct {
	ID               int64  `json:"id"`
	Email            string `json:"email"`
	Token            string `json:"token,omitempty"`
	Name             string `json:"name,omitempty"`
	Avatar           string `json:"avatar,omitempty"`
	Username         string `json:"username,omitempty"`
	SurName          string `json:"surName,omitempty"`
	StripeCustomerID string `json:"stripeCustomerId,omitempty"`
}

// Public возвращает проекцию пользователя без чувствительных полей.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:               u.ID,
		Email:            u.Email,
		Token:            u.Token,
		Name:             u.Name,
		Avatar:           u.Avatar,
		Username:         u.Username,
		SurName:          u.SurName,
		StripeCustomerID: u.StripeCustomerID,
	}
}

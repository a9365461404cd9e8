// Package services содержит логику бизнес-уровня для работы с учётными
// записями: регистрацию, профиль и оркестрацию платёжных операций
// через платёжного провайдера.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/magabrotheeeer/billing-backend/internal/lib/password"
	"github.com/magabrotheeeer/billing-backend/internal/models"
)

// ErrNoBillingAccount возвращается, когда платёжная операция запрошена
// до привязки пользователя к клиенту платёжного провайдера.
var ErrNoBillingAccount = errors.New("billing account is not validated")

const profileCacheTTL = 5 * time.Minute

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	RefreshUserToken(ctx context.Context, email, token string) (*models.User, error)
	UpdateStripeCustomerID(ctx context.Context, userID int64, customerID string) error
	UpdateSubscriptionID(ctx context.Context, userID int64, subscriptionID string) error
}

// BillingGateway описывает операции платёжного провайдера,
// используемые сервисом.
type BillingGateway interface {
	CreateCustomer(ctx context.Context, email string) (*stripe.Customer, error)
	CreateSetupIntent(ctx context.Context, customerID string) (*stripe.SetupIntent, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	CreateSubscription(ctx context.Context, customerID, priceID string) (*stripe.Subscription, error)
	ProcessPayment(ctx context.Context, customerID, priceID string, metadata map[string]string) (*stripe.Invoice, error)
}

// TokenIssuer выдает bearer-токены для учётной записи.
type TokenIssuer interface {
	GenerateToken(email string) (string, error)
}

// Cache описывает кэш проекций профиля.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// UserService управляет учётными записями и платёжными операциями.
type UserService struct {
	users   UserRepository
	billing BillingGateway
	tokens  TokenIssuer
	cache   Cache
}

// NewUserService создает новый экземпляр UserService.
func NewUserService(users UserRepository, billing BillingGateway, tokens TokenIssuer, cache Cache) *UserService {
	return &UserService{
		users:   users,
		billing: billing,
		tokens:  tokens,
		cache:   cache,
	}
}

func profileCacheKey(email string) string {
	return "user_profile:" + email
}

// Signup регистрирует нового пользователя: хэширует пароль, выдаёт токен
// и сохраняет запись с username, равным email. Повторная регистрация
// с тем же email возвращает ошибку уникальности хранилища.
func (s *UserService) Signup(ctx context.Context, email, rawPassword string) (*models.User, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.GenerateToken(email)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Email:        email,
		Username:     email,
		PasswordHash: hashed,
		Token:        token,
	}
	id, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id
	return &user, nil
}

// Profile возвращает проекцию профиля пользователя. Чтение идёт через кэш;
// токен и хэш пароля в проекцию не входят.
func (s *UserService) Profile(ctx context.Context, email string) (*models.PublicUser, error) {
	key := profileCacheKey(email)

	var cached models.PublicUser
	if found, err := s.cache.Get(key, &cached); err == nil && found {
		return &cached, nil
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	profile := user.Public()
	profile.Token = ""

	_ = s.cache.Set(key, profile, profileCacheTTL)
	return &profile, nil
}

// GetByEmail возвращает полную запись пользователя.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.users.GetUserByEmail(ctx, email)
}

// UpdateProfile перевыпускает токен пользователя и атомарно сохраняет его,
// возвращая обновлённую запись. Для несуществующего email возвращается
// ошибка хранилища "не найден".
func (s *UserService) UpdateProfile(ctx context.Context, email string) (*models.User, error) {
	token, err := s.tokens.GenerateToken(email)
	if err != nil {
		return nil, err
	}
	user, err := s.users.RefreshUserToken(ctx, email, token)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(profileCacheKey(email))
	return user, nil
}

// ValidateBillingAccount гарантирует привязку пользователя к клиенту
// платёжного провайдера и возвращает client secret свежего setup intent.
// Существующие незавершённые intent не переиспользуются.
func (s *UserService) ValidateBillingAccount(ctx context.Context, email string) (string, error) {
	const op = "services.user.ValidateBillingAccount"

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		customer, err := s.billing.CreateCustomer(ctx, user.Email)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if err := s.users.UpdateStripeCustomerID(ctx, user.ID, customer.ID); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		_ = s.cache.Invalidate(profileCacheKey(email))
		customerID = customer.ID
	}

	intent, err := s.billing.CreateSetupIntent(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return intent.ClientSecret, nil
}

// CreateSubscription привязывает платёжный метод к клиенту провайдера,
// создаёт подписку на тариф и записывает её идентификатор на пользователя.
// Частично выполненная последовательность не компенсируется.
func (s *UserService) CreateSubscription(ctx context.Context, email, paymentMethodID, priceID string) (*stripe.Subscription, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.StripeCustomerID == "" {
		return nil, ErrNoBillingAccount
	}

	if err := s.billing.AttachPaymentMethod(ctx, user.StripeCustomerID, paymentMethodID); err != nil {
		return nil, err
	}
	subscription, err := s.billing.CreateSubscription(ctx, user.StripeCustomerID, priceID)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateSubscriptionID(ctx, user.ID, subscription.ID); err != nil {
		return nil, err
	}
	return subscription, nil
}

// ProcessPayment привязывает платёжный метод и проводит ручную оплату
// инвойса с orderId в метаданных. Идентификатор инвойса записывается
// в то же поле subscription_id, что и идентификаторы подписок.
func (s *UserService) ProcessPayment(ctx context.Context, email, paymentMethodID, priceID, orderID string) (*stripe.Invoice, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.StripeCustomerID == "" {
		return nil, ErrNoBillingAccount
	}

	if err := s.billing.AttachPaymentMethod(ctx, user.StripeCustomerID, paymentMethodID); err != nil {
		return nil, err
	}
	invoice, err := s.billing.ProcessPayment(ctx, user.StripeCustomerID, priceID, map[string]string{
		"orderId": orderID,
	})
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateSubscriptionID(ctx, user.ID, invoice.ID); err != nil {
		return nil, err
	}
	return invoice, nil
}

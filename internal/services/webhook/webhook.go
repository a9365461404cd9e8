// Package services реализует обработку webhook-событий платёжного провайдера:
// диспетчеризацию по типу события, обновление локального статуса подписки
// и уведомление пользователей об операциях по инвойсам.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/magabrotheeeer/billing-backend/internal/lib/sl"
	"github.com/magabrotheeeer/billing-backend/internal/models"
	"github.com/magabrotheeeer/billing-backend/internal/storage/repository"
)

// Статусы подписки, записываемые на пользователя.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPaused   = "paused"
	SubscriptionStatusCanceled = "canceled"
)

// UserRepository описывает контракт для обновления платёжного состояния пользователей.
type UserRepository interface {
	GetUserByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error)
	UpdateSubscriptionStatusByCustomerID(ctx context.Context, customerID, status string) (int64, error)
}

// Notifier описывает контракт уведомлений пользователя о событиях по инвойсам.
type Notifier interface {
	SendPaymentSucceeded(email string) error
	SendPaymentFailed(email string) error
	SendUpcomingInvoice(email string, amountDue int64, dueDate time.Time) error
}

// WebhookService обрабатывает проверенные события платёжного провайдера.
type WebhookService struct {
	users    UserRepository
	notifier Notifier
	log      *slog.Logger
}

// NewWebhookService создает новый экземпляр WebhookService.
func NewWebhookService(users UserRepository, notifier Notifier, log *slog.Logger) *WebhookService {
	return &WebhookService{
		users:    users,
		notifier: notifier,
		log:      log,
	}
}

// subscriptionObject минимальная проекция объекта подписки из события.
type subscriptionObject struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
}

// invoiceObject минимальная проекция объекта инвойса из события.
type invoiceObject struct {
	ID        string `json:"id"`
	Customer  string `json:"customer"`
	AmountDue int64  `json:"amount_due"`
	DueDate   int64  `json:"due_date"`
}

// ProcessEvent диспетчеризует событие по его типу. Неизвестные типы
// логируются и не считаются ошибкой. Повторная доставка события
// обрабатывается с нуля, дедупликация не выполняется.
func (s *WebhookService) ProcessEvent(ctx context.Context, event stripe.Event) error {
	const op = "services.webhook.ProcessEvent"
	log := s.log.With(
		slog.String("op", op),
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.Type)),
	)

	switch event.Type {
	case "customer.subscription.deleted":
		return s.updateSubscriptionStatus(ctx, log, event, SubscriptionStatusCanceled)
	case "customer.subscription.paused":
		return s.updateSubscriptionStatus(ctx, log, event, SubscriptionStatusPaused)
	case "customer.subscription.resumed":
		return s.updateSubscriptionStatus(ctx, log, event, SubscriptionStatusActive)
	case "invoice.payment_succeeded":
		return s.notifyInvoice(ctx, log, event, s.notifier.SendPaymentSucceeded)
	case "invoice.payment_failed":
		return s.notifyInvoice(ctx, log, event, s.notifier.SendPaymentFailed)
	case "invoice.upcoming":
		return s.notifyUpcomingInvoice(ctx, log, event)
	default:
		log.Info("unhandled event type")
		return nil
	}
}

func (s *WebhookService) updateSubscriptionStatus(ctx context.Context, log *slog.Logger, event stripe.Event, status string) error {
	var subscription subscriptionObject
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to decode subscription object: %w", err)
	}

	rows, err := s.users.UpdateSubscriptionStatusByCustomerID(ctx, subscription.Customer, status)
	if err != nil {
		return err
	}
	if rows == 0 {
		log.Error("user not found for customer", slog.String("customer_id", subscription.Customer))
		return nil
	}
	log.Info("subscription status updated",
		slog.String("customer_id", subscription.Customer),
		slog.String("status", status))
	return nil
}

func (s *WebhookService) notifyInvoice(ctx context.Context, log *slog.Logger, event stripe.Event, notify func(email string) error) error {
	var invoice invoiceObject
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to decode invoice object: %w", err)
	}

	user, err := s.users.GetUserByStripeCustomerID(ctx, invoice.Customer)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Error("user not found for customer", slog.String("customer_id", invoice.Customer))
			return nil
		}
		return err
	}

	if err := notify(user.Email); err != nil {
		log.Error("failed to notify user", sl.Err(err))
		return err
	}
	return nil
}

func (s *WebhookService) notifyUpcomingInvoice(ctx context.Context, log *slog.Logger, event stripe.Event) error {
	var invoice invoiceObject
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to decode invoice object: %w", err)
	}

	user, err := s.users.GetUserByStripeCustomerID(ctx, invoice.Customer)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Error("user not found for customer", slog.String("customer_id", invoice.Customer))
			return nil
		}
		return err
	}

	var dueDate time.Time
	if invoice.DueDate > 0 {
		dueDate = time.Unix(invoice.DueDate, 0)
	}
	if err := s.notifier.SendUpcomingInvoice(user.Email, invoice.AmountDue, dueDate); err != nil {
		log.Error("failed to notify user", sl.Err(err))
		return err
	}
	return nil
}

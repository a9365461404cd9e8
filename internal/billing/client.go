// Package billing содержит клиент платёжного провайдера Stripe.
//
// Клиент транслирует внутренние вызовы в операции над ресурсами провайдера:
// клиентами, setup intent, платёжными методами, подписками и инвойсами,
// а также проверяет подпись входящих webhook-событий.
package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Client клиент платёжного провайдера.
type Client struct {
	api           *client.API
	webhookSecret string
}

// NewClient создаёт клиента Stripe с секретным ключом API
// и секретом подписи webhook-событий.
func NewClient(secretKey, webhookSecret string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{
		api:           api,
		webhookSecret: webhookSecret,
	}
}

// CreateCustomer создаёт клиента у провайдера по email пользователя.
// Идентификатор клиента закрепляется за учётной записью на весь срок её жизни.
func (c *Client) CreateCustomer(ctx context.Context, email string) (*stripe.Customer, error) {
	const op = "billing.CreateCustomer"
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	customer, err := c.api.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return customer, nil
}

// CreateSetupIntent создаёт новый setup intent для сохранения платёжного
// метода карты. Ранее созданные незавершённые intent не переиспользуются:
// провайдер сам отменяет их через 24 часа бездействия.
func (c *Client) CreateSetupIntent(ctx context.Context, customerID string) (*stripe.SetupIntent, error) {
	const op = "billing.CreateSetupIntent"
	params := &stripe.SetupIntentParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	intent, err := c.api.SetupIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return intent, nil
}

// AttachPaymentMethod привязывает платёжный метод к клиенту и назначает его
// методом по умолчанию для будущих инвойсов.
func (c *Client) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	const op = "billing.AttachPaymentMethod"

	attachParams := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	attachParams.Context = ctx
	if _, err := c.api.PaymentMethods.Attach(paymentMethodID, attachParams); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	updateParams := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	updateParams.Context = ctx
	if _, err := c.api.Customers.Update(customerID, updateParams); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreateSubscription создаёт подписку клиента на указанный тариф.
func (c *Client) CreateSubscription(ctx context.Context, customerID, priceID string) (*stripe.Subscription, error) {
	const op = "billing.CreateSubscription"
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")
	subscription, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subscription, nil
}

// ProcessPayment выполняет ручную последовательность оплаты: получает тариф,
// создаёт позицию инвойса на его сумму, создаёт инвойс с однодневным сроком
// оплаты и метаданными вызывающей стороны и сразу пытается его оплатить.
// При ошибке на любом шаге ранее созданные ресурсы не компенсируются.
func (c *Client) ProcessPayment(ctx context.Context, customerID, priceID string, metadata map[string]string) (*stripe.Invoice, error) {
	const op = "billing.ProcessPayment"

	priceParams := &stripe.PriceParams{}
	priceParams.Context = ctx
	price, err := c.api.Prices.Get(priceID, priceParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	itemParams := &stripe.InvoiceItemParams{
		Customer:    stripe.String(customerID),
		Amount:      stripe.Int64(price.UnitAmount),
		Currency:    stripe.String(string(price.Currency)),
		Description: stripe.String(price.Nickname),
	}
	itemParams.Context = ctx
	if _, err := c.api.InvoiceItems.New(itemParams); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	invoiceParams := &stripe.InvoiceParams{
		Customer:                    stripe.String(customerID),
		CollectionMethod:            stripe.String(string(stripe.InvoiceCollectionMethodSendInvoice)),
		AutoAdvance:                 stripe.Bool(true),
		DaysUntilDue:                stripe.Int64(1),
		PendingInvoiceItemsBehavior: stripe.String("include"),
	}
	invoiceParams.Context = ctx
	for k, v := range metadata {
		invoiceParams.AddMetadata(k, v)
	}
	invoice, err := c.api.Invoices.New(invoiceParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	payParams := &stripe.InvoicePayParams{}
	payParams.Context = ctx
	paid, err := c.api.Invoices.Pay(invoice.ID, payParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return paid, nil
}

// ConstructEvent проверяет подпись webhook-события и декодирует его.
func (c *Client) ConstructEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	const op = "billing.ConstructEvent"
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	return event, nil
}

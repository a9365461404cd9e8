// Package services реализует отправку почтовых уведомлений о событиях
// платёжного провайдера: успешной и неуспешной оплате и предстоящем списании.
package services

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/billing-backend/internal/lib/sl"
	"github.com/magabrotheeeer/billing-backend/internal/lib/smtp"
)

// SenderService отправляет письма через SMTP транспорт.
type SenderService struct {
	transport Transport
	log       *slog.Logger
}

// Transport описывает контракт почтового транспорта.
type Transport interface {
	Connect() (smtp.Client, error)
	GetSMTPUser() string
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, transport Transport) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendPaymentSucceeded уведомляет пользователя об успешной оплате.
func (s *SenderService) SendPaymentSucceeded(email string) error {
	subject := "Оплата прошла успешно"
	bodyText := "Здравствуйте!\n\nВаш платёж успешно обработан. Спасибо, что пользуетесь сервисом."

	return s.sendEmail([]string{email}, subject, bodyText)
}

// SendPaymentFailed уведомляет пользователя о неуспешной оплате.
func (s *SenderService) SendPaymentFailed(email string) error {
	subject := "Не удалось провести оплату"
	bodyText := "Здравствуйте!\n\nНам не удалось списать оплату по вашей подписке.\nПожалуйста, проверьте платёжный метод и повторите попытку."

	return s.sendEmail([]string{email}, subject, bodyText)
}

// SendUpcomingInvoice уведомляет пользователя о предстоящем списании.
// Нулевая dueDate означает, что провайдер не сообщил дату оплаты,
// и строка с датой в письмо не включается.
func (s *SenderService) SendUpcomingInvoice(email string, amountDue int64, dueDate time.Time) error {
	subject := "Предстоящее списание по подписке"
	bodyText := fmt.Sprintf("Здравствуйте!\n\nВ ближайшее время по вашей подписке будет выставлен счёт на сумму %.2f.",
		float64(amountDue)/100)
	if !dueDate.IsZero() {
		bodyText += fmt.Sprintf("\nДата оплаты: %s.", dueDate.Format("02.01.2006"))
	}

	return s.sendEmail([]string{email}, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("Failed to connect to SMTP server", "error", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("Failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), "error", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("Failed to set RCPT TO", "recipient", addr, "error", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("Failed to get Data writer", "error", sl.Err(err))
		return err
	}

	_, err = wc.Write([]byte(msg))
	if err != nil {
		s.log.Error("Failed to write email body", "error", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("Failed to close Data writer", "error", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("Failed to quit SMTP client", "error", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}

package services

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/magabrotheeeer/billing-backend/internal/lib/smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSMTPClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

type MockSMTPWriter struct {
	mock.Mock
}

func (m *MockSMTPWriter) Write(p []byte) (n int, err error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockSMTPWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func setupHappyPath(t *MockTransport) {
	mockClient := new(MockSMTPClient)
	mockWriter := new(MockSMTPWriter)

	t.On("GetSMTPUser").Return("sender@example.com")
	t.On("Connect").Return(mockClient, nil).Once()
	mockClient.On("Mail", "sender@example.com").Return(nil).Once()
	mockClient.On("Rcpt", "user@example.com").Return(nil).Once()
	mockClient.On("Data").Return(mockWriter, nil).Once()
	mockWriter.On("Write", mock.AnythingOfType("[]uint8")).Return(100, nil).Once()
	mockWriter.On("Close").Return(nil).Once()
	mockClient.On("Quit").Return(nil).Once()
	mockClient.On("Close").Return(nil).Once()
}

func TestSenderService_SendPaymentSucceeded(t *testing.T) {
	tests := []struct {
		name          string
		setupMocks    func(*MockTransport)
		expectedError bool
		errorMessage  string
	}{
		{
			name:          "success - send payment succeeded email",
			setupMocks:    setupHappyPath,
			expectedError: false,
		},
		{
			name: "SMTP connection error",
			setupMocks: func(t *MockTransport) {
				t.On("GetSMTPUser").Return("sender@example.com")
				t.On("Connect").Return(nil, errors.New("connection error")).Once()
			},
			expectedError: true,
			errorMessage:  "connection error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			service := NewSenderService(newNoopLogger(), transport)

			tt.setupMocks(transport)

			err := service.SendPaymentSucceeded("user@example.com")

			if tt.expectedError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMessage)
			} else {
				assert.NoError(t, err)
			}

			transport.AssertExpectations(t)
		})
	}
}

func TestSenderService_SendPaymentFailed(t *testing.T) {
	transport := new(MockTransport)
	service := NewSenderService(newNoopLogger(), transport)

	setupHappyPath(transport)

	err := service.SendPaymentFailed("user@example.com")

	assert.NoError(t, err)
	transport.AssertExpectations(t)
}

func TestSenderService_SendUpcomingInvoice(t *testing.T) {
	transport := new(MockTransport)
	service := NewSenderService(newNoopLogger(), transport)

	mockClient := new(MockSMTPClient)
	mockWriter := new(MockSMTPWriter)

	transport.On("GetSMTPUser").Return("sender@example.com")
	transport.On("Connect").Return(mockClient, nil).Once()
	mockClient.On("Mail", "sender@example.com").Return(nil).Once()
	mockClient.On("Rcpt", "user@example.com").Return(nil).Once()
	mockClient.On("Data").Return(mockWriter, nil).Once()
	mockWriter.On("Write", mock.MatchedBy(func(p []byte) bool {
		msg := string(p)
		return strings.Contains(msg, "9.99") && strings.Contains(msg, "15.01.2026")
	})).Return(100, nil).Once()
	mockWriter.On("Close").Return(nil).Once()
	mockClient.On("Quit").Return(nil).Once()
	mockClient.On("Close").Return(nil).Once()

	dueDate := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	err := service.SendUpcomingInvoice("user@example.com", 999, dueDate)

	assert.NoError(t, err)
	transport.AssertExpectations(t)
}

func TestSenderService_SendUpcomingInvoice_NoDueDate(t *testing.T) {
	transport := new(MockTransport)
	service := NewSenderService(newNoopLogger(), transport)

	mockClient := new(MockSMTPClient)
	mockWriter := new(MockSMTPWriter)

	transport.On("GetSMTPUser").Return("sender@example.com")
	transport.On("Connect").Return(mockClient, nil).Once()
	mockClient.On("Mail", "sender@example.com").Return(nil).Once()
	mockClient.On("Rcpt", "user@example.com").Return(nil).Once()
	mockClient.On("Data").Return(mockWriter, nil).Once()
	mockWriter.On("Write", mock.MatchedBy(func(p []byte) bool {
		msg := string(p)
		return strings.Contains(msg, "9.99") &&
			!strings.Contains(msg, "Дата оплаты") &&
			!strings.Contains(msg, "01.01.1970")
	})).Return(100, nil).Once()
	mockWriter.On("Close").Return(nil).Once()
	mockClient.On("Quit").Return(nil).Once()
	mockClient.On("Close").Return(nil).Once()

	err := service.SendUpcomingInvoice("user@example.com", 999, time.Time{})

	assert.NoError(t, err)
	transport.AssertExpectations(t)
}

func TestSenderService_NewSenderService(t *testing.T) {
	transport := new(MockTransport)
	logger := newNoopLogger()

	service := NewSenderService(logger, transport)

	assert.NotNil(t, service)
	assert.Equal(t, transport, service.transport)
	assert.Equal(t, logger, service.log)
}

func TestSenderService_SMTPErrorHandling(t *testing.T) {
	tests := []struct {
		name          string
		setupMocks    func(*MockTransport)
		expectedError bool
		errorMessage  string
	}{
		{
			name: "SMTP Mail error",
			setupMocks: func(t *MockTransport) {
				mockClient := new(MockSMTPClient)

				t.On("GetSMTPUser").Return("sender@example.com")
				t.On("Connect").Return(mockClient, nil).Once()
				mockClient.On("Mail", "sender@example.com").Return(errors.New("mail error")).Once()
				mockClient.On("Close").Return(nil).Once()
			},
			expectedError: true,
			errorMessage:  "mail error",
		},
		{
			name: "SMTP Rcpt error",
			setupMocks: func(t *MockTransport) {
				mockClient := new(MockSMTPClient)

				t.On("GetSMTPUser").Return("sender@example.com")
				t.On("Connect").Return(mockClient, nil).Once()
				mockClient.On("Mail", "sender@example.com").Return(nil).Once()
				mockClient.On("Rcpt", "user@example.com").Return(errors.New("rcpt error")).Once()
				mockClient.On("Close").Return(nil).Once()
			},
			expectedError: true,
			errorMessage:  "rcpt error",
		},
		{
			name: "SMTP Data error",
			setupMocks: func(t *MockTransport) {
				mockClient := new(MockSMTPClient)

				t.On("GetSMTPUser").Return("sender@example.com")
				t.On("Connect").Return(mockClient, nil).Once()
				mockClient.On("Mail", "sender@example.com").Return(nil).Once()
				mockClient.On("Rcpt", "user@example.com").Return(nil).Once()
				mockClient.On("Data").Return(nil, errors.New("data error")).Once()
				mockClient.On("Close").Return(nil).Once()
			},
			expectedError: true,
			errorMessage:  "data error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			service := NewSenderService(newNoopLogger(), transport)

			tt.setupMocks(transport)

			err := service.SendPaymentSucceeded("user@example.com")

			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMessage)

			transport.AssertExpectations(t)
		})
	}
}

package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	customjwt "github.com/magabrotheeeer/billing-backend/internal/lib/jwt"
	"github.com/magabrotheeeer/billing-backend/internal/lib/password"
	"github.com/magabrotheeeer/billing-backend/internal/models"
	services "github.com/magabrotheeeer/billing-backend/internal/services/auth"
	"github.com/magabrotheeeer/billing-backend/internal/storage/repository"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) UpdateUserToken(ctx context.Context, email, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

func (m *UserRepoMock) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

// Мок для PasswordResetRepository
type ResetRepoMock struct {
	mock.Mock
}

func (m *ResetRepoMock) GetPasswordResetByToken(ctx context.Context, token string) (*models.PasswordReset, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PasswordReset), args.Error(1)
}

func (m *ResetRepoMock) DeletePasswordReset(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Мок для jwt.Maker
type JwtMakerMock struct {
	mock.Mock
}

func (m *JwtMakerMock) GenerateToken(email string) (string, error) {
	args := m.Called(email)
	return args.String(0), args.Error(1)
}

func (m *JwtMakerMock) ParseToken(token string) (*customjwt.CustomClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customjwt.CustomClaims), args.Error(1)
}

func (m *JwtMakerMock) DecodeUnverified(token string) (*customjwt.CustomClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customjwt.CustomClaims), args.Error(1)
}

func TestAuthService_Login(t *testing.T) {
	rawPassword := "correctpassword"

	hashedPassword, err := password.GetHash(rawPassword)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	testUser := &models.User{
		ID:           1,
		Email:        "test@example.com",
		Username:     "test@example.com",
		PasswordHash: hashedPassword,
	}

	tests := []struct {
		name       string
		email      string
		password   string
		setupMocks func(r *UserRepoMock, j *JwtMakerMock)
		wantToken  string
		wantErr    error
	}{
		{
			name:     "successful login",
			email:    "test@example.com",
			password: rawPassword,
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("GetUserByEmail", mock.Anything, "test@example.com").Return(testUser, nil).Once()
				j.On("GenerateToken", "test@example.com").Return("jwt-token-123", nil).Once()
			},
			wantToken: "jwt-token-123",
		},
		{
			name:     "user not found",
			email:    "nobody@example.com",
			password: "password",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByEmail", mock.Anything, "nobody@example.com").Return(nil, repository.ErrUserNotFound).Once()
			},
			wantErr: services.ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			email:    "test@example.com",
			password: "wrongpassword",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByEmail", mock.Anything, "test@example.com").Return(testUser, nil).Once()
			},
			wantErr: services.ErrInvalidCredentials,
		},
		{
			name:     "token generation error",
			email:    "test@example.com",
			password: rawPassword,
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("GetUserByEmail", mock.Anything, "test@example.com").Return(testUser, nil).Once()
				j.On("GenerateToken", "test@example.com").Return("", errors.New("token error")).Once()
			},
			wantErr: errors.New("token error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			resets := new(ResetRepoMock)
			jwtMock := new(JwtMakerMock)
			svc := services.NewAuthService(repo, resets, jwtMock)

			tt.setupMocks(repo, jwtMock)

			user, err := svc.Login(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantToken, user.Token)
				assert.Equal(t, tt.email, user.Email)
			}

			repo.AssertExpectations(t)
			jwtMock.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login_DoesNotPersistToken(t *testing.T) {
	rawPassword := "correctpassword"
	hashedPassword, err := password.GetHash(rawPassword)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	repo := new(UserRepoMock)
	resets := new(ResetRepoMock)
	jwtMock := new(JwtMakerMock)
	svc := services.NewAuthService(repo, resets, jwtMock)

	repo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(&models.User{
		Email:        "test@example.com",
		PasswordHash: hashedPassword,
	}, nil).Once()
	jwtMock.On("GenerateToken", "test@example.com").Return("fresh-token", nil).Once()

	user, err := svc.Login(context.Background(), "test@example.com", rawPassword)
	assert.NoError(t, err)
	assert.Equal(t, "fresh-token", user.Token)

	// Вход не трогает сохранённый токен в хранилище.
	repo.AssertNotCalled(t, "UpdateUserToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_ValidateUserToken(t *testing.T) {
	validClaims := &customjwt.CustomClaims{
		Email: "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	expiredClaims := &customjwt.CustomClaims{
		Email: "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}

	tests := []struct {
		name       string
		token      string
		setupMocks func(r *UserRepoMock, j *JwtMakerMock)
		wantValid  bool
		wantErr    bool
	}{
		{
			name:  "valid token",
			token: "valid-token",
			setupMocks: func(_ *UserRepoMock, j *JwtMakerMock) {
				j.On("DecodeUnverified", "valid-token").Return(validClaims, nil).Once()
			},
			wantValid: true,
		},
		{
			name:  "malformed token",
			token: "not-a-jwt",
			setupMocks: func(_ *UserRepoMock, j *JwtMakerMock) {
				j.On("DecodeUnverified", "not-a-jwt").Return(nil, errors.New("token is malformed")).Once()
			},
			wantValid: false,
		},
		{
			name:  "token without expiration",
			token: "no-exp-token",
			setupMocks: func(_ *UserRepoMock, j *JwtMakerMock) {
				j.On("DecodeUnverified", "no-exp-token").Return(&customjwt.CustomClaims{
					Email: "test@example.com",
				}, nil).Once()
			},
			wantValid: false,
		},
		{
			name:  "expired token clears stored token",
			token: "expired-token",
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				j.On("DecodeUnverified", "expired-token").Return(expiredClaims, nil).Once()
				r.On("UpdateUserToken", mock.Anything, "test@example.com", "").Return(nil).Once()
			},
			wantValid: false,
		},
		{
			name:  "expired token for unknown user",
			token: "expired-token",
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				j.On("DecodeUnverified", "expired-token").Return(expiredClaims, nil).Once()
				r.On("UpdateUserToken", mock.Anything, "test@example.com", "").Return(repository.ErrUserNotFound).Once()
			},
			wantValid: false,
		},
		{
			name:  "expired token storage error",
			token: "expired-token",
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				j.On("DecodeUnverified", "expired-token").Return(expiredClaims, nil).Once()
				r.On("UpdateUserToken", mock.Anything, "test@example.com", "").Return(errors.New("db error")).Once()
			},
			wantValid: false,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			resets := new(ResetRepoMock)
			jwtMock := new(JwtMakerMock)
			svc := services.NewAuthService(repo, resets, jwtMock)

			tt.setupMocks(repo, jwtMock)

			valid, err := svc.ValidateUserToken(context.Background(), tt.token)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantValid, valid)

			repo.AssertExpectations(t)
			jwtMock.AssertExpectations(t)
		})
	}
}

func TestAuthService_ResetPassword(t *testing.T) {
	validReset := &models.PasswordReset{
		ID:        7,
		Token:     "reset-token",
		ExpiresAt: time.Now().Add(time.Hour),
		UserID:    42,
	}
	expiredReset := &models.PasswordReset{
		ID:        8,
		Token:     "old-token",
		ExpiresAt: time.Now().Add(-time.Hour),
		UserID:    42,
	}

	tests := []struct {
		name       string
		token      string
		setupMocks func(r *UserRepoMock, p *ResetRepoMock)
		wantErr    error
	}{
		{
			name:  "successful reset",
			token: "reset-token",
			setupMocks: func(r *UserRepoMock, p *ResetRepoMock) {
				p.On("GetPasswordResetByToken", mock.Anything, "reset-token").Return(validReset, nil).Once()
				r.On("UpdateUserPassword", mock.Anything, int64(42), mock.MatchedBy(func(hash string) bool {
					return password.CompareHash(hash, "newpassword123") == nil
				})).Return(nil).Once()
				p.On("DeletePasswordReset", mock.Anything, int64(7)).Return(nil).Once()
			},
		},
		{
			name:  "unknown token",
			token: "missing-token",
			setupMocks: func(_ *UserRepoMock, p *ResetRepoMock) {
				p.On("GetPasswordResetByToken", mock.Anything, "missing-token").Return(nil, repository.ErrResetTokenNotFound).Once()
			},
			wantErr: services.ErrInvalidResetToken,
		},
		{
			name:  "expired token",
			token: "old-token",
			setupMocks: func(_ *UserRepoMock, p *ResetRepoMock) {
				p.On("GetPasswordResetByToken", mock.Anything, "old-token").Return(expiredReset, nil).Once()
			},
			wantErr: services.ErrInvalidResetToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			resets := new(ResetRepoMock)
			jwtMock := new(JwtMakerMock)
			svc := services.NewAuthService(repo, resets, jwtMock)

			tt.setupMocks(repo, resets)

			err := svc.ResetPassword(context.Background(), tt.token, "newpassword123")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			repo.AssertExpectations(t)
			resets.AssertExpectations(t)
		})
	}
}

// Package forgetpassword реализует HTTP-обработчик смены пароля
// по одноразовому токену восстановления.
package forgetpassword

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/billing-backend/internal/http/response"
	"github.com/magabrotheeeer/billing-backend/internal/lib/sl"
	authservice "github.com/magabrotheeeer/billing-backend/internal/services/auth"
)

// Request — входные данные для смены пароля.
type Request struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// Service описывает интерфейс восстановления пароля.
type Service interface {
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Handler обрабатывает HTTP-запросы смены пароля.
type Handler struct {
	log         *slog.Logger
	authService Service
	validate    *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, authService Service) *Handler {
	return &Handler{
		log:         log,
		authService: authService,
		validate:    validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Смена пароля по токену восстановления
// @Description Проверяет одноразовый токен восстановления и сохраняет новый пароль. Токен удаляется после использования.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Токен восстановления и новый пароль"
// @Success 200 {object} map[string]any "Пароль обновлён"
// @Failure 400 {object} response.ErrorResponse "Недействительный или просроченный токен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/forget-password [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.forgetpassword"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, authservice.ErrInvalidResetToken) {
			log.Error("password reset rejected", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid or expired token"))
			return
		}
		log.Error("password reset failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to reset password"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "password updated successfully",
	}))
}

// Package update реализует HTTP-обработчик обновления учётной записи.
//
// Обновление перевыпускает bearer-токен пользователя и атомарно сохраняет
// его, возвращая обновлённый профиль.
package update

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
	"github.com/magabrotheeeer/billing-backend/internal/models"
	"github.com/magabrotheeeer/billing-backend/internal/storage/repository"
)

// Request — входные данные для обновления учётной записи.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"omitempty"`
	SurName  string `json:"surName" validate:"omitempty"`
	Avatar   string `json:"avatar" validate:"omitempty"`
	Username string `json:"username" validate:"omitempty,alphanum,min=5,max=15"`
}

// Service описывает интерфейс обновления учётной записи.
type Service interface {
	UpdateProfile(ctx context.Context, email string) (*models.User, error)
}

// Handler обрабатывает HTTP-запросы обновления учётной записи.
type Handler struct {
	log         *slog.Logger
	userService Service
	validate    *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, userService Service) *Handler {
	return &Handler{
		log:         log,
		userService: userService,
		validate:    validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Обновление учётной записи
// @Description Перевыпускает токен пользователя и возвращает обновлённый профиль.
// @Tags User
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные пользователя"
// @Success 200 {object} map[string]any "Обновлённый профиль"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /user/update-user [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.update"

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

	user, err := h.userService.UpdateProfile(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Error("user not found", slog.String("email", req.Email))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to update user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to update user"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(user.Public()))
}

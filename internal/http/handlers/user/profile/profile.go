// Package profile реализует HTTP-обработчик чтения собственного профиля.
package profile

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/billing-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-backend/internal/http/response"
	"github.com/magabrotheeeer/billing-backend/internal/lib/sl"
	"github.com/magabrotheeeer/billing-backend/internal/models"
)

// Service описывает интерфейс чтения профиля.
type Service interface {
	Profile(ctx context.Context, email string) (*models.PublicUser, error)
}

// Handler обрабатывает HTTP-запросы чтения профиля.
type Handler struct {
	log         *slog.Logger
	userService Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, userService Service) *Handler {
	return &Handler{
		log:         log,
		userService: userService,
	}
}

// ServeHTTP возвращает проекцию профиля аутентифицированного пользователя.
// Личность берётся из контекста запроса, установленного JWT middleware.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.profile"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	email, ok := r.Context().Value(middlewarectx.UserEmail).(string)
	if !ok || email == "" {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	profile, err := h.userService.Profile(r.Context(), email)
	if err != nil {
		log.Error("failed to get profile", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to get profile"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(profile))
}

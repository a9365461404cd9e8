// Package validatetoken реализует HTTP-обработчик проверки срока действия токена.
package validatetoken

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/billing-backend/internal/http/response"
	"github.com/magabrotheeeer/billing-backend/internal/lib/sl"
)

// Service описывает интерфейс проверки токена.
type Service interface {
	ValidateUserToken(ctx context.Context, token string) (bool, error)
}

// Handler обрабатывает HTTP-запросы проверки токена.
type Handler struct {
	log         *slog.Logger
	authService Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, authService Service) *Handler {
	return &Handler{
		log:         log,
		authService: authService,
	}
}

// ServeHTTP проверяет токен из query-параметра. Токен разбирается без
// проверки подписи; просроченный токен дополнительно очищает сохранённое
// значение на записи пользователя.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.validatetoken"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := r.URL.Query().Get("token")
	if token == "" {
		log.Error("token query parameter is missing")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("token is required"))
		return
	}

	isValid, err := h.authService.ValidateUserToken(r.Context(), token)
	if err != nil {
		log.Error("failed to validate token", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to validate token"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]bool{
		"isValid": isValid,
	}))
}

// Package scan реализует HTTP-обработчик, через который тренер отмечает ученика по его QR-коду.
package scan

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/attendance-checkin/internal/http/middlewarectx"
	"github.com/magabrotheeeer/attendance-checkin/internal/http/response"
	"github.com/magabrotheeeer/attendance-checkin/internal/lib/sl"
	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

// Handler обрабатывает сканирование QR-кода ученика тренером.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает отметку ученика тренером.
type Service interface {
	Scan(ctx context.Context, req models.ScanRequest) (models.CheckinOutcome, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Отметить ученика по его QR-коду
// @Description Тренер отмечает ученика на своей активной тренировке. Создателем посещения считается тренер.
// @Tags Trainer
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.ScanRequest true "Ученик и уточнения"
// @Success 200 {object} response.Response{data=models.CheckinOutcome} "Итог отметки"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Тренер, ученик, тренировка или абонемент не найдены"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /trainer/scan [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trainer.scan"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	userID, ok := middlewarectx.CurrentUserID(r.Context())
	if !ok {
		log.Error("user id not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	req.TrainerUserID = userID

	outcome, err := h.service.Scan(r.Context(), req)
	if err != nil {
		code := response.StatusCode(err)
		render.Status(r, code)
		if code == http.StatusInternalServerError {
			log.Error("failed to scan trainee", sl.Err(err))
			render.JSON(w, r, response.Error("could not mark attendance"))
			return
		}
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("trainee scanned", slog.String("trainee", req.TraineeUsername), slog.String("status", string(outcome.Status)))
	render.JSON(w, r, response.StatusOKWithData(outcome))
}

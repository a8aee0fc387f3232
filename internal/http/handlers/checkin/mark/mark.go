// Package mark реализует HTTP-обработчик отметки посещения по QR-коду тренера.
//
// Handler принимает данные QR-кода и необязательные уточнения (тренировка, абонемент,
// список детей для родителя), берёт имя пользователя из контекста и передаёт запрос
// в сервис отметки. Итог отметки возвращается в поле data.
package mark

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

// Handler обрабатывает запросы на отметку посещения.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает бизнес-логику отметки посещения.
type Service interface {
	Checkin(ctx context.Context, req models.CheckinRequest) (models.CheckinOutcome, error)
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
// @Summary Отметить посещение
// @Description Отмечает посещение текущего пользователя (или его детей) на активной тренировке тренера из QR-кода.
// @Description Статус в data: success, alreadyMarked, noActiveTrainings, specifyTraining, specifySubscription, trainerShouldNotMarkAttendance.
// @Tags Checkin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.CheckinRequest true "Данные QR-кода и уточнения"
// @Success 200 {object} response.Response{data=models.CheckinOutcome} "Итог отметки"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Тренер, тренировка или абонемент не найдены"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /checkin [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkin.mark"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.CheckinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			log.Error("validation failed", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid request body"))
			return
		}
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(verrs))
		return
	}

	username, ok := middlewarectx.Username(r.Context())
	if !ok {
		log.Error("username not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	req.ActingUsername = username

	outcome, err := h.service.Checkin(r.Context(), req)
	if err != nil {
		code := response.StatusCode(err)
		if code == http.StatusInternalServerError {
			log.Error("failed to mark attendance", sl.Err(err))
			render.Status(r, code)
			render.JSON(w, r, response.Error("could not mark attendance"))
			return
		}
		log.Warn("attendance rejected", sl.Err(err))
		render.Status(r, code)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("checkin handled", slog.String("username", username), slog.String("status", string(outcome.Status)))
	render.JSON(w, r, response.StatusOKWithData(outcome))
}

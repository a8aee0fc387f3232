// Package createtrainings реализует HTTP-обработчик пакетного создания тренировок тренером.
//
// Пакет принимается целиком или отклоняется целиком. При пересечениях расписания
// ответ 409 содержит все найденные пары.
package createtrainings

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/attendance-checkin/internal/http/middlewarectx"
	"github.com/magabrotheeeer/attendance-checkin/internal/http/response"
	"github.com/magabrotheeeer/attendance-checkin/internal/lib/sl"
	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

// TrainingDTO одна тренировка в запросе.
type TrainingDTO struct {
	Name        string     `json:"name" validate:"required"`
	Type        string     `json:"type" validate:"required,oneof=GROUP INDIVIDUAL"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	DurationMin *int       `json:"duration_min,omitempty"`
	GymID       *string    `json:"gym_id,omitempty"`
	GroupID     *string    `json:"group_id,omitempty"`
	TemplateID  *string    `json:"template_id,omitempty"`
}

// Request пакет тренировок.
type Request struct {
	Trainings []TrainingDTO `json:"trainings" validate:"required,min=1,dive"`
}

// Trainers находит профиль тренера текущего пользователя.
type Trainers interface {
	TrainerByUserID(ctx context.Context, userID string) (*models.TrainerProfile, error)
}

// Service создаёт тренировки.
type Service interface {
	CreateTrainings(ctx context.Context, trainerID string, trainings []models.ProposedTraining) ([]string, error)
}

// Handler обрабатывает пакетное создание тренировок.
type Handler struct {
	log      *slog.Logger
	trainers Trainers
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, trainers Trainers, service Service) *Handler {
	return &Handler{
		log:      log,
		trainers: trainers,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать тренировки
// @Description Создает пакет тренировок текущего тренера. Пакет с пересечениями отклоняется целиком.
// @Tags Trainer
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Пакет тренировок"
// @Success 201 {object} map[string]any "Идентификаторы созданных тренировок"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Тренер, зал, группа или шаблон не найдены"
// @Failure 409 {object} response.ConflictResponse "Пересечения расписания"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /trainer/trainings [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trainer.createtrainings"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
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

	trainer, err := h.trainers.TrainerByUserID(r.Context(), userID)
	if err != nil {
		code := response.StatusCode(err)
		if code == http.StatusNotFound {
			render.Status(r, code)
			render.JSON(w, r, response.Error("user is not a trainer"))
			return
		}
		log.Error("failed to load trainer", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create trainings"))
		return
	}

	ids, err := h.service.CreateTrainings(r.Context(), trainer.ID, toProposed(req.Trainings))
	if err != nil {
		var conflict *models.ScheduleConflictError
		if errors.As(err, &conflict) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Conflict(conflict))
			return
		}
		code := response.StatusCode(err)
		render.Status(r, code)
		if code == http.StatusInternalServerError {
			log.Error("failed to create trainings", sl.Err(err))
			render.JSON(w, r, response.Error("could not create trainings"))
			return
		}
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	log.Info("trainings created", slog.String("trainer_id", trainer.ID), slog.Int("count", len(ids)))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"training_ids": ids,
	}))
}

func toProposed(dtos []TrainingDTO) []models.ProposedTraining {
	out := make([]models.ProposedTraining, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, models.ProposedTraining{
			Name:        d.Name,
			Type:        models.TrainingType(d.Type),
			StartDate:   d.StartDate,
			DurationMin: d.DurationMin,
			GymID:       d.GymID,
			GroupID:     d.GroupID,
			TemplateID:  d.TemplateID,
		})
	}
	return out
}

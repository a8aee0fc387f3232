// Package attendance записывает факт посещения тренировки ровно один раз
// и списывает занятие с абонемента.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/attendance-checkin/internal/lib/sl"
	"github.com/magabrotheeeer/attendance-checkin/internal/metrics"
	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

// RoutingKeyAttendanceRecorded ключ маршрутизации события о записи посещения.
const RoutingKeyAttendanceRecorded = "attendance.recorded"

// Repository описывает хранилище посещений.
type Repository interface {
	// RecordAttendance в одной транзакции добавляет ученика в группу тренировки,
	// блокирует и перепроверяет абонемент, вставляет посещение и списывает занятие.
	// Если посещение для пары (ученик, тренировка) уже есть, возвращает inserted == false
	// и ничего не меняет.
	RecordAttendance(ctx context.Context, params models.RecordAttendance) (a models.Attendance, inserted bool, err error)
}

// EventPublisher публикует события для других сервисов.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Recorder записывает посещения.
type Recorder struct {
	repo      Repository
	publisher EventPublisher
	log       *slog.Logger
}

// NewRecorder создаёт Recorder. publisher может быть nil.
func NewRecorder(repo Repository, publisher EventPublisher, log *slog.Logger) *Recorder {
	return &Recorder{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// Record записывает посещение и возвращает StatusSuccess либо StatusAlreadyMarked.
func (r *Recorder) Record(ctx context.Context, params models.RecordAttendance) (models.CheckinStatus, error) {
	const op = "attendance.Record"
	log := r.log.With(
		slog.String("op", op),
		slog.String("trainee_id", params.TraineeID),
		slog.String("training_id", params.TrainingID),
	)

	a, inserted, err := r.repo.RecordAttendance(ctx, params)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Info("attendance rejected", sl.Err(err))
		} else {
			log.Error("failed to record attendance", sl.Err(err))
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !inserted {
		log.Info("attendance already marked")
		return models.StatusAlreadyMarked, nil
	}

	metrics.AttendancesRecorded.Inc()
	log.Info("attendance recorded", slog.String("attendance_id", a.ID))

	if r.publisher != nil {
		event := models.AttendanceRecordedEvent{
			AttendanceID:          a.ID,
			TraineeID:             a.TraineeID,
			TrainingID:            a.TrainingID,
			SubscriptionTraineeID: a.SubscriptionTraineeID,
			CreatedBy:             a.CreatedByUserID,
			MarkedAt:              a.MarkedAt,
		}
		if err := r.publisher.Publish(ctx, RoutingKeyAttendanceRecorded, event); err != nil {
			log.Warn("failed to publish attendance event", sl.Err(err))
		}
	}
	return models.StatusSuccess, nil
}

// Package schedule создаёт тренировки тренера пакетом и отклоняет пакет,
// если новые тренировки пересекаются между собой или с уже существующими.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/attendance-checkin/internal/lib/sl"
	"github.com/magabrotheeeer/attendance-checkin/internal/lib/timewindow"
	"github.com/magabrotheeeer/attendance-checkin/internal/metrics"
	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

// RoutingKeyTrainingsCreated ключ маршрутизации события о создании тренировок.
const RoutingKeyTrainingsCreated = "trainings.created"

// TrainingRepository описывает хранилище тренировок.
type TrainingRepository interface {
	// MissingReferences возвращает идентификаторы залов, групп и шаблонов, которых нет в базе.
	MissingReferences(ctx context.Context, gymIDs, groupIDs, templateIDs []string) ([]string, error)
	// CreateTrainings в одной транзакции блокирует тренера, выбирает его тренировки,
	// начинающиеся в [from, to), передаёт их в check и при успехе вставляет новые тренировки.
	// Если check равен nil, выборка не выполняется.
	CreateTrainings(ctx context.Context, trainerID string, from, to time.Time,
		trainings []models.ProposedTraining, check func(existing []models.Training) error) ([]string, error)
}

// EventPublisher публикует события для других сервисов.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service реализует пакетное создание тренировок с проверкой пересечений.
type Service struct {
	repo      TrainingRepository
	publisher EventPublisher
	lookBack  time.Duration
	log       *slog.Logger
}

// NewService создаёт Service. lookBack задаёт, насколько раньше начала пакета
// искать уже существующие тренировки.
func NewService(repo TrainingRepository, publisher EventPublisher, lookBack time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		lookBack:  lookBack,
		log:       log,
	}
}

// CreateTrainings проверяет пакет и создаёт тренировки для тренера.
// При пересечениях возвращает *models.ScheduleConflictError со всеми найденными парами.
func (s *Service) CreateTrainings(ctx context.Context, trainerID string, trainings []models.ProposedTraining) ([]string, error) {
	const op = "schedule.CreateTrainings"
	log := s.log.With(slog.String("op", op), slog.String("trainer_id", trainerID))

	if len(trainings) == 0 {
		return nil, fmt.Errorf("%s: no trainings given: %w", op, models.ErrBadRequest)
	}

	var planned []Item
	for i, t := range trainings {
		if strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("%s: training #%d has no name: %w", op, i, models.ErrBadRequest)
		}
		if !t.Type.Valid() {
			return nil, fmt.Errorf("%s: training %q has unknown type %q: %w", op, t.Name, t.Type, models.ErrBadRequest)
		}
		if t.DurationMin != nil && *t.DurationMin <= 0 {
			return nil, fmt.Errorf("%s: training %q: %w", op, t.Name, models.ErrInvalidWindow)
		}
		if !timewindow.Scheduled(t.StartDate, t.DurationMin) {
			continue
		}
		w, err := timewindow.New(t.StartDate, t.DurationMin)
		if err != nil {
			return nil, fmt.Errorf("%s: training %q: %w", op, t.Name, err)
		}
		planned = append(planned, Item{Name: t.Name, Origin: models.OriginNew, Window: w})
	}

	gymIDs, groupIDs, templateIDs := references(trainings)
	missing, err := s.repo.MissingReferences(ctx, gymIDs, groupIDs, templateIDs)
	if err != nil {
		log.Error("failed to check references", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: unknown ids %s: %w", op, strings.Join(missing, ", "), models.ErrNotFound)
	}

	var (
		from, to time.Time
		check    func([]models.Training) error
	)
	if span, ok := timewindow.Span(windows(planned)); ok {
		from, to = span.Start.Add(-s.lookBack), span.End
		check = func(existing []models.Training) error {
			return checkConflicts(planned, existing)
		}
	}

	ids, err := s.repo.CreateTrainings(ctx, trainerID, from, to, trainings, check)
	if err != nil {
		var conflict *models.ScheduleConflictError
		if errors.As(err, &conflict) {
			metrics.ScheduleConflicts.Inc()
			log.Info("training batch rejected", slog.Int("conflicts", len(conflict.Pairs)))
			return nil, err
		}
		log.Error("failed to create trainings", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("trainings created", slog.Int("count", len(ids)))

	if s.publisher != nil {
		event := models.TrainingsCreatedEvent{TrainerID: trainerID, TrainingIDs: ids}
		if err := s.publisher.Publish(ctx, RoutingKeyTrainingsCreated, event); err != nil {
			log.Warn("failed to publish trainings created event", sl.Err(err))
		}
	}
	return ids, nil
}

func checkConflicts(planned []Item, existing []models.Training) error {
	items := make([]Item, 0, len(planned)+len(existing))
	items = append(items, planned...)
	for _, t := range existing {
		if !timewindow.Scheduled(t.StartDate, t.DurationMin) {
			continue
		}
		w, err := timewindow.Of(t)
		if err != nil {
			// у существующей тренировки некорректная длительность, проверять нечего
			continue
		}
		items = append(items, Item{Name: t.Name, Origin: models.OriginExisting, Window: w})
	}
	if pairs := FindConflicts(items); len(pairs) > 0 {
		return &models.ScheduleConflictError{Pairs: pairs}
	}
	return nil
}

func windows(items []Item) []timewindow.Window {
	out := make([]timewindow.Window, 0, len(items))
	for _, it := range items {
		out = append(out, it.Window)
	}
	return out
}

func references(trainings []models.ProposedTraining) (gymIDs, groupIDs, templateIDs []string) {
	seen := make(map[*[]string]map[string]struct{})
	add := func(dst *[]string, id *string) {
		if id == nil {
			return
		}
		if seen[dst] == nil {
			seen[dst] = make(map[string]struct{})
		}
		if _, ok := seen[dst][*id]; ok {
			return
		}
		seen[dst][*id] = struct{}{}
		*dst = append(*dst, *id)
	}
	for _, t := range trainings {
		add(&gymIDs, t.GymID)
		add(&groupIDs, t.GroupID)
		add(&templateIDs, t.TemplateID)
	}
	return gymIDs, groupIDs, templateIDs
}

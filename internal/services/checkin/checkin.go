// Package checkin обрабатывает отметку посещения по QR-коду тренера.
//
// Service проверяет входные данные, определяет по набору ролей пользователя,
// от чьего имени идёт отметка (ученик, родитель или тренер), и передаёт запрос
// в соответствующий сценарий. Сценарии используют поиск активных тренировок,
// выбор абонемента и запись посещения.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/attendance-checkin/internal/lib/sl"
	"github.com/magabrotheeeer/attendance-checkin/internal/metrics"
	"github.com/magabrotheeeer/attendance-checkin/internal/models"
	"github.com/magabrotheeeer/attendance-checkin/internal/services/entitlement"
)

// Repository описывает данные о пользователях и посещениях, нужные сценариям отметки.
type Repository interface {
	// UserByUsername возвращает пользователя с ролями и профилями или models.ErrNotFound.
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	TrainingExists(ctx context.Context, id string) (bool, error)
	SubscriptionTraineeExists(ctx context.Context, id string) (bool, error)
	// ParentLinks возвращает связи родителя с детьми.
	ParentLinks(ctx context.Context, parentID string) ([]models.ParentTraineeLink, error)
	// TraineeProfiles возвращает профили учеников с их группами. Отсутствующие id пропускаются.
	TraineeProfiles(ctx context.Context, ids []string) ([]models.TraineeProfile, error)
	HasAttendance(ctx context.Context, traineeID, trainingID string) (bool, error)
}

// TrainerDirectory ищет профили тренеров.
type TrainerDirectory interface {
	// TrainerByQRCode возвращает тренера по имени и ключу QR-кода.
	TrainerByQRCode(ctx context.Context, username, key string) (*models.TrainerProfile, error)
	TrainerByUserID(ctx context.Context, userID string) (*models.TrainerProfile, error)
}

// ActiveTrainings возвращает тренировки тренера, идущие в момент now.
type ActiveTrainings interface {
	Active(ctx context.Context, trainerID string, now time.Time) ([]models.Training, error)
}

// Entitlements выбирает абонемент для посещения.
type Entitlements interface {
	Select(ctx context.Context, traineeID string, training models.Training, explicitID *string, now time.Time) (entitlement.Selection, error)
}

// Recorder записывает посещение.
type Recorder interface {
	Record(ctx context.Context, params models.RecordAttendance) (models.CheckinStatus, error)
}

// Service сценарии отметки посещения.
type Service struct {
	repo     Repository
	trainers TrainerDirectory
	active   ActiveTrainings
	selector Entitlements
	recorder Recorder
	now      func() time.Time
	log      *slog.Logger
}

// NewService создаёт Service.
func NewService(repo Repository, trainers TrainerDirectory, active ActiveTrainings,
	selector Entitlements, recorder Recorder, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		trainers: trainers,
		active:   active,
		selector: selector,
		recorder: recorder,
		now:      time.Now,
		log:      log,
	}
}

// Checkin отмечает посещение от имени пользователя req.ActingUsername.
// Все проверки выполняются до первой записи в хранилище.
func (s *Service) Checkin(ctx context.Context, req models.CheckinRequest) (models.CheckinOutcome, error) {
	const op = "checkin.Checkin"
	log := s.log.With(
		slog.String("op", op),
		slog.String("username", req.ActingUsername),
		slog.String("trainer", req.TrainerUsername),
	)

	user, trainer, err := s.validate(ctx, req)
	if err != nil {
		if !isClientError(err) {
			log.Error("validation failed", sl.Err(err))
		}
		return models.CheckinOutcome{}, fmt.Errorf("%s: %w", op, err)
	}

	f := classify(*user)
	out, err := f.handle(ctx, s, command{req: req, user: *user, trainer: *trainer, now: s.now()})
	if err != nil {
		if !isClientError(err) {
			log.Error("check-in failed", slog.String("flow", f.name()), sl.Err(err))
		}
		return models.CheckinOutcome{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.CheckinOutcomes.WithLabelValues(f.name(), string(out.Status)).Inc()
	log.Info("check-in handled", slog.String("flow", f.name()), slog.String("status", string(out.Status)))
	return out, nil
}

// validate параллельно проверяет пользователя, тренера и переданные идентификаторы.
func (s *Service) validate(ctx context.Context, req models.CheckinRequest) (*models.User, *models.TrainerProfile, error) {
	if req.ActingUsername == "" {
		return nil, nil, fmt.Errorf("username is required: %w", models.ErrBadRequest)
	}

	var (
		user    *models.User
		trainer *models.TrainerProfile
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		u, err := s.repo.UserByUsername(gctx, req.ActingUsername)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("user %q: %w", req.ActingUsername, models.ErrBadRequest)
			}
			return err
		}
		if u.TraineeProfile == nil && u.ParentProfile == nil && !u.HasRole(models.RoleTrainer) {
			return fmt.Errorf("user %q has neither trainee nor parent profile: %w", req.ActingUsername, models.ErrBadRequest)
		}
		user = u
		return nil
	})

	g.Go(func() error {
		t, err := s.trainers.TrainerByQRCode(gctx, req.TrainerUsername, req.TrainerQRCodeKey)
		if err != nil {
			return fmt.Errorf("trainer %q: %w", req.TrainerUsername, err)
		}
		trainer = t
		return nil
	})

	trainingIDs, subscriptionIDs := referencedIDs(req.TrainingID, req.SubscriptionTraineeID, req.ChildrenAndTrainings)
	s.checkExist(gctx, g, trainingIDs, subscriptionIDs)

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return user, trainer, nil
}

func (s *Service) checkExist(ctx context.Context, g *errgroup.Group, trainingIDs, subscriptionIDs []string) {
	for _, id := range trainingIDs {
		g.Go(func() error {
			ok, err := s.repo.TrainingExists(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("training %s: %w", id, models.ErrNotFound)
			}
			return nil
		})
	}
	for _, id := range subscriptionIDs {
		g.Go(func() error {
			ok, err := s.repo.SubscriptionTraineeExists(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("subscription %s: %w", id, models.ErrNotFound)
			}
			return nil
		})
	}
}

func referencedIDs(trainingID, subscriptionID *string, children []models.ChildCheckin) (trainings, subscriptions []string) {
	seenT := make(map[string]struct{})
	seenS := make(map[string]struct{})
	addT := func(id *string) {
		if id == nil {
			return
		}
		if _, ok := seenT[*id]; !ok {
			seenT[*id] = struct{}{}
			trainings = append(trainings, *id)
		}
	}
	addS := func(id *string) {
		if id == nil {
			return
		}
		if _, ok := seenS[*id]; !ok {
			seenS[*id] = struct{}{}
			subscriptions = append(subscriptions, *id)
		}
	}
	addT(trainingID)
	addS(subscriptionID)
	for _, c := range children {
		addT(c.TrainingID)
		addS(c.SubscriptionTraineeID)
	}
	return trainings, subscriptions
}

func isClientError(err error) bool {
	return errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrBadRequest)
}

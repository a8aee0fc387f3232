package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/attendance-checkin/internal/lib/sl"
	"github.com/magabrotheeeer/attendance-checkin/internal/metrics"
	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

// Scan отмечает ученика, чей QR-код отсканировал тренер.
// Создателем посещения считается тренер.
func (s *Service) Scan(ctx context.Context, req models.ScanRequest) (models.CheckinOutcome, error) {
	const op = "checkin.Scan"
	log := s.log.With(
		slog.String("op", op),
		slog.String("trainer_user_id", req.TrainerUserID),
		slog.String("trainee", req.TraineeUsername),
	)

	var (
		trainer *models.TrainerProfile
		trainee *models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.trainers.TrainerByUserID(gctx, req.TrainerUserID)
		if err != nil {
			return fmt.Errorf("trainer: %w", err)
		}
		trainer = t
		return nil
	})
	g.Go(func() error {
		u, err := s.repo.UserByUsername(gctx, req.TraineeUsername)
		if err != nil {
			return fmt.Errorf("trainee %q: %w", req.TraineeUsername, err)
		}
		if u.TraineeProfile == nil {
			return fmt.Errorf("user %q is not a trainee: %w", req.TraineeUsername, models.ErrBadRequest)
		}
		trainee = u
		return nil
	})
	trainingIDs, subscriptionIDs := referencedIDs(req.TrainingID, req.SubscriptionTraineeID, nil)
	s.checkExist(gctx, g, trainingIDs, subscriptionIDs)

	if err := g.Wait(); err != nil {
		if !isClientError(err) {
			log.Error("validation failed", sl.Err(err))
		}
		return models.CheckinOutcome{}, fmt.Errorf("%s: %w", op, err)
	}

	out, err := s.markTrainee(ctx, markParams{
		trainerID:      trainer.ID,
		profile:        *trainee.TraineeProfile,
		createdBy:      trainer.UserID,
		trainingID:     req.TrainingID,
		subscriptionID: req.SubscriptionTraineeID,
		now:            s.now(),
	})
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.Error("scan failed", sl.Err(err))
		}
		return models.CheckinOutcome{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.CheckinOutcomes.WithLabelValues("scan", string(out.Status)).Inc()
	log.Info("scan handled", slog.String("status", string(out.Status)))
	return out, nil
}

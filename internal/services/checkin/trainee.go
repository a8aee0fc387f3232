package checkin

import (
	"context"
	"time"

	"github.com/magabrotheeeer/attendance-checkin/internal/models"
	"github.com/magabrotheeeer/attendance-checkin/internal/services/training"
)

type markParams struct {
	trainerID      string
	profile        models.TraineeProfile
	createdBy      string
	trainingID     *string
	subscriptionID *string
	now            time.Time
}

// markTrainee отмечает одного ученика на активной тренировке тренера.
func (s *Service) markTrainee(ctx context.Context, p markParams) (models.CheckinOutcome, error) {
	active, err := s.active.Active(ctx, p.trainerID, p.now)
	if err != nil {
		return models.CheckinOutcome{}, err
	}

	res, err := training.Resolve(active, p.trainingID, p.profile.GroupIDs)
	if err != nil {
		return models.CheckinOutcome{}, err
	}
	if !res.Resolved() {
		return models.CheckinOutcome{Status: res.Status, Trainings: res.Candidates}, nil
	}
	if res.Training.HasAttendee(p.profile.ID) {
		return models.CheckinOutcome{Status: models.StatusAlreadyMarked, TrainingID: res.Training.ID}, nil
	}

	status, subs, err := s.record(ctx, p.profile.ID, res.Training, p.createdBy, p.subscriptionID, p.now)
	if err != nil {
		return models.CheckinOutcome{}, err
	}
	return models.CheckinOutcome{Status: status, TrainingID: res.Training.ID, Subscriptions: subs}, nil
}

// record выбирает абонемент и записывает посещение.
// Если подходит несколько абонементов, возвращает specifySubscription со списком.
func (s *Service) record(ctx context.Context, traineeID string, t models.Training, createdBy string,
	subscriptionID *string, now time.Time) (models.CheckinStatus, []models.SubscriptionCandidate, error) {
	sel, err := s.selector.Select(ctx, traineeID, t, subscriptionID, now)
	if err != nil {
		return "", nil, err
	}
	if sel.NeedsChoice() {
		return models.StatusSpecifySubscription, sel.Candidates, nil
	}

	status, err := s.recorder.Record(ctx, models.RecordAttendance{
		TrainingID:            t.ID,
		GroupID:               t.GroupID,
		TraineeID:             traineeID,
		CreatedByUserID:       createdBy,
		SubscriptionTraineeID: sel.ChosenID(),
		Now:                   now,
	})
	if err != nil {
		return "", nil, err
	}
	return status, nil, nil
}

// Package entitlement выбирает абонемент ученика, которым оплачивается посещение.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/attendance-checkin/internal/lib/sl"
	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

// Repository описывает хранилище абонементов учеников.
type Repository interface {
	// SubscriptionTraineeByID возвращает абонемент ученика или models.ErrNotFound.
	SubscriptionTraineeByID(ctx context.Context, id string) (*models.SubscriptionTrainee, error)
	// EligibleSubscriptionTrainees возвращает оплаченные, не истёкшие и не израсходованные абонементы ученика.
	EligibleSubscriptionTrainees(ctx context.Context, traineeID string, now time.Time) ([]models.SubscriptionTrainee, error)
}

// Selection результат выбора абонемента.
// Пустой Selection означает посещение без абонемента.
type Selection struct {
	Chosen     *models.SubscriptionTrainee
	Candidates []models.SubscriptionCandidate
}

// NeedsChoice сообщает, что подходит несколько абонементов и пользователь должен выбрать один.
func (s Selection) NeedsChoice() bool {
	return s.Chosen == nil && len(s.Candidates) > 1
}

// ChosenID возвращает идентификатор выбранного абонемента или nil.
func (s Selection) ChosenID() *string {
	if s.Chosen == nil {
		return nil
	}
	id := s.Chosen.ID
	return &id
}

// Selector выбирает абонемент для посещения.
type Selector struct {
	repo Repository
	log  *slog.Logger
}

// NewSelector создаёт Selector.
func NewSelector(repo Repository, log *slog.Logger) *Selector {
	return &Selector{repo: repo, log: log}
}

// Select подбирает абонемент ученика traineeID для тренировки training.
// Явно указанный абонемент должен принадлежать ученику и быть действующим, иначе ErrNotFound.
func (s *Selector) Select(ctx context.Context, traineeID string, training models.Training, explicitID *string, now time.Time) (Selection, error) {
	const op = "entitlement.Select"
	log := s.log.With(slog.String("op", op), slog.String("trainee_id", traineeID))

	if explicitID != nil {
		sub, err := s.repo.SubscriptionTraineeByID(ctx, *explicitID)
		if err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				log.Error("failed to get subscription", sl.Err(err))
			}
			return Selection{}, fmt.Errorf("%s: %w", op, err)
		}
		if sub.TraineeID != traineeID || !sub.Eligible(now) {
			return Selection{}, fmt.Errorf("%s: subscription %s is not available: %w", op, *explicitID, models.ErrNotFound)
		}
		return Selection{Chosen: sub}, nil
	}

	subs, err := s.repo.EligibleSubscriptionTrainees(ctx, traineeID, now)
	if err != nil {
		log.Error("failed to list subscriptions", sl.Err(err))
		return Selection{}, fmt.Errorf("%s: %w", op, err)
	}

	var suitable []models.SubscriptionTrainee
	for _, sub := range subs {
		if !sub.Eligible(now) || !sub.CoversGroup(training.GroupID) || !sub.TrainingType.Covers(training.Type) {
			continue
		}
		suitable = append(suitable, sub)
	}

	switch len(suitable) {
	case 0:
		return Selection{}, nil
	case 1:
		return Selection{Chosen: &suitable[0]}, nil
	}

	candidates := make([]models.SubscriptionCandidate, 0, len(suitable))
	for _, sub := range suitable {
		candidates = append(candidates, models.SubscriptionCandidate{ID: sub.ID, Name: sub.SubscriptionName})
	}
	log.Debug("several subscriptions fit", slog.Int("count", len(candidates)))
	return Selection{Candidates: candidates}, nil
}

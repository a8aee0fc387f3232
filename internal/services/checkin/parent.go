package checkin

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/attendance-checkin/internal/models"
	"github.com/magabrotheeeer/attendance-checkin/internal/services/training"
)

// markChildren отмечает детей родителя.
//
// Дети обрабатываются по очереди, запись каждого фиксируется отдельно. Ребёнок,
// для которого нужно уточнить тренировку или абонемент, не останавливает остальных:
// все такие случаи собираются в ответе вместе со списками вариантов.
func (s *Service) markChildren(ctx context.Context, parent models.ParentProfile, cmd command) (models.CheckinOutcome, error) {
	children := cmd.req.ChildrenAndTrainings
	if err := checkChildren(children); err != nil {
		return models.CheckinOutcome{}, err
	}

	links, err := s.repo.ParentLinks(ctx, parent.ID)
	if err != nil {
		return models.CheckinOutcome{}, err
	}
	linked := make(map[string]struct{}, len(links))
	for _, l := range links {
		linked[l.TraineeID] = struct{}{}
	}
	ids := make([]string, 0, len(children))
	for _, c := range children {
		if _, ok := linked[c.TraineeID]; !ok {
			return models.CheckinOutcome{}, fmt.Errorf("trainee %s is not linked to parent: %w", c.TraineeID, models.ErrBadRequest)
		}
		ids = append(ids, c.TraineeID)
	}

	found, err := s.repo.TraineeProfiles(ctx, ids)
	if err != nil {
		return models.CheckinOutcome{}, err
	}
	profiles := make(map[string]models.TraineeProfile, len(found))
	for _, p := range found {
		profiles[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := profiles[id]; !ok {
			return models.CheckinOutcome{}, fmt.Errorf("trainee %s: %w", id, models.ErrNotFound)
		}
	}

	// отмеченных на явной тренировке детей отсеиваем до поиска активных тренировок
	outcomes, children, err := s.dropMarked(ctx, children)
	if err != nil {
		return models.CheckinOutcome{}, err
	}
	if len(children) == 0 {
		return models.CheckinOutcome{Status: models.StatusAlreadyMarked, Children: outcomes}, nil
	}

	active, err := s.active.Active(ctx, cmd.trainer.ID, cmd.now)
	if err != nil {
		return models.CheckinOutcome{}, err
	}
	if len(active) == 0 {
		return models.CheckinOutcome{Status: models.StatusNoActiveTrainings}, nil
	}

	type pending struct {
		child    models.ChildCheckin
		training models.Training
	}
	var queue []pending
	for _, c := range children {
		res, err := training.Resolve(active, c.TrainingID, profiles[c.TraineeID].GroupIDs)
		if err != nil {
			return models.CheckinOutcome{}, err
		}
		switch {
		case !res.Resolved():
			outcomes = append(outcomes, models.ChildOutcome{TraineeID: c.TraineeID, Status: res.Status, Trainings: res.Candidates})
		case res.Training.HasAttendee(c.TraineeID):
			outcomes = append(outcomes, models.ChildOutcome{
				TraineeID: c.TraineeID, Status: models.StatusAlreadyMarked, TrainingID: res.Training.ID,
			})
		default:
			queue = append(queue, pending{child: c, training: res.Training})
		}
	}

	for _, p := range queue {
		// ребёнка могли отметить параллельно, пока обрабатывались предыдущие
		marked, err := s.repo.HasAttendance(ctx, p.child.TraineeID, p.training.ID)
		if err != nil {
			return models.CheckinOutcome{}, err
		}
		if marked {
			outcomes = append(outcomes, models.ChildOutcome{
				TraineeID: p.child.TraineeID, Status: models.StatusAlreadyMarked, TrainingID: p.training.ID,
			})
			continue
		}

		status, subs, err := s.record(ctx, p.child.TraineeID, p.training, cmd.user.ID, p.child.SubscriptionTraineeID, cmd.now)
		if err != nil {
			return models.CheckinOutcome{}, fmt.Errorf("trainee %s: %w", p.child.TraineeID, err)
		}
		outcomes = append(outcomes, models.ChildOutcome{
			TraineeID:     p.child.TraineeID,
			Status:        status,
			TrainingID:    p.training.ID,
			Subscriptions: subs,
		})
	}

	out := models.CheckinOutcome{Status: summarize(outcomes), Children: outcomes}
	if out.Status == models.StatusSpecifyTraining {
		out.Trainings = models.Candidates(active)
	}
	return out, nil
}

// dropMarked убирает детей, уже отмеченных на явно указанной тренировке.
// Дети без тренировки возвращаются как есть.
func (s *Service) dropMarked(ctx context.Context, children []models.ChildCheckin) ([]models.ChildOutcome, []models.ChildCheckin, error) {
	var (
		outcomes []models.ChildOutcome
		rest     = make([]models.ChildCheckin, 0, len(children))
	)
	for _, c := range children {
		if c.TrainingID == nil {
			rest = append(rest, c)
			continue
		}
		marked, err := s.repo.HasAttendance(ctx, c.TraineeID, *c.TrainingID)
		if err != nil {
			return nil, nil, err
		}
		if marked {
			outcomes = append(outcomes, models.ChildOutcome{
				TraineeID: c.TraineeID, Status: models.StatusAlreadyMarked, TrainingID: *c.TrainingID,
			})
			continue
		}
		rest = append(rest, c)
	}
	return outcomes, rest, nil
}

// checkChildren проверяет список детей до любых обращений к хранилищу.
func checkChildren(children []models.ChildCheckin) error {
	if len(children) == 0 {
		return fmt.Errorf("children are required: %w", models.ErrBadRequest)
	}
	withTraining := 0
	seen := make(map[string]struct{}, len(children))
	for _, c := range children {
		if c.TraineeID == "" {
			return fmt.Errorf("trainee id is required: %w", models.ErrBadRequest)
		}
		if _, ok := seen[c.TraineeID]; ok {
			return fmt.Errorf("trainee %s is listed twice: %w", c.TraineeID, models.ErrBadRequest)
		}
		seen[c.TraineeID] = struct{}{}
		if c.TrainingID != nil {
			withTraining++
		}
	}
	if withTraining != 0 && withTraining != len(children) {
		return fmt.Errorf("training id must be given for all children or for none: %w", models.ErrBadRequest)
	}
	return nil
}

// summarize сводит итоги по детям в общий статус.
func summarize(outcomes []models.ChildOutcome) models.CheckinStatus {
	var training, subscription, success bool
	for _, o := range outcomes {
		switch o.Status {
		case models.StatusSpecifyTraining:
			training = true
		case models.StatusSpecifySubscription:
			subscription = true
		case models.StatusSuccess:
			success = true
		}
	}
	switch {
	case training:
		return models.StatusSpecifyTraining
	case subscription:
		return models.StatusSpecifySubscription
	case success:
		return models.StatusSuccess
	default:
		return models.StatusAlreadyMarked
	}
}

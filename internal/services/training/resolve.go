package training

import (
	"fmt"

	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

// Resolution результат выбора тренировки среди активных.
// Если Status пуст, тренировка выбрана и лежит в Training.
type Resolution struct {
	Status     models.CheckinStatus
	Training   models.Training
	Candidates []models.TrainingCandidate
}

// Resolved сообщает, что тренировка однозначно выбрана.
func (r Resolution) Resolved() bool {
	return r.Status == ""
}

// Resolve выбирает тренировку для ученика, состоящего в группах groupIDs.
//
// Явно переданный trainingID должен быть среди активных, иначе ErrNotFound.
// Если выбрать однозначно не удаётся, возвращается статус specifyTraining со списком кандидатов.
func Resolve(active []models.Training, trainingID *string, groupIDs []string) (Resolution, error) {
	const op = "training.Resolve"
	if len(active) == 0 {
		return Resolution{Status: models.StatusNoActiveTrainings}, nil
	}
	if trainingID != nil {
		for _, t := range active {
			if t.ID == *trainingID {
				return Resolution{Training: t}, nil
			}
		}
		return Resolution{}, fmt.Errorf("%s: training %s is not active: %w", op, *trainingID, models.ErrNotFound)
	}
	if len(active) == 1 {
		return Resolution{Training: active[0]}, nil
	}
	t, err := Disambiguate(active, groupIDs)
	if err != nil {
		return Resolution{Status: models.StatusSpecifyTraining, Candidates: models.Candidates(active)}, nil
	}
	return Resolution{Training: t}, nil
}

// Disambiguate оставляет тренировки групп ученика и тренировки без группы.
// Ни одной подходящей: ErrNotFound, больше одной: ErrBadRequest.
func Disambiguate(active []models.Training, groupIDs []string) (models.Training, error) {
	const op = "training.Disambiguate"
	if len(active) == 1 {
		return active[0], nil
	}
	member := make(map[string]struct{}, len(groupIDs))
	for _, g := range groupIDs {
		member[g] = struct{}{}
	}

	var matched []models.Training
	for _, t := range active {
		if t.GroupID == nil {
			matched = append(matched, t)
			continue
		}
		if _, ok := member[*t.GroupID]; ok {
			matched = append(matched, t)
		}
	}

	switch len(matched) {
	case 0:
		return models.Training{}, fmt.Errorf("%s: no active training in trainee groups: %w", op, models.ErrNotFound)
	case 1:
		return matched[0], nil
	default:
		return models.Training{}, fmt.Errorf("%s: %d trainings match trainee groups: %w", op, len(matched), models.ErrBadRequest)
	}
}

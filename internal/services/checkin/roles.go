package checkin

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

// command данные одного вызова отметки после проверки.
type command struct {
	req     models.CheckinRequest
	user    models.User
	trainer models.TrainerProfile
	now     time.Time
}

// flow сценарий отметки для набора ролей. Реализации перечислены ниже, других нет.
type flow interface {
	name() string
	handle(ctx context.Context, s *Service, cmd command) (models.CheckinOutcome, error)
}

type (
	traineeFlow     struct{ profile models.TraineeProfile }
	parentFlow      struct{ profile models.ParentProfile }
	trainerRejected struct{}
	unsupported     struct{ roles string }
)

// classify выбирает сценарий по отсортированному пересечению ролей пользователя
// с TRAINEE, TRAINER и PARENT.
func classify(u models.User) flow {
	var roles []string
	for _, r := range u.Roles {
		switch r {
		case models.RoleTrainee, models.RoleTrainer, models.RoleParent:
			if !slices.Contains(roles, string(r)) {
				roles = append(roles, string(r))
			}
		}
	}
	slices.Sort(roles)
	key := strings.Join(roles, ",")

	switch key {
	case "TRAINER":
		return trainerRejected{}
	case "TRAINEE", "TRAINEE,TRAINER":
		if u.TraineeProfile == nil {
			return unsupported{roles: key}
		}
		return traineeFlow{profile: *u.TraineeProfile}
	case "PARENT", "PARENT,TRAINEE", "PARENT,TRAINEE,TRAINER":
		if u.ParentProfile == nil {
			return unsupported{roles: key}
		}
		return parentFlow{profile: *u.ParentProfile}
	default:
		return unsupported{roles: key}
	}
}

func (traineeFlow) name() string     { return "trainee" }
func (parentFlow) name() string      { return "parent" }
func (trainerRejected) name() string { return "trainer" }
func (unsupported) name() string     { return "unsupported" }

func (f traineeFlow) handle(ctx context.Context, s *Service, cmd command) (models.CheckinOutcome, error) {
	return s.markTrainee(ctx, markParams{
		trainerID:      cmd.trainer.ID,
		profile:        f.profile,
		createdBy:      cmd.user.ID,
		trainingID:     cmd.req.TrainingID,
		subscriptionID: cmd.req.SubscriptionTraineeID,
		now:            cmd.now,
	})
}

func (f parentFlow) handle(ctx context.Context, s *Service, cmd command) (models.CheckinOutcome, error) {
	return s.markChildren(ctx, f.profile, cmd)
}

func (trainerRejected) handle(context.Context, *Service, command) (models.CheckinOutcome, error) {
	return models.CheckinOutcome{Status: models.StatusTrainerShouldNotMarkAttendance}, nil
}

func (f unsupported) handle(context.Context, *Service, command) (models.CheckinOutcome, error) {
	return models.CheckinOutcome{}, fmt.Errorf("unsupported role set %q: %w", f.roles, models.ErrBadRequest)
}

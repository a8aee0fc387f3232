package models

import "time"

// SubscriptionType определяет, списываются ли занятия с абонемента.
type SubscriptionType string

const (
	// SubscriptionTypePeriod абонемент на количество занятий, каждое посещение списывает одно.
	SubscriptionTypePeriod SubscriptionType = "PERIOD"
	// SubscriptionTypeUnlimited абонемент без учёта количества занятий.
	SubscriptionTypeUnlimited SubscriptionType = "UNLIMITED"
)

// Metered сообщает, нужно ли уменьшать остаток занятий при посещении.
func (t SubscriptionType) Metered() bool {
	return t == SubscriptionTypePeriod
}

// SubscriptionTrainingType задаёт, на какие тренировки распространяется абонемент.
type SubscriptionTrainingType string

const (
	SubscriptionTrainingGroup              SubscriptionTrainingType = "GROUP"
	SubscriptionTrainingIndividual         SubscriptionTrainingType = "INDIVIDUAL"
	SubscriptionTrainingGroupAndIndividual SubscriptionTrainingType = "GROUP_AND_INDIVIDUAL"
)

// Covers проверяет, подходит ли абонемент для тренировки типа t.
// Пустое значение означает отсутствие ограничения.
func (s SubscriptionTrainingType) Covers(t TrainingType) bool {
	switch s {
	case "", SubscriptionTrainingGroupAndIndividual:
		return true
	case SubscriptionTrainingGroup:
		return t == TrainingTypeGroup
	case SubscriptionTrainingIndividual:
		return t == TrainingTypeIndividual
	}
	return false
}

// ActivationType политика активации абонемента.
type ActivationType string

const (
	ActivationImmediate            ActivationType = "IMMEDIATE"
	ActivationWhenTrainingAttended ActivationType = "WHEN_TRAINING_ATTENDED"
)

// SubscriptionTrainee привязка ученика к купленному абонементу.
type SubscriptionTrainee struct {
	ID               string                   `json:"id"`
	TraineeID        string                   `json:"trainee_id"`
	SubscriptionID   string                   `json:"subscription_id"`
	SubscriptionName string                   `json:"subscription_name"`
	Type             SubscriptionType         `json:"type"`
	TrainingType     SubscriptionTrainingType `json:"training_type"`
	GroupIDs         []string                 `json:"group_ids,omitempty"`
	TrainingsLeft    *int                     `json:"trainings_left,omitempty"`
	ValidUntil       *time.Time               `json:"valid_until,omitempty"`
	ActiveFromDate   *time.Time               `json:"active_from_date,omitempty"`
	ActivationType   ActivationType           `json:"activation_type"`
	IsPaid           bool                     `json:"is_paid"`
}

// Eligible проверяет, можно ли использовать абонемент в момент now.
func (s SubscriptionTrainee) Eligible(now time.Time) bool {
	if !s.IsPaid {
		return false
	}
	if s.TrainingsLeft != nil && *s.TrainingsLeft <= 0 {
		return false
	}
	if s.ValidUntil != nil && s.ValidUntil.Before(now) {
		return false
	}
	if s.ActiveFromDate == nil {
		return true
	}
	return !s.ActiveFromDate.After(now)
}

// CoversGroup проверяет групповое ограничение абонемента.
// Абонемент без групп подходит для любой тренировки.
func (s SubscriptionTrainee) CoversGroup(groupID *string) bool {
	if len(s.GroupIDs) == 0 {
		return true
	}
	if groupID == nil {
		return false
	}
	for _, g := range s.GroupIDs {
		if g == *groupID {
			return true
		}
	}
	return false
}

// ActivatesOnAttendance сообщает, что первое посещение должно активировать абонемент.
func (s SubscriptionTrainee) ActivatesOnAttendance() bool {
	return s.ActivationType == ActivationWhenTrainingAttended && s.ActiveFromDate == nil
}

// SubscriptionCandidate вариант абонемента для выбора пользователем.
type SubscriptionCandidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

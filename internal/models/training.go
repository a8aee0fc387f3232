// Package models содержит доменные структуры тренировок, шаблонов расписания,
// абонементов, посещений и профилей пользователей, а также общие ошибки домена.
package models

import "time"

// TrainingType тип тренировки.
type TrainingType string

const (
	TrainingTypeGroup      TrainingType = "GROUP"
	TrainingTypeIndividual TrainingType = "INDIVIDUAL"
)

// Valid сообщает, известен ли тип тренировки.
func (t TrainingType) Valid() bool {
	return t == TrainingTypeGroup || t == TrainingTypeIndividual
}

// Training описывает одно конкретное занятие.
// StartDate и DurationMin могут отсутствовать у незапланированных тренировок.
type Training struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Type        TrainingType `json:"type"`
	StartDate   *time.Time   `json:"start_date,omitempty"`
	DurationMin *int         `json:"duration_min,omitempty"`
	GymID       *string      `json:"gym_id,omitempty"`
	GroupID     *string      `json:"group_id,omitempty"`
	TemplateID  *string      `json:"template_id,omitempty"`
	TrainerIDs  []string     `json:"trainer_ids,omitempty"`
	// AttendeeIDs заполняется только при выборке активных тренировок.
	AttendeeIDs []string `json:"-"`
}

// HasAttendee проверяет, отмечен ли ученик на тренировке.
func (t Training) HasAttendee(traineeID string) bool {
	for _, id := range t.AttendeeIDs {
		if id == traineeID {
			return true
		}
	}
	return false
}

// TrainingCandidate краткое представление тренировки для выбора пользователем.
type TrainingCandidate struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      TrainingType `json:"type"`
	StartDate *time.Time   `json:"start_date,omitempty"`
}

// Candidates превращает список тренировок в список для выбора.
func Candidates(trainings []Training) []TrainingCandidate {
	out := make([]TrainingCandidate, 0, len(trainings))
	for _, t := range trainings {
		out = append(out, TrainingCandidate{ID: t.ID, Name: t.Name, Type: t.Type, StartDate: t.StartDate})
	}
	return out
}

// ProposedTraining тренировка из пакетного запроса на создание.
type ProposedTraining struct {
	Name        string
	Type        TrainingType
	StartDate   *time.Time
	DurationMin *int
	GymID       *string
	GroupID     *string
	TemplateID  *string
}

// TimeSlot еженедельный слот шаблона в локальном времени клуба.
type TimeSlot struct {
	DayOfWeek time.Weekday `json:"day_of_week"`
	Hours     int          `json:"hours"`
	Minutes   int          `json:"minutes"`
}

// TrainingTemplate повторяющийся еженедельный шаблон тренировки.
type TrainingTemplate struct {
	ID          string
	Name        string
	Type        TrainingType
	DurationMin int
	StartDate   time.Time
	EndDate     *time.Time
	GymID       *string
	GroupID     *string
	TrainerID   string
	TimeSlots   []TimeSlot
}

// CoversDate проверяет, действует ли шаблон в момент t.
func (tt TrainingTemplate) CoversDate(t time.Time) bool {
	if t.Before(tt.StartDate) {
		return false
	}
	return tt.EndDate == nil || !t.After(*tt.EndDate)
}

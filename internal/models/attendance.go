package models

import "time"

// AttendanceStatus статус посещения.
type AttendanceStatus string

const AttendanceStatusPresent AttendanceStatus = "PRESENT"

// Attendance факт присутствия ученика на тренировке.
// На пару (ученик, тренировка) допускается не более одной записи.
type Attendance struct {
	ID                    string
	TraineeID             string
	TrainingID            string
	CreatedByUserID       string
	SubscriptionTraineeID *string
	Status                AttendanceStatus
	MarkedAt              time.Time
}

// RecordAttendance параметры записи посещения.
type RecordAttendance struct {
	TrainingID            string
	GroupID               *string
	TraineeID             string
	CreatedByUserID       string
	SubscriptionTraineeID *string
	Now                   time.Time
}

// AttendanceRecordedEvent событие, публикуемое после фиксации посещения.
type AttendanceRecordedEvent struct {
	AttendanceID          string    `json:"attendance_id"`
	TraineeID             string    `json:"trainee_id"`
	TrainingID            string    `json:"training_id"`
	SubscriptionTraineeID *string   `json:"subscription_trainee_id,omitempty"`
	CreatedBy             string    `json:"created_by"`
	MarkedAt              time.Time `json:"marked_at"`
}

// TrainingsCreatedEvent событие о пакетном создании тренировок.
type TrainingsCreatedEvent struct {
	TrainerID   string   `json:"trainer_id"`
	TrainingIDs []string `json:"training_ids"`
}

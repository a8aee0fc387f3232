package models

// CheckinStatus итог отметки посещения.
type CheckinStatus string

const (
	StatusNoActiveTrainings              CheckinStatus = "noActiveTrainings"
	StatusSpecifyTraining                CheckinStatus = "specifyTraining"
	StatusSpecifySubscription            CheckinStatus = "specifySubscription"
	StatusAlreadyMarked                  CheckinStatus = "alreadyMarked"
	StatusSuccess                        CheckinStatus = "success"
	StatusTrainerShouldNotMarkAttendance CheckinStatus = "trainerShouldNotMarkAttendance"
)

// ChildCheckin данные одного ребёнка в запросе родителя.
type ChildCheckin struct {
	TraineeID             string  `json:"trainee_id" validate:"required"`
	TrainingID            *string `json:"training_id,omitempty"`
	SubscriptionTraineeID *string `json:"subscription_trainee_id,omitempty"`
}

// CheckinRequest запрос на отметку посещения по QR-коду тренера.
type CheckinRequest struct {
	TrainerUsername       string         `json:"trainer_username" validate:"required"`
	TrainerQRCodeKey      string         `json:"trainer_qr_code_key" validate:"required"`
	ActingUsername        string         `json:"-"`
	TrainingID            *string        `json:"training_id,omitempty"`
	SubscriptionTraineeID *string        `json:"subscription_trainee_id,omitempty"`
	ChildrenAndTrainings  []ChildCheckin `json:"children_and_trainings,omitempty" validate:"dive"`
}

// ChildOutcome итог отметки для одного ребёнка.
type ChildOutcome struct {
	TraineeID     string                  `json:"trainee_id"`
	Status        CheckinStatus           `json:"status"`
	TrainingID    string                  `json:"training_id,omitempty"`
	Trainings     []TrainingCandidate     `json:"trainings,omitempty"`
	Subscriptions []SubscriptionCandidate `json:"subscriptions,omitempty"`
}

// CheckinOutcome ответ на запрос отметки.
type CheckinOutcome struct {
	Status        CheckinStatus           `json:"status"`
	TrainingID    string                  `json:"training_id,omitempty"`
	Trainings     []TrainingCandidate     `json:"trainings,omitempty"`
	Subscriptions []SubscriptionCandidate `json:"subscriptions,omitempty"`
	Children      []ChildOutcome          `json:"children,omitempty"`
}

// ScanRequest запрос тренера на отметку ученика по его QR-коду.
type ScanRequest struct {
	TrainerUserID         string  `json:"-"`
	TraineeUsername       string  `json:"trainee_username" validate:"required"`
	TrainingID            *string `json:"training_id,omitempty"`
	SubscriptionTraineeID *string `json:"subscription_trainee_id,omitempty"`
}

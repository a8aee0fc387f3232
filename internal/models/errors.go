package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrBadRequest    = errors.New("bad request")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidWindow у тренировки нет начала или длительности, либо длительность не положительна.
	ErrInvalidWindow = fmt.Errorf("invalid time window: %w", ErrBadRequest)
)

// Origin происхождение тренировки при проверке пересечений.
type Origin string

const (
	OriginNew      Origin = "new"
	OriginExisting Origin = "existing"
)

// ConflictPair пара пересекающихся тренировок.
type ConflictPair struct {
	NameA   string `json:"name_a"`
	OriginA Origin `json:"origin_a"`
	NameB   string `json:"name_b"`
	OriginB Origin `json:"origin_b"`
}

// ScheduleConflictError перечисляет все найденные пересечения расписания.
type ScheduleConflictError struct {
	Pairs []ConflictPair
}

func (e *ScheduleConflictError) Error() string {
	msgs := make([]string, 0, len(e.Pairs))
	for _, p := range e.Pairs {
		msgs = append(msgs, fmt.Sprintf("overlap between %q (%s) and %q (%s)", p.NameA, p.OriginA, p.NameB, p.OriginB))
	}
	return "schedule conflict: " + strings.Join(msgs, "; ")
}

func (e *ScheduleConflictError) Unwrap() error {
	return ErrConflict
}

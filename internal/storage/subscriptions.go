package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

const subscriptionSelect = `SELECT st.id, st.trainee_id, st.subscription_id, s.name, s.type,
		COALESCE(s.training_type, ''),
		COALESCE((SELECT array_agg(sg.group_id::text) FROM subscription_groups sg WHERE sg.subscription_id = s.id), '{}'),
		st.trainings_left, st.valid_until, st.active_from_date, s.activation_type, st.is_paid
		FROM subscription_trainees st
		JOIN subscriptions s ON s.id = st.subscription_id`

func scanSubscription(row rowScanner) (models.SubscriptionTrainee, error) {
	var (
		sub               models.SubscriptionTrainee
		left              sql.NullInt64
		validUntil, since sql.NullTime
	)
	err := row.Scan(&sub.ID, &sub.TraineeID, &sub.SubscriptionID, &sub.SubscriptionName, &sub.Type,
		&sub.TrainingType, textArray(&sub.GroupIDs), &left, &validUntil, &since, &sub.ActivationType, &sub.IsPaid)
	if err != nil {
		return models.SubscriptionTrainee{}, err
	}
	sub.TrainingsLeft = intPtr(left)
	sub.ValidUntil = timePtr(validUntil)
	sub.ActiveFromDate = timePtr(since)
	return sub, nil
}

// SubscriptionTraineeExists проверяет наличие абонемента ученика.
func (s *Storage) SubscriptionTraineeExists(ctx context.Context, id string) (bool, error) {
	const op = "storage.SubscriptionTraineeExists"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}
	if !isUUID(id) {
		return false, nil
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM subscription_trainees WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// SubscriptionTraineeByID возвращает абонемент ученика.
func (s *Storage) SubscriptionTraineeByID(ctx context.Context, id string) (*models.SubscriptionTrainee, error) {
	const op = "storage.SubscriptionTraineeByID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if !isUUID(id) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, subscriptionSelect+` WHERE st.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &sub, nil
}

// EligibleSubscriptionTrainees возвращает оплаченные, действующие на момент now
// и не израсходованные абонементы ученика.
func (s *Storage) EligibleSubscriptionTrainees(ctx context.Context, traineeID string, now time.Time) ([]models.SubscriptionTrainee, error) {
	const op = "storage.EligibleSubscriptionTrainees"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, subscriptionSelect+`
		WHERE st.trainee_id = $1
		  AND st.is_paid
		  AND (st.trainings_left IS NULL OR st.trainings_left > 0)
		  AND (st.valid_until IS NULL OR st.valid_until >= $2)
		  AND (st.active_from_date IS NULL OR st.active_from_date <= $2)
		ORDER BY st.id`, traineeID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.SubscriptionTrainee
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

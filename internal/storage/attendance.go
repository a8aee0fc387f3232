package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

// HasAttendance проверяет, отмечен ли ученик на тренировке.
func (s *Storage) HasAttendance(ctx context.Context, traineeID, trainingID string) (bool, error) {
	const op = "storage.HasAttendance"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM attendances WHERE trainee_id = $1 AND training_id = $2)`,
		traineeID, trainingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// RecordAttendance в одной транзакции:
//   - добавляет ученика в группу тренировки, если он в ней не состоит;
//   - блокирует абонемент;
//   - если посещение уже есть, завершает транзакцию без списания (повторная отметка);
//   - заново проверяет, что абонемент принадлежит ученику и действует;
//   - вставляет посещение, конфликт по (trainee_id, training_id) означает повторную отметку;
//   - списывает занятие с абонемента PERIOD и активирует абонемент при первом посещении.
//
// Абонемент, ставший недействительным, даёт models.ErrNotFound и откат всей транзакции.
func (s *Storage) RecordAttendance(ctx context.Context, p models.RecordAttendance) (models.Attendance, bool, error) {
	const op = "storage.RecordAttendance"
	if err := checkCtx(ctx, op); err != nil {
		return models.Attendance{}, false, err
	}

	var (
		a        models.Attendance
		inserted bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if p.GroupID != nil {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO group_trainees (group_id, trainee_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, p.GroupID, p.TraineeID); err != nil {
				return mapError(err)
			}
		}

		var sub *models.SubscriptionTrainee
		if p.SubscriptionTraineeID != nil {
			locked, err := scanSubscription(tx.QueryRowContext(ctx,
				subscriptionSelect+` WHERE st.id = $1 FOR UPDATE OF st`, p.SubscriptionTraineeID))
			if err != nil {
				return mapError(err)
			}
			// параллельная отметка могла списать последнее занятие, пока мы ждали блокировку
			var marked bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM attendances WHERE trainee_id = $1 AND training_id = $2)`,
				p.TraineeID, p.TrainingID).Scan(&marked); err != nil {
				return mapError(err)
			}
			if marked {
				return nil
			}
			if locked.TraineeID != p.TraineeID || !locked.Eligible(p.Now) {
				return fmt.Errorf("subscription %s is no longer available: %w", locked.ID, models.ErrNotFound)
			}
			sub = &locked
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO attendances (trainee_id, training_id, created_by_user_id, subscription_trainee_id, status, marked_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT ON CONSTRAINT attendances_trainee_training_key DO NOTHING
			RETURNING id, trainee_id, training_id, created_by_user_id, subscription_trainee_id, status, marked_at`,
			p.TraineeID, p.TrainingID, p.CreatedByUserID, p.SubscriptionTraineeID,
			models.AttendanceStatusPresent, p.Now).
			Scan(&a.ID, &a.TraineeID, &a.TrainingID, &a.CreatedByUserID, &a.SubscriptionTraineeID, &a.Status, &a.MarkedAt)
		if errors.Is(err, sql.ErrNoRows) {
			// посещение уже есть, абонемент не трогаем
			return nil
		}
		if err != nil {
			return mapError(err)
		}
		inserted = true

		if sub == nil {
			return nil
		}
		if sub.Type.Metered() && sub.TrainingsLeft != nil {
			res, err := tx.ExecContext(ctx, `
				UPDATE subscription_trainees SET trainings_left = trainings_left - 1
				WHERE id = $1 AND trainings_left > 0`, sub.ID)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n == 0 {
				return fmt.Errorf("subscription %s has no trainings left: %w", sub.ID, models.ErrNotFound)
			}
		}
		if sub.ActivatesOnAttendance() {
			if _, err := tx.ExecContext(ctx, `
				UPDATE subscription_trainees SET active_from_date = $2
				WHERE id = $1 AND active_from_date IS NULL`, sub.ID, p.Now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Attendance{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return a, inserted, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

const trainingColumns = `t.id, t.name, t.type, t.start_date, t.duration_min, t.gym_id, t.group_id, t.template_id,
		COALESCE((SELECT array_agg(x.trainer_id::text) FROM training_trainers x WHERE x.training_id = t.id), '{}'),
		COALESCE((SELECT array_agg(a.trainee_id::text) FROM attendances a WHERE a.training_id = t.id), '{}')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTraining(row rowScanner) (models.Training, error) {
	var (
		t               models.Training
		start           sql.NullTime
		duration        sql.NullInt64
		gym, group, tpl sql.NullString
	)
	err := row.Scan(&t.ID, &t.Name, &t.Type, &start, &duration, &gym, &group, &tpl,
		textArray(&t.TrainerIDs), textArray(&t.AttendeeIDs))
	if err != nil {
		return models.Training{}, err
	}
	t.StartDate = timePtr(start)
	t.DurationMin = intPtr(duration)
	t.GymID = stringPtr(gym)
	t.GroupID = stringPtr(group)
	t.TemplateID = stringPtr(tpl)
	return t, nil
}

func queryTrainings(ctx context.Context, q interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}, query string, args ...any) ([]models.Training, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Training
	for rows.Next() {
		t, err := scanTraining(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// TrainingExists проверяет наличие тренировки.
func (s *Storage) TrainingExists(ctx context.Context, id string) (bool, error) {
	const op = "storage.TrainingExists"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}
	if !isUUID(id) {
		return false, nil
	}

	var exists bool
	if err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM trainings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// TrainerTrainingsStartingBetween возвращает тренировки тренера с началом в [from, to]
// вместе с уже отмеченными учениками.
func (s *Storage) TrainerTrainingsStartingBetween(ctx context.Context, trainerID string, from, to time.Time) ([]models.Training, error) {
	const op = "storage.TrainerTrainingsStartingBetween"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + trainingColumns + `
			  FROM trainings t
			  JOIN training_trainers tt ON tt.training_id = t.id AND tt.trainer_id = $1
			  WHERE t.start_date BETWEEN $2 AND $3
			  ORDER BY t.start_date, t.id`
	trainings, err := queryTrainings(ctx, s.DB, query, trainerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return trainings, nil
}

// ActiveTemplates возвращает шаблоны тренера, действующие в момент at, вместе со слотами.
func (s *Storage) ActiveTemplates(ctx context.Context, trainerID string, at time.Time) ([]models.TrainingTemplate, error) {
	const op = "storage.ActiveTemplates"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, type, duration_min, start_date, end_date, gym_id, group_id, trainer_id
		FROM training_templates
		WHERE trainer_id = $1 AND start_date <= $2 AND (end_date IS NULL OR end_date >= $2)
		ORDER BY id`, trainerID, at)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var (
		templates []models.TrainingTemplate
		ids       []string
	)
	for rows.Next() {
		var (
			tpl        models.TrainingTemplate
			end        sql.NullTime
			gym, group sql.NullString
		)
		if err := rows.Scan(&tpl.ID, &tpl.Name, &tpl.Type, &tpl.DurationMin, &tpl.StartDate, &end,
			&gym, &group, &tpl.TrainerID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		tpl.EndDate = timePtr(end)
		tpl.GymID = stringPtr(gym)
		tpl.GroupID = stringPtr(group)
		templates = append(templates, tpl)
		ids = append(ids, tpl.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(templates) == 0 {
		return nil, nil
	}

	slots, err := s.templateSlots(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range templates {
		templates[i].TimeSlots = slots[templates[i].ID]
	}
	return templates, nil
}

func (s *Storage) templateSlots(ctx context.Context, templateIDs []string) (map[string][]models.TimeSlot, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT template_id, day_of_week, hours, minutes
		FROM template_time_slots
		WHERE template_id = ANY($1::uuid[])
		ORDER BY template_id, day_of_week, hours, minutes`, templateIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make(map[string][]models.TimeSlot)
	for rows.Next() {
		var (
			templateID string
			day        int
			slot       models.TimeSlot
		)
		if err := rows.Scan(&templateID, &day, &slot.Hours, &slot.Minutes); err != nil {
			return nil, err
		}
		slot.DayOfWeek = time.Weekday(day)
		slots[templateID] = append(slots[templateID], slot)
	}
	return slots, rows.Err()
}

// MaterializeTraining создаёт тренировку из шаблона или возвращает уже созданную
// для того же шаблона и времени начала.
func (s *Storage) MaterializeTraining(ctx context.Context, t models.Training) (models.Training, error) {
	const op = "storage.MaterializeTraining"
	if err := checkCtx(ctx, op); err != nil {
		return models.Training{}, err
	}
	if t.TemplateID == nil || t.StartDate == nil {
		return models.Training{}, fmt.Errorf("%s: template and start are required: %w", op, models.ErrBadRequest)
	}

	var created models.Training
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx, `
			INSERT INTO trainings (name, type, start_date, duration_min, gym_id, group_id, template_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (template_id, start_date) WHERE template_id IS NOT NULL DO NOTHING
			RETURNING id`,
			t.Name, t.Type, t.StartDate, t.DurationMin, t.GymID, t.GroupID, t.TemplateID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			// тренировку уже создал параллельный запрос
			err = tx.QueryRowContext(ctx,
				`SELECT id FROM trainings WHERE template_id = $1 AND start_date = $2`,
				t.TemplateID, t.StartDate).Scan(&id)
		}
		if err != nil {
			return mapError(err)
		}

		for _, trainerID := range t.TrainerIDs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO training_trainers (training_id, trainer_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, id, trainerID); err != nil {
				return mapError(err)
			}
		}

		created, err = scanTraining(tx.QueryRowContext(ctx,
			`SELECT `+trainingColumns+` FROM trainings t WHERE t.id = $1`, id))
		return err
	})
	if err != nil {
		return models.Training{}, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// MissingReferences возвращает идентификаторы залов, групп и шаблонов, которых нет в базе.
func (s *Storage) MissingReferences(ctx context.Context, gymIDs, groupIDs, templateIDs []string) ([]string, error) {
	const op = "storage.MissingReferences"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var missing []string
	for _, ref := range []struct {
		table string
		ids   []string
	}{
		{table: "gyms", ids: gymIDs},
		{table: "groups", ids: groupIDs},
		{table: "training_templates", ids: templateIDs},
	} {
		if len(ref.ids) == 0 {
			continue
		}
		found, err := s.existingIDs(ctx, ref.table, validIDs(ref.ids))
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, ref.table, err)
		}
		for _, id := range ref.ids {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
	}
	return missing, nil
}

func (s *Storage) existingIDs(ctx context.Context, table string, ids []string) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id::text FROM `+table+` WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
	}
	return found, rows.Err()
}

// CreateTrainings в одной транзакции блокирует строку тренера, передаёт в check его тренировки
// с началом в [from, to) и вставляет новые тренировки, если check не вернул ошибку.
// Блокировка не даёт двум пакетам одного тренера разминуться при проверке пересечений.
func (s *Storage) CreateTrainings(ctx context.Context, trainerID string, from, to time.Time,
	trainings []models.ProposedTraining, check func(existing []models.Training) error) ([]string, error) {
	const op = "storage.CreateTrainings"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var ids []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var locked string
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM trainer_profiles WHERE id = $1 FOR UPDATE`, trainerID).Scan(&locked); err != nil {
			return mapError(err)
		}

		if check != nil {
			existing, err := queryTrainings(ctx, tx, `SELECT `+trainingColumns+`
				FROM trainings t
				JOIN training_trainers tt ON tt.training_id = t.id AND tt.trainer_id = $1
				WHERE t.start_date >= $2 AND t.start_date < $3
				ORDER BY t.start_date`, trainerID, from, to)
			if err != nil {
				return err
			}
			if err := check(existing); err != nil {
				return err
			}
		}

		for _, t := range trainings {
			var id string
			err := tx.QueryRowContext(ctx, `
				INSERT INTO trainings (name, type, start_date, duration_min, gym_id, group_id, template_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING id`,
				t.Name, t.Type, t.StartDate, t.DurationMin, t.GymID, t.GroupID, t.TemplateID).Scan(&id)
			if err != nil {
				return mapError(err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO training_trainers (training_id, trainer_id) VALUES ($1, $2)`, id, trainerID); err != nil {
				return mapError(err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

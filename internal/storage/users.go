package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

// UserByUsername возвращает пользователя с ролями и профилями.
func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.UserByUsername"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT u.id, u.username,
			      COALESCE(array_agg(r.role) FILTER (WHERE r.role IS NOT NULL), '{}')::text[],
			      tp.id, pp.id, tr.id, tr.qr_code_key
			  FROM users u
			  LEFT JOIN user_roles r ON r.user_id = u.id
			  LEFT JOIN trainee_profiles tp ON tp.user_id = u.id
			  LEFT JOIN parent_profiles pp ON pp.user_id = u.id
			  LEFT JOIN trainer_profiles tr ON tr.user_id = u.id
			  WHERE u.username = $1
			  GROUP BY u.id, tp.id, pp.id, tr.id`

	var (
		user                           models.User
		roles                          []string
		traineeID, parentID, trainerID sql.NullString
		qrKey                          sql.NullString
	)
	err := s.DB.QueryRowContext(ctx, query, username).Scan(
		&user.ID, &user.Username, textArray(&roles), &traineeID, &parentID, &trainerID, &qrKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	for _, r := range roles {
		user.Roles = append(user.Roles, models.Role(r))
	}

	if traineeID.Valid {
		groups, err := s.traineeGroups(ctx, traineeID.String)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		user.TraineeProfile = &models.TraineeProfile{ID: traineeID.String, UserID: user.ID, GroupIDs: groups}
	}
	if parentID.Valid {
		user.ParentProfile = &models.ParentProfile{ID: parentID.String, UserID: user.ID}
	}
	if trainerID.Valid {
		user.TrainerProfile = &models.TrainerProfile{
			ID:        trainerID.String,
			UserID:    user.ID,
			Username:  user.Username,
			QRCodeKey: qrKey.String,
		}
	}
	return &user, nil
}

func (s *Storage) traineeGroups(ctx context.Context, traineeID string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT group_id FROM group_trainees WHERE trainee_id = $1 ORDER BY group_id`, traineeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		groups = append(groups, id)
	}
	return groups, rows.Err()
}

// TraineeProfiles возвращает профили учеников с их группами.
func (s *Storage) TraineeProfiles(ctx context.Context, ids []string) ([]models.TraineeProfile, error) {
	const op = "storage.TraineeProfiles"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	ids = validIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT tp.id, tp.user_id,
			      COALESCE(array_agg(gt.group_id::text ORDER BY gt.group_id) FILTER (WHERE gt.group_id IS NOT NULL), '{}')
			  FROM trainee_profiles tp
			  LEFT JOIN group_trainees gt ON gt.trainee_id = tp.id
			  WHERE tp.id = ANY($1::uuid[])
			  GROUP BY tp.id`
	rows, err := s.DB.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.TraineeProfile
	for rows.Next() {
		var p models.TraineeProfile
		if err := rows.Scan(&p.ID, &p.UserID, textArray(&p.GroupIDs)); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ParentLinks возвращает связи родителя с детьми.
func (s *Storage) ParentLinks(ctx context.Context, parentID string) ([]models.ParentTraineeLink, error) {
	const op = "storage.ParentLinks"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, parent_id, trainee_id FROM parent_trainee_links WHERE parent_id = $1`, parentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var links []models.ParentTraineeLink
	for rows.Next() {
		var l models.ParentTraineeLink
		if err := rows.Scan(&l.ID, &l.ParentID, &l.TraineeID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return links, nil
}

const trainerSelect = `SELECT tr.id, tr.user_id, u.username, tr.qr_code_key
		FROM trainer_profiles tr
		JOIN users u ON u.id = tr.user_id`

// TrainerByUsername возвращает профиль тренера по имени пользователя.
func (s *Storage) TrainerByUsername(ctx context.Context, username string) (*models.TrainerProfile, error) {
	const op = "storage.TrainerByUsername"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var t models.TrainerProfile
	err := s.DB.QueryRowContext(ctx, trainerSelect+` WHERE u.username = $1`, username).
		Scan(&t.ID, &t.UserID, &t.Username, &t.QRCodeKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &t, nil
}

// TrainerByUserID возвращает профиль тренера по идентификатору пользователя.
func (s *Storage) TrainerByUserID(ctx context.Context, userID string) (*models.TrainerProfile, error) {
	const op = "storage.TrainerByUserID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if !isUUID(userID) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	var t models.TrainerProfile
	err := s.DB.QueryRowContext(ctx, trainerSelect+` WHERE tr.user_id = $1`, userID).
		Scan(&t.ID, &t.UserID, &t.Username, &t.QRCodeKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &t, nil
}

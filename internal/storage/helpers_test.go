package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/attendance-checkin/internal/migrations"
)

// setupTestStorage поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test requires docker")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))
	require.NoError(t, CheckDatabaseReady(storage))

	return storage
}

// testDataFactory создаёт тестовые данные напрямую через SQL.
type testDataFactory struct {
	t  *testing.T
	db *Storage
}

func newTestDataFactory(t *testing.T, s *Storage) *testDataFactory {
	return &testDataFactory{t: t, db: s}
}

func (f *testDataFactory) id(query string, args ...any) string {
	f.t.Helper()
	var id string
	require.NoError(f.t, f.db.DB.QueryRow(query, args...).Scan(&id))
	return id
}

func (f *testDataFactory) exec(query string, args ...any) {
	f.t.Helper()
	_, err := f.db.DB.Exec(query, args...)
	require.NoError(f.t, err)
}

func (f *testDataFactory) user(username string, roles ...string) string {
	id := f.id(`INSERT INTO users (username) VALUES ($1) RETURNING id`, username)
	for _, r := range roles {
		f.exec(`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, id, r)
	}
	return id
}

func (f *testDataFactory) trainer(username, qrKey string) (userID, trainerID string) {
	userID = f.user(username, "TRAINER")
	trainerID = f.id(`INSERT INTO trainer_profiles (user_id, qr_code_key) VALUES ($1, $2) RETURNING id`, userID, qrKey)
	return userID, trainerID
}

func (f *testDataFactory) trainee(username string) (userID, traineeID string) {
	userID = f.user(username, "TRAINEE")
	traineeID = f.id(`INSERT INTO trainee_profiles (user_id) VALUES ($1) RETURNING id`, userID)
	return userID, traineeID
}

func (f *testDataFactory) group(name string) string {
	return f.id(`INSERT INTO groups (name) VALUES ($1) RETURNING id`, name)
}

func (f *testDataFactory) training(trainerID, name string, start time.Time, durationMin int, groupID *string) string {
	id := f.id(`INSERT INTO trainings (name, type, start_date, duration_min, group_id)
		VALUES ($1, 'GROUP', $2, $3, $4) RETURNING id`, name, start, durationMin, groupID)
	f.exec(`INSERT INTO training_trainers (training_id, trainer_id) VALUES ($1, $2)`, id, trainerID)
	return id
}

func (f *testDataFactory) subscription(traineeID, typ string, left *int, activation string) string {
	subID := f.id(`INSERT INTO subscriptions (name, type, activation_type) VALUES ($1, $2, $3) RETURNING id`,
		"Sub "+typ, typ, activation)
	return f.id(`INSERT INTO subscription_trainees (trainee_id, subscription_id, trainings_left, is_paid)
		VALUES ($1, $2, $3, true) RETURNING id`, traineeID, subID, left)
}

func (f *testDataFactory) trainingsLeft(subscriptionTraineeID string) *int {
	f.t.Helper()
	var left *int
	require.NoError(f.t, f.db.DB.QueryRow(
		`SELECT trainings_left FROM subscription_trainees WHERE id = $1`, subscriptionTraineeID).Scan(&left))
	return left
}

func (f *testDataFactory) attendances(traineeID, trainingID string) int {
	f.t.Helper()
	var n int
	require.NoError(f.t, f.db.DB.QueryRow(
		`SELECT COUNT(*) FROM attendances WHERE trainee_id = $1 AND training_id = $2`, traineeID, trainingID).Scan(&n))
	return n
}

func ptr[T any](v T) *T { return &v }

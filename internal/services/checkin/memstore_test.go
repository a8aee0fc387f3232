package checkin

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

// memStore хранилище в памяти с теми же гарантиями, что и PostgreSQL:
// уникальность посещения по (ученик, тренировка) и списание под блокировкой.
type memStore struct {
	mu          sync.Mutex
	users       map[string]*models.User
	trainers    []models.TrainerProfile
	trainings   map[string]*models.Training
	templates   []models.TrainingTemplate
	subs        map[string]*models.SubscriptionTrainee
	links       []models.ParentTraineeLink
	profiles    map[string]*models.TraineeProfile
	attendances []models.Attendance
	seq         int
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[string]*models.User),
		trainings: make(map[string]*models.Training),
		subs:      make(map[string]*models.SubscriptionTrainee),
		profiles:  make(map[string]*models.TraineeProfile),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) addUser(u *models.User) {
	m.users[u.Username] = u
	if u.TraineeProfile != nil {
		m.profiles[u.TraineeProfile.ID] = u.TraineeProfile
	}
	if u.TrainerProfile != nil {
		m.trainers = append(m.trainers, *u.TrainerProfile)
	}
}

func (m *memStore) attendancesFor(traineeID, trainingID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.attendances {
		if a.TraineeID == traineeID && a.TrainingID == trainingID {
			n++
		}
	}
	return n
}

func (m *memStore) attendanceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attendances)
}

func (m *memStore) UserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	if u.TraineeProfile != nil {
		p := *m.profiles[u.TraineeProfile.ID]
		p.GroupIDs = slices.Clone(p.GroupIDs)
		cp.TraineeProfile = &p
	}
	return &cp, nil
}

func (m *memStore) TrainingExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.trainings[id]
	return ok, nil
}

func (m *memStore) SubscriptionTraineeExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subs[id]
	return ok, nil
}

func (m *memStore) ParentLinks(_ context.Context, parentID string) ([]models.ParentTraineeLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ParentTraineeLink
	for _, l := range m.links {
		if l.ParentID == parentID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) TraineeProfiles(_ context.Context, ids []string) ([]models.TraineeProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TraineeProfile
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			cp := *p
			cp.GroupIDs = slices.Clone(p.GroupIDs)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *memStore) HasAttendance(_ context.Context, traineeID, trainingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasAttendanceLocked(traineeID, trainingID), nil
}

func (m *memStore) hasAttendanceLocked(traineeID, trainingID string) bool {
	for _, a := range m.attendances {
		if a.TraineeID == traineeID && a.TrainingID == trainingID {
			return true
		}
	}
	return false
}

func (m *memStore) TrainerByUsername(_ context.Context, username string) (*models.TrainerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.trainers {
		if t.Username == username {
			cp := t
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memStore) TrainerByUserID(_ context.Context, userID string) (*models.TrainerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.trainers {
		if t.UserID == userID {
			cp := t
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memStore) withAttendeesLocked(t models.Training) models.Training {
	t.AttendeeIDs = nil
	for _, a := range m.attendances {
		if a.TrainingID == t.ID {
			t.AttendeeIDs = append(t.AttendeeIDs, a.TraineeID)
		}
	}
	return t
}

func (m *memStore) TrainerTrainingsStartingBetween(_ context.Context, trainerID string, from, to time.Time) ([]models.Training, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Training
	for _, t := range m.trainings {
		if t.StartDate == nil || !slices.Contains(t.TrainerIDs, trainerID) {
			continue
		}
		if t.StartDate.Before(from) || t.StartDate.After(to) {
			continue
		}
		out = append(out, m.withAttendeesLocked(*t))
	}
	slices.SortFunc(out, func(a, b models.Training) int { return a.StartDate.Compare(*b.StartDate) })
	return out, nil
}

func (m *memStore) ActiveTemplates(_ context.Context, trainerID string, at time.Time) ([]models.TrainingTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TrainingTemplate
	for _, tpl := range m.templates {
		if tpl.TrainerID == trainerID && tpl.CoversDate(at) {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (m *memStore) MaterializeTraining(_ context.Context, t models.Training) (models.Training, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.trainings {
		if existing.TemplateID != nil && *existing.TemplateID == *t.TemplateID && existing.StartDate.Equal(*t.StartDate) {
			return m.withAttendeesLocked(*existing), nil
		}
	}
	t.ID = m.nextID("materialized")
	m.trainings[t.ID] = &t
	return t, nil
}

func (m *memStore) SubscriptionTraineeByID(_ context.Context, id string) (*models.SubscriptionTrainee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) EligibleSubscriptionTrainees(_ context.Context, traineeID string, now time.Time) ([]models.SubscriptionTrainee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SubscriptionTrainee
	for _, s := range m.subs {
		if s.TraineeID == traineeID && s.Eligible(now) {
			out = append(out, *s)
		}
	}
	slices.SortFunc(out, func(a, b models.SubscriptionTrainee) int { return compareStrings(a.ID, b.ID) })
	return out, nil
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (m *memStore) RecordAttendance(_ context.Context, p models.RecordAttendance) (models.Attendance, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sub *models.SubscriptionTrainee
	if p.SubscriptionTraineeID != nil {
		sub = m.subs[*p.SubscriptionTraineeID]
		if sub == nil {
			return models.Attendance{}, false, models.ErrNotFound
		}
	}
	if m.hasAttendanceLocked(p.TraineeID, p.TrainingID) {
		return models.Attendance{}, false, nil
	}
	if sub != nil && (sub.TraineeID != p.TraineeID || !sub.Eligible(p.Now)) {
		return models.Attendance{}, false, models.ErrNotFound
	}

	if p.GroupID != nil {
		if prof, ok := m.profiles[p.TraineeID]; ok && !prof.InGroup(*p.GroupID) {
			prof.GroupIDs = append(prof.GroupIDs, *p.GroupID)
		}
	}

	a := models.Attendance{
		ID:                    m.nextID("attendance"),
		TraineeID:             p.TraineeID,
		TrainingID:            p.TrainingID,
		CreatedByUserID:       p.CreatedByUserID,
		SubscriptionTraineeID: p.SubscriptionTraineeID,
		Status:                models.AttendanceStatusPresent,
		MarkedAt:              p.Now,
	}
	m.attendances = append(m.attendances, a)

	if sub != nil {
		if sub.Type.Metered() && sub.TrainingsLeft != nil {
			left := *sub.TrainingsLeft - 1
			sub.TrainingsLeft = &left
		}
		if sub.ActivatesOnAttendance() {
			now := p.Now
			sub.ActiveFromDate = &now
		}
	}
	return a, true, nil
}

// mapCache кэш в памяти для CachedTrainers.
type mapCache struct {
	mu   sync.Mutex
	data map[string]models.TrainerProfile
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]models.TrainerProfile)}
}

func (c *mapCache) Trainer(username string) (*models.TrainerProfile, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[username]
	if !ok {
		return nil, false, nil
	}
	return &v, true, nil
}

func (c *mapCache) PutTrainer(p *models.TrainerProfile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[p.Username] = *p
	return nil
}

func (c *mapCache) ForgetTrainer(username string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, username)
	return nil
}

package cache

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

// DefaultTrainerTTL время жизни профиля тренера, если в конфиге оно не задано.
const DefaultTrainerTTL = 10 * time.Minute

const trainerKeyPrefix = "trainer:"

// TrainerKey ключ профиля тренера с именем username.
func TrainerKey(username string) string {
	return trainerKeyPrefix + username
}

// Trainers кэш профилей тренеров, ключом служит имя пользователя тренера.
type Trainers struct {
	cache *Cache
	ttl   time.Duration
}

// NewTrainers создаёт кэш профилей тренеров. Неположительный ttl заменяется на DefaultTrainerTTL.
func NewTrainers(c *Cache, ttl time.Duration) *Trainers {
	if ttl <= 0 {
		ttl = DefaultTrainerTTL
	}
	return &Trainers{cache: c, ttl: ttl}
}

// Trainer возвращает профиль тренера из кэша. Промах не ошибка.
func (t *Trainers) Trainer(username string) (*models.TrainerProfile, bool, error) {
	const op = "cache.Trainer"
	var p models.TrainerProfile
	found, err := t.cache.Get(TrainerKey(username), &p)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, false, nil
	}
	// профиль без ключа QR-кода считаем повреждённым
	if p.ID == "" || p.QRCodeKey == "" {
		return nil, false, nil
	}
	return &p, true, nil
}

// PutTrainer сохраняет профиль тренера.
func (t *Trainers) PutTrainer(p *models.TrainerProfile) error {
	const op = "cache.PutTrainer"
	if err := t.cache.Set(TrainerKey(p.Username), p, t.ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ForgetTrainer удаляет профиль тренера, например после смены ключа QR-кода.
func (t *Trainers) ForgetTrainer(username string) error {
	const op = "cache.ForgetTrainer"
	if err := t.cache.Invalidate(TrainerKey(username)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

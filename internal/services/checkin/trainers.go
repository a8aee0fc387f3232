package checkin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/attendance-checkin/internal/lib/sl"
	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

// TrainerRepository хранилище профилей тренеров.
type TrainerRepository interface {
	TrainerByUsername(ctx context.Context, username string) (*models.TrainerProfile, error)
	TrainerByUserID(ctx context.Context, userID string) (*models.TrainerProfile, error)
}

// TrainerCache кэш профилей тренеров по имени пользователя.
type TrainerCache interface {
	Trainer(username string) (*models.TrainerProfile, bool, error)
	PutTrainer(p *models.TrainerProfile) error
	ForgetTrainer(username string) error
}

// CachedTrainers ищет тренеров по имени сначала в кэше, затем в хранилище.
// Ошибки кэша не прерывают поиск.
type CachedTrainers struct {
	repo  TrainerRepository
	cache TrainerCache
	log   *slog.Logger
}

// NewCachedTrainers создаёт CachedTrainers.
func NewCachedTrainers(repo TrainerRepository, cache TrainerCache, log *slog.Logger) *CachedTrainers {
	return &CachedTrainers{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// TrainerByQRCode возвращает тренера, если его QR-ключ совпадает с key.
// Тренер не найден: ErrNotFound, ключ не совпал: ErrBadRequest. Профиль из кэша
// с другим ключом удаляется и перечитывается из хранилища, ключ мог смениться.
func (c *CachedTrainers) TrainerByQRCode(ctx context.Context, username, key string) (*models.TrainerProfile, error) {
	const op = "checkin.TrainerByQRCode"
	log := c.log.With(slog.String("op", op), slog.String("trainer", username))

	cached, found, err := c.cache.Trainer(username)
	if err != nil {
		log.Warn("failed to read trainer from cache", sl.Err(err))
	}
	if found {
		if cached.QRCodeKey == key {
			return cached, nil
		}
		if err := c.cache.ForgetTrainer(username); err != nil {
			log.Warn("failed to invalidate trainer", sl.Err(err))
		}
	}

	t, err := c.repo.TrainerByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := c.cache.PutTrainer(t); err != nil {
		log.Warn("failed to cache trainer", sl.Err(err))
	}
	if t.QRCodeKey != key {
		return nil, fmt.Errorf("%s: qr code key does not match trainer %q: %w", op, username, models.ErrBadRequest)
	}
	return t, nil
}

// TrainerByUserID возвращает профиль тренера по идентификатору пользователя.
func (c *CachedTrainers) TrainerByUserID(ctx context.Context, userID string) (*models.TrainerProfile, error) {
	const op = "checkin.TrainerByUserID"
	t, err := c.repo.TrainerByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// Package checkin собирает HTTP-приложение отметки посещений: хранилище, кэш тренеров,
// публикацию событий в RabbitMQ и маршруты.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/attendance-checkin/internal/cache"
	"github.com/magabrotheeeer/attendance-checkin/internal/config"
	"github.com/magabrotheeeer/attendance-checkin/internal/lib/jwt"
	"github.com/magabrotheeeer/attendance-checkin/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/attendance-checkin/internal/lib/sl"
	"github.com/magabrotheeeer/attendance-checkin/internal/migrations"
	"github.com/magabrotheeeer/attendance-checkin/internal/services/attendance"
	checkinservice "github.com/magabrotheeeer/attendance-checkin/internal/services/checkin"
	"github.com/magabrotheeeer/attendance-checkin/internal/services/entitlement"
	"github.com/magabrotheeeer/attendance-checkin/internal/services/schedule"
	"github.com/magabrotheeeer/attendance-checkin/internal/services/training"
	"github.com/magabrotheeeer/attendance-checkin/internal/storage"
)

// App HTTP-приложение с его зависимостями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	amqp   *amqp.Connection
}

// Services сервисы, которые обслуживают маршруты.
type Services struct {
	Checkin  *checkinservice.Service
	Schedule *schedule.Service
	Trainers *checkinservice.CachedTrainers
	Storage  *storage.Storage
	Tokens   jwt.Maker
}

// New подключается к зависимостям и собирает сервисы.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.checkin.New"

	loc, err := cfg.Attendance.Location()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}

	// без RABBITMQ_URL события не публикуются
	var (
		attendanceEvents attendance.EventPublisher
		scheduleEvents   schedule.EventPublisher
	)
	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.amqp = conn
		ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, rabbitmq.EventQueues())
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		publisher := rabbitmq.NewPublisher(ch, cfg.RabbitMQ.Exchange)
		attendanceEvents, scheduleEvents = publisher, publisher
	} else {
		logger.Warn("rabbitmq url is empty, events are not published")
	}

	trainers := checkinservice.NewCachedTrainers(db, cache.NewTrainers(cacheRedis, cfg.RedisConnection.TrainerTTL), logger)
	services := Services{
		Checkin: checkinservice.NewService(
			db,
			trainers,
			training.NewResolver(db, cfg.Attendance.ActiveWindow, loc, logger),
			entitlement.NewSelector(db, logger),
			attendance.NewRecorder(db, attendanceEvents, logger),
			logger,
		),
		Schedule: schedule.NewService(db, scheduleEvents, cfg.Attendance.ConflictLookBack, logger),
		Trainers: trainers,
		Storage:  db,
		Tokens:   jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, services, cfg.RateLimit)

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close redis client", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", sl.Err(err))
	}
}

package checkin

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/attendance-checkin/internal/config"
	"github.com/magabrotheeeer/attendance-checkin/internal/http/handlers/checkin/mark"
	"github.com/magabrotheeeer/attendance-checkin/internal/http/handlers/health"
	"github.com/magabrotheeeer/attendance-checkin/internal/http/handlers/trainer/createtrainings"
	"github.com/magabrotheeeer/attendance-checkin/internal/http/handlers/trainer/scan"
	"github.com/magabrotheeeer/attendance-checkin/internal/http/middlewarectx"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services, limit config.RateLimit) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Tokens, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, limit.RPS, limit.Burst))
			r.Post("/checkin", mark.New(logger, s.Checkin).ServeHTTP)
			r.Post("/trainer/scan", scan.New(logger, s.Checkin).ServeHTTP)
			r.Post("/trainer/trainings", createtrainings.New(logger, s.Trainers, s.Schedule).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, s.Storage).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

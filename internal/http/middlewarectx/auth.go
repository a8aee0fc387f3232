// Package middlewarectx содержит HTTP middleware аутентификации и ограничения частоты запросов.
//
// JWTMiddleware проверяет токен из заголовка Authorization и кладёт в контекст
// имя, идентификатор и роли пользователя.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/attendance-checkin/internal/http/response"
	"github.com/magabrotheeeer/attendance-checkin/internal/lib/jwt"
	"github.com/magabrotheeeer/attendance-checkin/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// User ключ для имени пользователя в контексте
	User Key = "username"
	// UserID ключ для идентификатора пользователя в контексте
	UserID Key = "user_id"
	// Roles ключ для ролей пользователя в контексте
	Roles Key = "roles"
)

// TokenParser проверяет JWT токен.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// JWTMiddleware возвращает middleware, который пропускает только запросы с валидным токеном.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			ctx := context.WithValue(r.Context(), User, claims.Username)
			ctx = context.WithValue(ctx, UserID, claims.UserID)
			ctx = context.WithValue(ctx, Roles, claims.Roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Username возвращает имя пользователя из контекста запроса.
func Username(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(User).(string)
	return v, ok && v != ""
}

// CurrentUserID возвращает идентификатор пользователя из контекста запроса.
func CurrentUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(UserID).(string)
	return v, ok && v != ""
}

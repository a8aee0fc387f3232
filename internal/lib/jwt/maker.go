// Package jwt выпускает и проверяет JWT токены пользователей сервиса отметок.
package jwt

import (
	"time"
)

// Maker создаёт и разбирает токены.
type Maker interface {
	GenerateToken(username, userID string, roles []string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl подписывает токены по HS256 общим секретом.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewJWTMaker создаёт MakerImpl с секретом и временем жизни токена.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}

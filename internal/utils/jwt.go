package utils

import (
	"errors"
	"time"

	"paycore/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "paycore-api"

var ErrInvalidToken = errors.New("invalid token")

// GenerateToken signs an HS256 access token for claims, valid for ttl from now.
func GenerateToken(secret string, ttl time.Duration, claims *models.UserClaims, now time.Time) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("JWT secret not configured")
	}

	expiresAt := now.Add(ttl)
	accessClaims := models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   claims.UserID,
		},
		UserID:       claims.UserID,
		Email:        claims.Email,
		Role:         claims.Role,
		Permissions:  claims.Permissions,
		TokenVersion: claims.TokenVersion,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ParseToken validates tokenStr and returns its claims.
func ParseToken(secret, tokenStr string) (*models.UserClaims, error) {
	if secret == "" {
		return nil, errors.New("JWT secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenStr, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

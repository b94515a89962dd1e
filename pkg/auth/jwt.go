package auth

import (
	"errors"
	"time"

	"rulecard-service/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

const ScopeSession = "session"

type Claims struct {
	SessionID string `json:"sessionId"`
	Scope     string `json:"scope"`
	jwt.RegisteredClaims
}

// GenerateSessionToken issues the bearer token that grants control of one
// session.
func GenerateSessionToken(sessionID string) (string, error) {
	duration := time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour
	claims := Claims{
		SessionID: sessionID,
		Scope:     ScopeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   sessionID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.GlobalConfig.JWT.Secret))
}

func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.GlobalConfig.JWT.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseSessionToken accepts only session-scoped tokens issued for sessionID.
func ParseSessionToken(tokenString, sessionID string) (*Claims, error) {
	claims, err := ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Scope != ScopeSession || claims.SessionID == "" || claims.SessionID != sessionID {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

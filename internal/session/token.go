package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken - cookie сессии поврежден, подделан или подписан другим секретом.
var ErrInvalidToken = errors.New("invalid session token")

const tokenIssuer = "voice-console"

// tokenClaims - содержимое cookie сессии. ID (jti) - ключ сессии в Store.
type tokenClaims struct {
	jwt.RegisteredClaims
}

// signer подписывает и проверяет токен сессии (HS256).
type signer struct {
	secret []byte
}

func newSigner(secret string) (*signer, error) {
	if secret == "" {
		return nil, errors.New("session secret cannot be empty")
	}
	return &signer{secret: []byte(secret)}, nil
}

func (s *signer) sign(sessionID, username string, now time.Time) (string, error) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   tokenIssuer,
			Subject:  username,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       sessionID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// parse проверяет подпись и возвращает ID сессии.
func (s *signer) parse(tokenString string) (string, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		return "", fmt.Errorf("%w: session id missing", ErrInvalidToken)
	}
	return claims.ID, nil
}

package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voice-console/shared/models"
)

// CookieName - имя cookie сессии консоли.
const CookieName = "console_session"

// Authenticator проверяет пару логин/пароль (client.ConsoleAPI.Login).
type Authenticator interface {
	Login(ctx context.Context, username, password string) error
}

// Session - разрешенная сессия оператора.
type Session struct {
	ID         string
	Credential Credential
	Username   string
}

// Gate - вход, проверка и выход из консоли.
type Gate struct {
	auth    Authenticator
	store   Store
	signer  *signer
	idleTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewGate создает Gate. secret подписывает cookie сессии, idleTTL - время простоя на сервере.
func NewGate(auth Authenticator, store Store, secret string, idleTTL time.Duration, logger *zap.Logger) (*Gate, error) {
	if auth == nil || store == nil {
		return nil, errors.New("session gate requires authenticator and store")
	}
	s, err := newSigner(secret)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		auth:    auth,
		store:   store,
		signer:  s,
		idleTTL: idleTTL,
		logger:  logger.Named("SessionGate"),
		now:     time.Now,
	}, nil
}

// Login проверяет учетные данные на бэкенде и открывает сессию.
// Любой отказ аутентификации - models.ErrInvalidCredentials без уточнения причины.
// Ошибки транспорта и прочие ошибки бэкенда возвращаются как есть.
func (g *Gate) Login(ctx context.Context, username, password string) (string, *Session, error) {
	username = strings.TrimSpace(username)
	log := g.logger.With(zap.String("username", username))
	if username == "" || password == "" {
		return "", nil, models.ErrInvalidCredentials
	}

	if err := g.auth.Login(ctx, username, password); err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) || errors.Is(err, models.ErrUnauthorized) {
			log.Info("Login rejected by configuration service")
			return "", nil, models.ErrInvalidCredentials
		}
		log.Error("Login check failed", zap.Error(err))
		return "", nil, err
	}

	sess := &Session{
		ID:         uuid.NewString(),
		Credential: NewCredential(username, password),
		Username:   username,
	}
	// Токен подписывается до сохранения: в хранилище не остается сессий без cookie.
	token, err := g.signer.sign(sess.ID, username, g.now())
	if err != nil {
		log.Error("Failed to sign session token", zap.Error(err))
		return "", nil, err
	}
	if err := g.store.Save(ctx, sess.ID, sess.Credential, g.idleTTL); err != nil {
		log.Error("Failed to store session", zap.String("sessionID", sess.ID), zap.Error(err))
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}
	log.Info("Console session opened", zap.String("sessionID", sess.ID))
	return token, sess, nil
}

// Resolve проверяет cookie и возвращает сессию.
// Неверный токен и отсутствующая сессия - models.ErrSessionNotFound.
func (g *Gate) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, models.ErrSessionNotFound
	}
	id, err := g.signer.parse(token)
	if err != nil {
		g.logger.Debug("Session token rejected", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrSessionNotFound, err)
	}
	cred, err := g.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, Credential: cred, Username: cred.Username()}, nil
}

// Logout удаляет credential сессии. Возвращает ID закрытой сессии (пустой, если токен невалиден).
func (g *Gate) Logout(ctx context.Context, token string) (string, error) {
	id, err := g.signer.parse(token)
	if err != nil {
		return "", nil
	}
	if err := g.store.Delete(ctx, id); err != nil {
		return id, err
	}
	g.logger.Info("Console session closed", zap.String("sessionID", id))
	return id, nil
}

// NewCookie - cookie сессии браузера: без Max-Age/Expires, исчезает при закрытии браузера.
func NewCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredCookie удаляет cookie сессии в браузере.
func ExpiredCookie(secure bool) *http.Cookie {
	c := NewCookie("", secure)
	c.MaxAge = -1
	return c
}

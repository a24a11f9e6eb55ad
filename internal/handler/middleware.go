package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voice-console/internal/client"
	"voice-console/internal/session"
	"voice-console/shared/middleware"
	"voice-console/shared/models"
)

// authMiddleware пускает в /console только с действующей сессией.
// Credential сессии и origin запроса кладутся в context.Context для клиента сервиса конфигурации.
func (h *ConsoleHandler) authMiddleware(c *gin.Context) {
	token, _ := c.Cookie(session.CookieName)
	sess, err := h.gate.Resolve(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, models.ErrSessionNotFound) {
			h.logger.Error("Failed to resolve console session", zap.Error(err))
		}
		http.SetCookie(c.Writer, session.ExpiredCookie(h.secureCookies))
		if token != "" {
			h.setFlash(c, "info", msgSessionExpired)
		}
		h.redirect(c, "/login")
		c.Abort()
		return
	}

	c.Set(string(models.SessionIDContextKey), sess.ID)
	c.Set(string(models.UsernameContextKey), sess.Username)
	c.Request = c.Request.WithContext(sessionContext(c.Request.Context(), c, sess))
	c.Next()
}

func sessionContext(ctx context.Context, c *gin.Context, sess *session.Session) context.Context {
	ctx = client.WithCredential(ctx, string(sess.Credential))
	ctx = client.WithOrigin(ctx, requestOrigin(c))
	ctx = context.WithValue(ctx, models.SessionIDContextKey, sess.ID)
	return context.WithValue(ctx, models.UsernameContextKey, sess.Username)
}

// redirect: для htmx-запроса - заголовок HX-Redirect (полная навигация в браузере), иначе 303.
func (h *ConsoleHandler) redirect(c *gin.Context, location string) {
	if isHTMX(c) {
		c.Header("HX-Redirect", location)
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, location)
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// requestOrigin восстанавливает origin консоли с учетом обратного прокси.
func requestOrigin(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	host := c.Request.Host
	if fwd := c.GetHeader("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + host
}

func username(c *gin.Context) string {
	return c.GetString(string(models.UsernameContextKey))
}

func sessionIDOf(c *gin.Context) string {
	return c.GetString(string(models.SessionIDContextKey))
}

func requestLogger(base *zap.Logger, c *gin.Context) *zap.Logger {
	return base.With(
		zap.String("requestID", c.GetString(middleware.RequestIDKey)),
		zap.String("username", username(c)),
	)
}

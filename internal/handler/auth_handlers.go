package handler

import (
	"errors"
	"net/http"
	"time"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"voice-console/internal/client"
	"voice-console/internal/session"
	"voice-console/shared/models"
)

const msgTooManyAttempts = "Too many sign-in attempts. Wait a minute and try again."

func (h *ConsoleHandler) showLoginPage(c *gin.Context) {
	if token, err := c.Cookie(session.CookieName); err == nil && token != "" {
		if _, err := h.gate.Resolve(c.Request.Context(), token); err == nil {
			c.Redirect(http.StatusSeeOther, "/console")
			return
		}
		http.SetCookie(c.Writer, session.ExpiredCookie(h.secureCookies))
	}
	c.HTML(http.StatusOK, "login.html", pageData{Title: "Sign in", Flash: h.popFlash(c)})
}

func (h *ConsoleHandler) handleLogin(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	log := h.logger.With(zap.String("username", username), zap.String("clientIP", c.ClientIP()))
	log.Info("Login attempt")

	ctx := client.WithOrigin(c.Request.Context(), requestOrigin(c))
	token, sess, err := h.gate.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			loginAttemptsTotal.WithLabelValues(loginRejected).Inc()
			log.Warn("Login rejected")
		} else {
			loginAttemptsTotal.WithLabelValues(loginError).Inc()
			log.Error("Login failed", zap.Error(err))
		}
		c.HTML(http.StatusOK, "login.html", pageData{
			Title:        "Sign in",
			Error:        userMessage(err),
			FormUsername: username,
		})
		return
	}

	loginAttemptsTotal.WithLabelValues(loginOK).Inc()
	http.SetCookie(c.Writer, session.NewCookie(token, h.secureCookies))
	h.setFlash(c, "success", "Signed in as "+sess.Username+".")
	log.Info("Console login successful", zap.String("sessionID", sess.ID))
	h.redirect(c, "/console")
}

func (h *ConsoleHandler) handleLogout(c *gin.Context) {
	token, _ := c.Cookie(session.CookieName)
	if token != "" {
		id, err := h.gate.Logout(c.Request.Context(), token)
		if err != nil {
			h.logger.Error("Failed to close console session", zap.String("sessionID", id), zap.Error(err))
		}
		if id != "" {
			h.cache.InvalidateSession(id)
		}
	}
	logoutsTotal.Inc()
	http.SetCookie(c.Writer, session.ExpiredCookie(h.secureCookies))
	h.setFlash(c, "info", "You have been signed out.")
	h.redirect(c, "/login")
}

// NewLoginRateLimiter ограничивает попытки входа с одного IP: limit в минуту.
// Со счетчиками в Redis лимит общий для всех экземпляров консоли, без Redis - в памяти процесса.
func NewLoginRateLimiter(redisClient *redis.Client, limit uint, logger *zap.Logger) gin.HandlerFunc {
	var store rateli.Store
	if redisClient != nil {
		store = rateli.RedisStore(&rateli.RedisOptions{
			RedisClient: redisClient,
			Rate:        time.Minute,
			Limit:       limit,
		})
	} else {
		store = rateli.InMemoryStore(&rateli.InMemoryOptions{
			Rate:  time.Minute,
			Limit: limit,
		})
	}
	return rateli.RateLimiter(store, &rateli.Options{
		ErrorHandler: func(c *gin.Context, info rateli.Info) {
			loginAttemptsTotal.WithLabelValues(loginRateLimited).Inc()
			logger.Warn("Login rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
			)
			c.HTML(http.StatusTooManyRequests, "login.html", pageData{
				Title:        "Sign in",
				Error:        msgTooManyAttempts,
				FormUsername: c.PostForm("username"),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return "console_login:" + c.ClientIP()
		},
	})
}

// Package handler - HTTP-слой консоли: вход, панели, фрагменты htmx.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voice-console/internal/cache"
	"voice-console/internal/domain"
	"voice-console/internal/panel"
	"voice-console/internal/service"
	"voice-console/internal/session"
)

// Deps - зависимости ConsoleHandler.
type Deps struct {
	Gate        *session.Gate
	Cache       *cache.QueryCache
	Greetings   *service.GreetingService
	Prompts     *service.PromptService
	Agents      *service.AgentService
	Corrections *service.CorrectionService
	Dashboard   *service.DashboardService
	// FlashSecret подписывает flash-cookie.
	FlashSecret   []byte
	SecureCookies bool
	// LoginLimiter ограничивает POST /login; nil - без ограничения.
	LoginLimiter gin.HandlerFunc
	Logger       *zap.Logger
}

// ConsoleHandler обслуживает страницы и фрагменты консоли.
type ConsoleHandler struct {
	logger        *zap.Logger
	gate          *session.Gate
	cache         *cache.QueryCache
	tracker       *panel.Tracker
	dashboard     *service.DashboardService
	agents        *service.AgentService
	corrections   *service.CorrectionService
	greetings     *textPanelHandler[domain.Greeting]
	prompts       *textPanelHandler[domain.IVRPrompt]
	flashSecret   []byte
	secureCookies bool
	loginLimiter  gin.HandlerFunc
}

// NewConsoleHandler создает обработчик консоли.
func NewConsoleHandler(d Deps) (*ConsoleHandler, error) {
	if d.Gate == nil || d.Cache == nil {
		return nil, errors.New("console handler requires session gate and cache")
	}
	if d.Greetings == nil || d.Prompts == nil || d.Agents == nil || d.Corrections == nil || d.Dashboard == nil {
		return nil, errors.New("console handler requires all panel services")
	}
	if len(d.FlashSecret) == 0 {
		return nil, errors.New("flash secret is empty")
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &ConsoleHandler{
		logger:        logger.Named("ConsoleHandler"),
		gate:          d.Gate,
		cache:         d.Cache,
		tracker:       panel.NewTracker(),
		dashboard:     d.Dashboard,
		agents:        d.Agents,
		corrections:   d.Corrections,
		flashSecret:   d.FlashSecret,
		secureCookies: d.SecureCookies,
		loginLimiter:  d.LoginLimiter,
	}
	h.greetings = &textPanelHandler[domain.Greeting]{
		h:     h,
		name:  panel.Greetings,
		title: "Greetings",
		svc:   d.Greetings,
		fill:  func(v *panelView, records []domain.Greeting) { v.Greetings = records },
	}
	h.prompts = &textPanelHandler[domain.IVRPrompt]{
		h:     h,
		name:  panel.IVRPrompts,
		title: "IVR Prompts",
		svc:   d.Prompts,
		fill:  func(v *panelView, records []domain.IVRPrompt) { v.Prompts = records },
	}
	return h, nil
}

// RegisterRoutes регистрирует маршруты консоли.
func (h *ConsoleHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.healthCheck)
	router.GET("/", func(c *gin.Context) { c.Redirect(http.StatusSeeOther, "/console") })

	router.GET("/login", h.showLoginPage)
	login := []gin.HandlerFunc{h.handleLogin}
	if h.loginLimiter != nil {
		login = append([]gin.HandlerFunc{h.loginLimiter}, login...)
	}
	router.POST("/login", login...)
	router.GET("/logout", h.handleLogout)

	console := router.Group("/console", h.authMiddleware)
	{
		console.GET("", h.showDashboard)
		console.POST("/cache/refresh", h.refreshCache)

		h.greetings.register(console.Group("/greetings"))
		h.prompts.register(console.Group("/ivr-prompts"))

		agents := console.Group("/agents")
		{
			agents.GET("", h.showAgents)
			agents.GET("/panel", h.agentsPanel)
			agents.POST("", h.createAgent)
			agents.POST("/:id", h.updateAgent)
			agents.POST("/:id/delete", h.deleteAgent)
			agents.POST("/:id/activate", h.activateAgent)
		}

		corrections := console.Group("/corrections")
		{
			corrections.GET("", h.showCorrections)
			corrections.GET("/panel", h.correctionsPanel)
			corrections.POST("", h.createCorrection)
			corrections.POST("/:id/delete", h.deleteCorrection)
		}
	}
}

func (h *ConsoleHandler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

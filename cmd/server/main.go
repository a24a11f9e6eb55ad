package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	redis "github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"voice-console/internal/cache"
	"voice-console/internal/client"
	"voice-console/internal/config"
	"voice-console/internal/handler"
	"voice-console/internal/service"
	"voice-console/internal/session"
	"voice-console/internal/web"
	sharedLogger "voice-console/shared/logger"
	"voice-console/shared/messaging"
	sharedMiddleware "voice-console/shared/middleware"
)

func main() {
	envFile := flag.String("env-file", ".env", "path to .env file (missing file is ignored)")
	configFile := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	// --- Configuration ---
	cfg, err := config.LoadConfig(*envFile, *configFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
		Service:  "voice-console",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if cfg.SessionSecret == "" {
		// Сессии не переживут рестарт, но консоль работает
		cfg.SessionSecret = randomSecret()
		logger.Warn("SESSION_SECRET is not set, generated a random one; sessions will not survive a restart")
	}
	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("instanceID", cfg.InstanceID),
		zap.String("apiBaseURL", cfg.API.BaseURL),
		zap.Bool("redis", cfg.Redis.Addr != ""),
		zap.Bool("rabbitmq", cfg.RabbitMQ.URL != ""),
	)

	// --- External Connections ---
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = setupRedis(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	var sessionStore session.Store
	if redisClient != nil {
		sessionStore = session.NewRedisStore(redisClient, cfg.Session.IdleTTL, logger)
	} else {
		memStore := session.NewMemoryStore()
		go memStore.RunSweeper(appCtx, time.Minute)
		sessionStore = memStore
	}

	api, err := client.NewConsoleClient(cfg.API.BaseURL, cfg.API.Timeout, logger)
	if err != nil {
		logger.Fatal("Failed to create configuration service client", zap.Error(err))
	}

	queryCache, err := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL, logger)
	if err != nil {
		logger.Fatal("Failed to create query cache", zap.Error(err))
	}
	defer queryCache.Close()

	var publisher messaging.ConfigEventPublisher = messaging.NoopPublisher{}
	var consumer *messaging.ConfigChangeConsumer
	if cfg.RabbitMQ.URL != "" {
		mqConn, err := connectRabbitMQ(cfg.RabbitMQ.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqConn.Close()

		rmqPublisher, err := messaging.NewRabbitMQConfigChangePublisher(mqConn, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Fatal("Failed to create config change publisher", zap.Error(err))
		}
		publisher = rmqPublisher

		invalidator := service.NewCacheInvalidator(queryCache, logger)
		consumer, err = messaging.NewConfigChangeConsumer(mqConn, cfg.RabbitMQ.Exchange, cfg.InstanceID, invalidator, logger)
		if err != nil {
			logger.Fatal("Failed to create config change consumer", zap.Error(err))
		}
		if err := consumer.Start(appCtx); err != nil {
			logger.Fatal("Failed to start config change consumer", zap.Error(err))
		}
	} else {
		logger.Info("RABBITMQ_URL is not set, config change events are disabled")
	}

	// --- Dependency Injection ---
	deps := service.Deps{
		API:              api,
		Cache:            queryCache,
		Publisher:        publisher,
		WriteConcurrency: cfg.WriteConcurrency,
		Source:           cfg.InstanceID,
		Logger:           logger,
	}

	gate, err := session.NewGate(api, sessionStore, cfg.SessionSecret, cfg.Session.IdleTTL, logger)
	if err != nil {
		logger.Fatal("Failed to create session gate", zap.Error(err))
	}

	consoleHandler, err := handler.NewConsoleHandler(handler.Deps{
		Gate:          gate,
		Cache:         queryCache,
		Greetings:     service.NewGreetingService(deps),
		Prompts:       service.NewPromptService(deps),
		Agents:        service.NewAgentService(deps),
		Corrections:   service.NewCorrectionService(deps),
		Dashboard:     service.NewDashboardService(deps),
		FlashSecret:   []byte(cfg.SessionSecret),
		SecureCookies: cfg.Session.SecureCookies,
		LoginLimiter:  handler.NewLoginRateLimiter(redisClient, cfg.LoginRateLimit, logger),
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("Failed to create console handler", zap.Error(err))
	}

	renderer, err := web.NewTemplateRenderer(cfg.Web.TemplateDir, logger)
	if err != nil {
		logger.Fatal("Failed to load templates", zap.Error(err))
	}

	// --- Router ---
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HTMLRender = renderer

	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	if len(cfg.Web.CORSAllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.Web.CORSAllowedOrigins
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = append(corsConfig.AllowHeaders,
			"HX-Request", "HX-Target", "HX-Trigger", "HX-Current-URL", sharedMiddleware.RequestIDHeader)
		corsConfig.ExposeHeaders = []string{"HX-Redirect", sharedMiddleware.RequestIDHeader}
		router.Use(cors.New(corsConfig))
	}

	router.Use(gin.Recovery())
	router.Use(sharedMiddleware.GinZapLogger(logger))
	router.Use(handler.CustomErrorMiddleware(logger))

	router.StaticFS("/static", web.StaticFS())
	consoleHandler.RegisterRoutes(router)

	// --- Start HTTP Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting voice console", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.Error("Error stopping config change consumer", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	if err := publisher.Close(); err != nil {
		logger.Error("Error closing config change publisher", zap.Error(err))
	}
	appCancel()

	logger.Info("Server exiting")
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// setupRedis подключается к Redis с повторными попытками.
func setupRedis(cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	redisOpts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	maxRetries := 20
	retryDelay := 3 * time.Second
	logger.Info("Attempting to connect and ping Redis",
		zap.String("address", redisOpts.Addr),
		zap.Int("db", redisOpts.DB),
		zap.Int("max_retries", maxRetries),
	)

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		attempt := i + 1
		client := redis.NewClient(redisOpts)

		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := client.Ping(pingCtx).Result()
		pingCancel()
		if err == nil {
			logger.Info("Successfully connected and pinged Redis", zap.Int("attempt", attempt))
			return client, nil
		}

		client.Close()
		lastErr = fmt.Errorf("unable to ping redis (attempt %d/%d): %w", attempt, maxRetries, err)
		logger.Warn("Redis ping failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxRetries, lastErr)
}

// connectRabbitMQ подключается к RabbitMQ с повторными попытками.
func connectRabbitMQ(rawURL string, logger *zap.Logger) (*amqp091.Connection, error) {
	maxRetries := 20
	retryDelay := 5 * time.Second
	logger.Info("Attempting to connect to RabbitMQ",
		zap.String("url", redactURL(rawURL)),
		zap.Int("max_retries", maxRetries),
		zap.Duration("retry_delay", retryDelay),
	)

	var err error
	for i := 0; i < maxRetries; i++ {
		attempt := i + 1
		var conn *amqp091.Connection
		conn, err = amqp091.Dial(rawURL)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ", zap.Int("attempt", attempt))
			go func() {
				notifyClose := conn.NotifyClose(make(chan *amqp091.Error, 1))
				if closeErr := <-notifyClose; closeErr != nil {
					logger.Error("RabbitMQ connection closed unexpectedly", zap.Error(closeErr))
				} else {
					logger.Info("RabbitMQ connection closed gracefully")
				}
			}()
			return conn, nil
		}
		logger.Warn("RabbitMQ connection failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"voice-console/shared/utils"
)

// Config хранит конфигурацию консоли.
type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"production"`
	ServerPort string `yaml:"server_port" env:"SERVER_PORT" env-default:"8085"`
	// InstanceID - источник событий этого экземпляра; пусто - сгенерировать при старте.
	InstanceID string `yaml:"instance_id" env:"INSTANCE_ID"`

	Log      LogConfig
	API      APIConfig
	Session  SessionConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Cache    CacheConfig
	Web      WebConfig

	// WriteConcurrency - лимит одновременных запросов в батче записей, 0 - без лимита.
	WriteConcurrency int `yaml:"write_concurrency" env:"WRITE_CONCURRENCY" env-default:"0"`
	// LoginRateLimit - попыток входа в минуту с одного IP.
	LoginRateLimit uint `yaml:"login_rate_limit" env:"LOGIN_RATE_LIMIT" env-default:"10"`

	// Секреты без тегов
	SessionSecret string
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
}

type APIConfig struct {
	// BaseURL читается один раз при старте. Пусто - тот же origin, что у запроса к консоли.
	BaseURL string `yaml:"base_url" env:"API_BASE_URL"`
	// Timeout == 0 - таймаут транспорта по умолчанию.
	Timeout time.Duration `yaml:"timeout" env:"API_CLIENT_TIMEOUT" env-default:"0s"`
}

type SessionConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl" env:"SESSION_IDLE_TTL" env-default:"12h"`
	SecureCookies bool          `yaml:"secure_cookies" env:"SECURE_COOKIES" env-default:"false"`
}

type RedisConfig struct {
	// Addr пусто - сессии и лимиты входа хранятся в памяти процесса.
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	Password string
}

type RabbitMQConfig struct {
	// URL пусто - события изменений не публикуются.
	URL      string `yaml:"url" env:"RABBITMQ_URL"`
	Exchange string `yaml:"exchange" env:"CONFIG_EVENTS_EXCHANGE" env-default:"console.config.changed"`
}

type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"30s"`
	MaxEntries int64         `yaml:"max_entries" env:"CACHE_MAX_ENTRIES" env-default:"10000"`
}

type WebConfig struct {
	// TemplateDir пусто - встроенные шаблоны; иначе шаблоны читаются с диска на каждый запрос.
	TemplateDir        string   `yaml:"template_dir" env:"TEMPLATE_DIR"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

// IsDevelopment сообщает, что консоль запущена локально.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// LoadConfig загружает конфигурацию: .env (если есть), YAML (если задан), переменные окружения, секреты.
func LoadConfig(envFile, configFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file '%s': %w", envFile, err)
		}
	}

	var cfg Config
	if configFile != "" {
		if err := cleanenv.ReadConfig(configFile, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", configFile, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}

	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if cfg.WriteConcurrency < 0 {
		return nil, fmt.Errorf("WRITE_CONCURRENCY must not be negative, got %d", cfg.WriteConcurrency)
	}
	if cfg.Cache.MaxEntries <= 0 {
		return nil, fmt.Errorf("CACHE_MAX_ENTRIES must be positive, got %d", cfg.Cache.MaxEntries)
	}

	secret, err := utils.ReadSecretOrEnv(utils.DefaultSecretsDir, "session_secret", "SESSION_SECRET")
	switch {
	case err == nil:
		cfg.SessionSecret = secret
	case errors.Is(err, utils.ErrSecretNotFound):
		// Пустой секрет: main сгенерирует случайный на время жизни процесса.
		log.Printf("session_secret not configured, sessions will not survive a restart")
	default:
		return nil, fmt.Errorf("failed to read session_secret: %w", err)
	}

	if cfg.Redis.Addr != "" {
		password, err := utils.ReadSecretOrEnv(utils.DefaultSecretsDir, "redis_password", "REDIS_PASSWORD")
		if err != nil && !errors.Is(err, utils.ErrSecretNotFound) {
			return nil, fmt.Errorf("failed to read redis_password: %w", err)
		}
		cfg.Redis.Password = password
	}

	return &cfg, nil
}

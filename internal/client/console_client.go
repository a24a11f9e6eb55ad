package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"voice-console/internal/domain"
	"voice-console/shared/models"
)

// ErrNoOrigin возвращается, когда базовый URL не задан и в контексте нет origin запроса.
var ErrNoOrigin = errors.New("api base url is empty and request origin is unknown")

// consoleClient реализует ConsoleAPI поверх go-resty.
type consoleClient struct {
	baseURL string
	http    *resty.Client
	logger  *zap.Logger
}

// NewConsoleClient создает клиент сервиса конфигурации.
// Пустой baseURL означает "тот же origin, что и у консоли": адрес берется из WithOrigin.
// timeout == 0 оставляет таймаут транспорта по умолчанию.
func NewConsoleClient(baseURL string, timeout time.Duration, logger *zap.Logger) (ConsoleAPI, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL != "" {
		u, err := url.ParseRequestURI(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL for configuration service: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid base URL for configuration service: %q has no scheme or host", baseURL)
		}
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	named := logger.Named("ConsoleAPIClient")

	rc := resty.New().
		SetLogger(named.Sugar()).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		rc.SetTimeout(timeout)
	}

	return &consoleClient{
		baseURL: baseURL,
		http:    rc,
		logger:  named,
	}, nil
}

// endpoint собирает абсолютный URL для пути /admin/...
func (c *consoleClient) endpoint(ctx context.Context, path string) (string, error) {
	if c.baseURL != "" {
		return c.baseURL + path, nil
	}
	origin, ok := OriginFromContext(ctx)
	if !ok {
		return "", ErrNoOrigin
	}
	return strings.TrimRight(origin, "/") + path, nil
}

// do выполняет один запрос. out == nil означает, что тело успешного ответа не нужно.
func (c *consoleClient) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	endpoint, err := c.endpoint(ctx, path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log := c.logger.With(zap.String("op", op), zap.String("method", method), zap.String("url", endpoint))

	req := c.http.R().SetContext(ctx)
	if cred, ok := CredentialFromContext(ctx); ok {
		req.SetHeader("Authorization", "Basic "+cred)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, endpoint)
	if err != nil {
		apiRequestDuration.WithLabelValues(op, outcomeTransport).Observe(time.Since(start).Seconds())
		log.Error("Request to configuration service failed", zap.Error(err))
		return fmt.Errorf("%s: %w: %w", op, models.ErrTransport, err)
	}

	if !resp.IsSuccess() {
		apiRequestDuration.WithLabelValues(op, outcomeHTTPError).Observe(time.Since(start).Seconds())
		log.Warn("Configuration service returned error status",
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("body", resp.Body()))
		return newAPIError(resp.StatusCode(), resp.Body())
	}
	apiRequestDuration.WithLabelValues(op, outcomeOK).Observe(time.Since(start).Seconds())

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		log.Error("Failed to unmarshal configuration service response",
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("body", resp.Body()),
			zap.Error(err))
		return fmt.Errorf("%s: invalid response format: %w", op, err)
	}
	log.Debug("Configuration service call succeeded", zap.Int("status", resp.StatusCode()))
	return nil
}

// --- Auth ---

func (c *consoleClient) Login(ctx context.Context, username, password string) error {
	err := c.do(ctx, "login", http.MethodPost, "/admin/login", loginRequest{Username: username, Password: password}, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
		return models.ErrInvalidCredentials
	}
	return err
}

// --- Greetings ---

func (c *consoleClient) ListGreetings(ctx context.Context) ([]domain.Greeting, error) {
	var out []domain.Greeting
	if err := c.do(ctx, "list_greetings", http.MethodGet, "/admin/greetings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *consoleClient) GetGreeting(ctx context.Context, language string) (*domain.Greeting, error) {
	var out domain.Greeting
	if err := c.do(ctx, "get_greeting", http.MethodGet, "/admin/greetings/"+url.PathEscape(language), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *consoleClient) UpsertGreeting(ctx context.Context, language, message string) error {
	return c.do(ctx, "upsert_greeting", http.MethodPut, "/admin/greetings/"+url.PathEscape(language), messageRequest{Message: message}, nil)
}

func (c *consoleClient) DeleteGreeting(ctx context.Context, language string) error {
	return c.do(ctx, "delete_greeting", http.MethodDelete, "/admin/greetings/"+url.PathEscape(language), nil, nil)
}

// --- IVR prompts ---

func (c *consoleClient) ListIVRPrompts(ctx context.Context) ([]domain.IVRPrompt, error) {
	var out []domain.IVRPrompt
	if err := c.do(ctx, "list_ivr_prompts", http.MethodGet, "/admin/ivr-prompts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *consoleClient) GetIVRPrompt(ctx context.Context, key string) (*domain.IVRPrompt, error) {
	var out domain.IVRPrompt
	if err := c.do(ctx, "get_ivr_prompt", http.MethodGet, "/admin/ivr-prompts/"+url.PathEscape(key), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *consoleClient) UpsertIVRPrompt(ctx context.Context, key, message string) error {
	return c.do(ctx, "upsert_ivr_prompt", http.MethodPut, "/admin/ivr-prompts/"+url.PathEscape(key), messageRequest{Message: message}, nil)
}

func (c *consoleClient) DeleteIVRPrompt(ctx context.Context, key string) error {
	return c.do(ctx, "delete_ivr_prompt", http.MethodDelete, "/admin/ivr-prompts/"+url.PathEscape(key), nil, nil)
}

// --- Agents ---

func agentPath(id int64) string {
	return "/admin/agents/" + strconv.FormatInt(id, 10)
}

func (c *consoleClient) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	var out []domain.Agent
	if err := c.do(ctx, "list_agents", http.MethodGet, "/admin/agents", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *consoleClient) GetAgent(ctx context.Context, id int64) (*domain.Agent, error) {
	var out domain.Agent
	if err := c.do(ctx, "get_agent", http.MethodGet, agentPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *consoleClient) CreateAgent(ctx context.Context, payload AgentCreate) (int64, error) {
	if payload.Specializations == nil {
		payload.Specializations = []string{}
	}
	var out createAgentResponse
	if err := c.do(ctx, "create_agent", http.MethodPost, "/admin/agents", payload, &out); err != nil {
		return 0, err
	}
	return out.AgentID, nil
}

func (c *consoleClient) UpdateAgent(ctx context.Context, id int64, payload AgentUpdate) error {
	return c.do(ctx, "update_agent", http.MethodPut, agentPath(id), payload, nil)
}

func (c *consoleClient) DeleteAgent(ctx context.Context, id int64) error {
	return c.do(ctx, "delete_agent", http.MethodDelete, agentPath(id), nil, nil)
}

func (c *consoleClient) AddSpecialization(ctx context.Context, id int64, category string, proficiency int) error {
	body := specializationRequest{Category: category, ProficiencyLevel: proficiency}
	return c.do(ctx, "add_specialization", http.MethodPost, agentPath(id)+"/specializations", body, nil)
}

func (c *consoleClient) RemoveSpecialization(ctx context.Context, id int64, category string) error {
	return c.do(ctx, "remove_specialization", http.MethodDelete, agentPath(id)+"/specializations/"+url.PathEscape(category), nil, nil)
}

// --- Corrections ---

func (c *consoleClient) ListCorrections(ctx context.Context) ([]domain.Correction, error) {
	var out []domain.Correction
	if err := c.do(ctx, "list_corrections", http.MethodGet, "/admin/corrections", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *consoleClient) CreateCorrection(ctx context.Context, payload CorrectionCreate) error {
	return c.do(ctx, "create_correction", http.MethodPost, "/admin/corrections", payload, nil)
}

func (c *consoleClient) DeleteCorrection(ctx context.Context, id int64) error {
	return c.do(ctx, "delete_correction", http.MethodDelete, "/admin/corrections/"+strconv.FormatInt(id, 10), nil, nil)
}

// --- Cache ---

func (c *consoleClient) RefreshCache(ctx context.Context) error {
	return c.do(ctx, "refresh_cache", http.MethodPost, "/admin/refresh-cache", nil, nil)
}

func (c *consoleClient) CacheStatus(ctx context.Context) (*domain.CacheStatus, error) {
	var out domain.CacheStatus
	if err := c.do(ctx, "cache_status", http.MethodGet, "/admin/cache-status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

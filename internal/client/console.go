package client

import (
	"context"

	"voice-console/internal/domain"
)

// ConsoleAPI определяет интерфейс для работы с REST API сервиса конфигурации (/admin/*).
// Каждый метод выполняет ровно один HTTP-запрос.
type ConsoleAPI interface {
	// Login проверяет пару логин/пароль на бэкенде. Неверные данные -> models.ErrInvalidCredentials.
	Login(ctx context.Context, username, password string) error

	ListGreetings(ctx context.Context) ([]domain.Greeting, error)
	GetGreeting(ctx context.Context, language string) (*domain.Greeting, error)
	UpsertGreeting(ctx context.Context, language, message string) error
	// DeleteGreeting удаляет переопределение, бэкенд возвращается к значению по умолчанию.
	DeleteGreeting(ctx context.Context, language string) error

	ListIVRPrompts(ctx context.Context) ([]domain.IVRPrompt, error)
	GetIVRPrompt(ctx context.Context, key string) (*domain.IVRPrompt, error)
	UpsertIVRPrompt(ctx context.Context, key, message string) error
	DeleteIVRPrompt(ctx context.Context, key string) error

	ListAgents(ctx context.Context) ([]domain.Agent, error)
	GetAgent(ctx context.Context, id int64) (*domain.Agent, error)
	// CreateAgent создает агента и возвращает его ID.
	CreateAgent(ctx context.Context, payload AgentCreate) (int64, error)
	// UpdateAgent отправляет только заполненные поля payload.
	UpdateAgent(ctx context.Context, id int64, payload AgentUpdate) error
	// DeleteAgent на бэкенде - мягкое удаление (агент становится неактивным).
	DeleteAgent(ctx context.Context, id int64) error
	AddSpecialization(ctx context.Context, id int64, category string, proficiency int) error
	RemoveSpecialization(ctx context.Context, id int64, category string) error

	ListCorrections(ctx context.Context) ([]domain.Correction, error)
	CreateCorrection(ctx context.Context, payload CorrectionCreate) error
	DeleteCorrection(ctx context.Context, id int64) error

	RefreshCache(ctx context.Context) error
	CacheStatus(ctx context.Context) (*domain.CacheStatus, error)
}

// AgentCreate - тело POST /admin/agents.
type AgentCreate struct {
	Name            string   `json:"name"`
	PhoneNumber     string   `json:"phone_number"`
	Region          string   `json:"region"`
	IsDefault       bool     `json:"is_default"`
	Specializations []string `json:"specializations"`
}

// AgentUpdate определяет структуру частичного обновления агента.
// Используем указатели, чтобы передать только изменяемые поля.
type AgentUpdate struct {
	Name        *string `json:"name,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Region      *string `json:"region,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	IsDefault   *bool   `json:"is_default,omitempty"`
}

// IsEmpty сообщает, что обновлять нечего.
func (u AgentUpdate) IsEmpty() bool {
	return u.Name == nil && u.PhoneNumber == nil && u.Region == nil && u.IsActive == nil && u.IsDefault == nil
}

// CorrectionCreate - тело POST /admin/corrections.
type CorrectionCreate struct {
	WrongWord   string `json:"wrong_word"`
	CorrectWord string `json:"correct_word"`
}

// --- Внутренние структуры запросов/ответов ---

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type specializationRequest struct {
	Category         string `json:"category"`
	ProficiencyLevel int    `json:"proficiency_level"`
}

type createAgentResponse struct {
	Status  string `json:"status"`
	AgentID int64  `json:"agent_id"`
}

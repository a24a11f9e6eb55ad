package messaging

import (
	"context"
	"time"
)

// DefaultConfigEventsExchange - fanout exchange для событий изменения конфигурации.
const DefaultConfigEventsExchange = "console.config.changed"

const configEventsExchangeType = "fanout"

// Сущности, которые меняет консоль.
const (
	EntityGreeting    = "greeting"
	EntityIVRPrompt   = "ivr_prompt"
	EntityAgent       = "agent"
	EntityCorrection  = "correction"
	EntityConfigCache = "config_cache"
)

// Действия над сущностями.
const (
	ActionUpsert  = "upsert"
	ActionReset   = "reset"
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionRefresh = "refresh"
)

// ConfigChangeEvent - событие после успешного батча записей.
type ConfigChangeEvent struct {
	ID     string    `json:"id"`
	Entity string    `json:"entity"`
	Action string    `json:"action"`
	Keys   []string  `json:"keys,omitempty"`
	Actor  string    `json:"actor,omitempty"`
	Source string    `json:"source,omitempty"` // экземпляр консоли, отправивший событие
	At     time.Time `json:"at"`
}

// ConfigEventPublisher публикует события изменения конфигурации.
type ConfigEventPublisher interface {
	PublishConfigChange(ctx context.Context, event ConfigChangeEvent) error
	Close() error
}

// NoopPublisher используется, когда RabbitMQ не настроен.
type NoopPublisher struct{}

var _ ConfigEventPublisher = NoopPublisher{}

func (NoopPublisher) PublishConfigChange(context.Context, ConfigChangeEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }

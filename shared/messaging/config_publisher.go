package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQConfigChangePublisher публикует ConfigChangeEvent в fanout exchange.
type RabbitMQConfigChangePublisher struct {
	conn         *amqp091.Connection
	ch           *amqp091.Channel
	logger       *zap.Logger
	exchangeName string
}

var _ ConfigEventPublisher = (*RabbitMQConfigChangePublisher)(nil)

// NewRabbitMQConfigChangePublisher открывает канал и объявляет durable fanout exchange.
func NewRabbitMQConfigChangePublisher(conn *amqp091.Connection, exchangeName string, logger *zap.Logger) (*RabbitMQConfigChangePublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}
	if exchangeName == "" {
		exchangeName = DefaultConfigEventsExchange
	}

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("Failed to open a channel for config change events", zap.Error(err))
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// Если exchange уже существует, ничего не произойдет.
	err = ch.ExchangeDeclare(
		exchangeName,
		configEventsExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		logger.Error("Failed to declare config events exchange", zap.String("exchange", exchangeName), zap.Error(err))
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchangeName, err)
	}

	logger.Info("Config events exchange declared", zap.String("exchange", exchangeName), zap.String("type", configEventsExchangeType))

	return &RabbitMQConfigChangePublisher{
		conn:         conn,
		ch:           ch,
		logger:       logger.Named("ConfigChangePublisher"),
		exchangeName: exchangeName,
	}, nil
}

// PublishConfigChange сериализует событие и отправляет его в exchange.
func (p *RabbitMQConfigChangePublisher) PublishConfigChange(ctx context.Context, event ConfigChangeEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal config change event", zap.Error(err), zap.Any("event", event))
		return fmt.Errorf("failed to marshal config change event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		p.exchangeName, // exchange
		"",             // routing key (не используется для fanout)
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.At,
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish config change event", zap.Error(err), zap.String("entity", event.Entity), zap.String("action", event.Action))
		return fmt.Errorf("failed to publish config change event: %w", err)
	}

	p.logger.Debug("Config change event published",
		zap.String("id", event.ID),
		zap.String("entity", event.Entity),
		zap.String("action", event.Action),
		zap.Strings("keys", event.Keys))
	return nil
}

// Close закрывает канал RabbitMQ. Соединение закрывает владелец.
func (p *RabbitMQConfigChangePublisher) Close() error {
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}

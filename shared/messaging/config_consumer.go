package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConfigChangeHandler получает события изменения конфигурации от других экземпляров консоли.
type ConfigChangeHandler interface {
	HandleConfigChange(event ConfigChangeEvent)
}

// ConfigChangeHandlerFunc позволяет использовать функцию как ConfigChangeHandler.
type ConfigChangeHandlerFunc func(event ConfigChangeEvent)

func (f ConfigChangeHandlerFunc) HandleConfigChange(event ConfigChangeEvent) { f(event) }

// ConfigChangeConsumer слушает fanout exchange через временную эксклюзивную очередь.
// События с собственным Source пропускаются.
type ConfigChangeConsumer struct {
	conn         *amqp091.Connection
	handler      ConfigChangeHandler
	logger       *zap.Logger
	exchangeName string
	source       string
	consumerTag  string

	mu sync.Mutex
	ch *amqp091.Channel
}

// NewConfigChangeConsumer создает консьюмера. source - ID этого экземпляра консоли.
func NewConfigChangeConsumer(conn *amqp091.Connection, exchangeName, source string, handler ConfigChangeHandler, logger *zap.Logger) (*ConfigChangeConsumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}
	if handler == nil {
		return nil, fmt.Errorf("config change handler is nil")
	}
	if exchangeName == "" {
		exchangeName = DefaultConfigEventsExchange
	}
	consumerTag := fmt.Sprintf("console_config_consumer_%d", time.Now().UnixNano())
	return &ConfigChangeConsumer{
		conn:         conn,
		handler:      handler,
		logger:       logger.Named("ConfigChangeConsumer").With(zap.String("consumerTag", consumerTag)),
		exchangeName: exchangeName,
		source:       source,
		consumerTag:  consumerTag,
	}, nil
}

// Start объявляет exchange и очередь и запускает обработку в отдельной горутине.
func (c *ConfigChangeConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch != nil {
		return errors.New("config change consumer already started")
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(c.exchangeName, configEventsExchangeType, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to declare exchange '%s': %w", c.exchangeName, err)
	}

	// Временная эксклюзивная очередь, имя дает брокер.
	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", c.exchangeName, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to bind queue '%s' to exchange '%s': %w", q.Name, c.exchangeName, err)
	}

	deliveries, err := ch.Consume(q.Name, c.consumerTag, false, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to register a consumer: %w", err)
	}
	c.ch = ch
	c.logger.Info("Listening for config change events", zap.String("exchange", c.exchangeName), zap.String("queue", q.Name))

	go c.loop(ctx, deliveries)
	return nil
}

func (c *ConfigChangeConsumer) loop(ctx context.Context, deliveries <-chan amqp091.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn("Delivery channel closed")
				return
			}
			c.handle(d)
		}
	}
}

func (c *ConfigChangeConsumer) handle(d amqp091.Delivery) {
	var event ConfigChangeEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		c.logger.Error("Failed to unmarshal config change event", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	if c.source == "" || event.Source != c.source {
		c.handler.HandleConfigChange(event)
	}
	if err := d.Ack(false); err != nil {
		c.logger.Error("Failed to acknowledge message", zap.Error(err))
	}
}

// Stop отменяет подписку и закрывает канал.
func (c *ConfigChangeConsumer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch == nil {
		return nil
	}
	if err := c.ch.Cancel(c.consumerTag, false); err != nil {
		c.logger.Warn("Failed to cancel consumer", zap.Error(err))
	}
	err := c.ch.Close()
	c.ch = nil
	c.logger.Info("Config change consumer stopped")
	return err
}

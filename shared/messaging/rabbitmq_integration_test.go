package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func TestConfigChangeFanout_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping rabbitmq integration test in short mode")
	}
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx,
		"rabbitmq:3-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").WithStartupTimeout(2*time.Minute),
		),
	)
	require.NoError(t, err, "Failed to start rabbitmq container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	})

	amqpURL, err := container.AmqpURL(ctx)
	require.NoError(t, err)
	conn, err := amqp091.Dial(amqpURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	const exchange = "console.config.changed.test"
	logger := zap.NewNop()

	// Экземпляр "a" публикует; свои события он пропускает, экземпляр "b" их получает.
	fromSelf := make(chan ConfigChangeEvent, 1)
	fromPeer := make(chan ConfigChangeEvent, 1)

	self, err := NewConfigChangeConsumer(conn, exchange, "console-a",
		ConfigChangeHandlerFunc(func(e ConfigChangeEvent) { fromSelf <- e }), logger)
	require.NoError(t, err)
	peer, err := NewConfigChangeConsumer(conn, exchange, "console-b",
		ConfigChangeHandlerFunc(func(e ConfigChangeEvent) { fromPeer <- e }), logger)
	require.NoError(t, err)

	consumeCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	require.NoError(t, self.Start(consumeCtx))
	require.NoError(t, peer.Start(consumeCtx))
	t.Cleanup(func() {
		_ = self.Stop()
		_ = peer.Stop()
	})

	pub, err := NewRabbitMQConfigChangePublisher(conn, exchange, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	require.NoError(t, pub.PublishConfigChange(ctx, ConfigChangeEvent{
		Entity: EntityGreeting,
		Action: ActionUpsert,
		Keys:   []string{"hi-IN"},
		Actor:  "admin",
		Source: "console-a",
	}))

	select {
	case e := <-fromPeer:
		assert.Equal(t, EntityGreeting, e.Entity)
		assert.Equal(t, []string{"hi-IN"}, e.Keys)
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.At.IsZero())
	case <-time.After(10 * time.Second):
		t.Fatal("peer instance did not receive the event")
	}

	select {
	case e := <-fromSelf:
		t.Fatalf("publishing instance must skip its own event, got %+v", e)
	case <-time.After(500 * time.Millisecond):
	}
}

package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAcknowledger struct {
	acks, nacks int
}

func (f *fakeAcknowledger) Ack(uint64, bool) error        { f.acks++; return nil }
func (f *fakeAcknowledger) Nack(uint64, bool, bool) error { f.nacks++; return nil }
func (f *fakeAcknowledger) Reject(uint64, bool) error     { return nil }

func delivery(t *testing.T, ack amqp091.Acknowledger, v interface{}) amqp091.Delivery {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return amqp091.Delivery{Acknowledger: ack, Body: body}
}

func TestConfigChangeConsumer_Handle(t *testing.T) {
	var got []ConfigChangeEvent
	c := &ConfigChangeConsumer{
		handler: ConfigChangeHandlerFunc(func(e ConfigChangeEvent) { got = append(got, e) }),
		logger:  zap.NewNop(),
		source:  "console-a",
	}
	ack := &fakeAcknowledger{}

	c.handle(delivery(t, ack, ConfigChangeEvent{Entity: EntityGreeting, Action: ActionUpsert, Source: "console-b"}))
	c.handle(delivery(t, ack, ConfigChangeEvent{Entity: EntityAgent, Action: ActionUpdate, Source: "console-a"}))
	c.handle(amqp091.Delivery{Acknowledger: ack, Body: []byte("{not json")})

	require.Len(t, got, 1, "own events are skipped")
	assert.Equal(t, EntityGreeting, got[0].Entity)
	assert.Equal(t, 2, ack.acks)
	assert.Equal(t, 1, ack.nacks)
}

func TestConfigChangeEvent_JSON(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	body, err := json.Marshal(ConfigChangeEvent{
		ID:     "id-1",
		Entity: EntityIVRPrompt,
		Action: ActionReset,
		Keys:   []string{"menu"},
		Actor:  "admin",
		At:     at,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"id-1","entity":"ivr_prompt","action":"reset","keys":["menu"],"actor":"admin","at":"2024-05-01T10:00:00Z"}`, string(body))
}

func TestNoopPublisher(t *testing.T) {
	var p ConfigEventPublisher = NoopPublisher{}
	assert.NoError(t, p.PublishConfigChange(context.Background(), ConfigChangeEvent{}))
	assert.NoError(t, p.Close())
}

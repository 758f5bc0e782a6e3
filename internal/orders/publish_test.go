package orders

import (
	"encoding/json"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	topic   string
	key     []byte
	value   []byte
	headers []kafkago.Header
}

type recordingPublisher struct{ msgs []sent }

func (p *recordingPublisher) Publish(topic string, key, value []byte, headers ...kafkago.Header) error {
	p.msgs = append(p.msgs, sent{topic, key, value, headers})
	return nil
}

func TestEvents_StatusChanged(t *testing.T) {
	pub := &recordingPublisher{}
	ev := Events{Pub: pub, Producer: "storefront-api"}

	o := Order{ID: "o-1", UserID: "u-1", Status: StatusShipped}
	require.NoError(t, ev.StatusChanged("req-1", o, StatusProcessing))
	require.Len(t, pub.msgs, 1)

	m := pub.msgs[0]
	assert.Equal(t, TopicOrderStatusChanged, m.topic)
	assert.Equal(t, []byte("o-1"), m.key)
	assert.Equal(t, []kafkago.Header{
		{Key: "x-event-type", Value: []byte(EventOrderStatusChanged)},
		{Key: "x-event-version", Value: []byte("1")},
	}, m.headers)

	var env Envelope
	require.NoError(t, json.Unmarshal(m.value, &env))
	assert.Equal(t, "req-1", env.TraceID)
	assert.Equal(t, "o-1", env.CorrelationID)

	var p OrderStatusChangedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, OrderStatusChangedPayload{OrderID: "o-1", UserID: "u-1", From: StatusProcessing, To: StatusShipped}, p)
}

func TestEvents_CreatedGoesToCreatedTopic(t *testing.T) {
	pub := &recordingPublisher{}
	ev := Events{Pub: pub, Producer: "storefront-api"}
	require.NoError(t, ev.Created("", Order{ID: "o-2", TotalCents: 2598}))
	assert.Equal(t, TopicOrderCreated, pub.msgs[0].topic)
}

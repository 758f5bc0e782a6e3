package orders

import (
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header) error
}

// Events publishes order envelopes keyed by order id.
type Events struct {
	Pub      Publisher
	Producer string
}

func (e Events) publish(env Envelope) error {
	return e.Pub.Publish(TopicFor(env.EventType), PartitionKey(env.CorrelationID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
}

func (e Events) Created(traceID string, o Order) error {
	env, err := CreatedEvent(e.Producer, traceID, o)
	if err != nil {
		return err
	}
	return e.publish(env)
}

func (e Events) StatusChanged(traceID string, o Order, from Status) error {
	env, err := StatusChangedEvent(e.Producer, traceID, o, from)
	if err != nil {
		return err
	}
	return e.publish(env)
}

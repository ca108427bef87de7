package events

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Every storefront event goes to one durable topic exchange; consumers bind
// queues by versioned routing key.
const (
	EventsExchange        = "ecommerce.events"
	OrderPlacedRoutingKey = "order.placed.v1"
)

type exchangeDeclarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
}

type queueBinder interface {
	exchangeDeclarer
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

func declareEventsExchange(ch exchangeDeclarer) error {
	return ch.ExchangeDeclare(EventsExchange, amqp.ExchangeTopic, true, false, false, false, nil)
}

// BindOrderPlaced declares queue and binds it to OrderPlaced events. An empty
// queue name asks the broker for an exclusive, auto-deleted queue.
func BindOrderPlaced(ch queueBinder, queue string) (string, error) {
	if err := declareEventsExchange(ch); err != nil {
		return "", fmt.Errorf("declare events exchange: %w", err)
	}

	durable, exclusive := true, false
	if queue == "" {
		durable, exclusive = false, true
	}
	q, err := ch.QueueDeclare(queue, durable, !durable, exclusive, false, nil)
	if err != nil {
		return "", fmt.Errorf("declare queue %q: %w", queue, err)
	}
	if err := ch.QueueBind(q.Name, OrderPlacedRoutingKey, EventsExchange, false, nil); err != nil {
		return "", fmt.Errorf("bind queue %s: %w", q.Name, err)
	}
	return q.Name, nil
}

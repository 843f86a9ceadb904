package worker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	OrderPlacedQueue = "orders.placed"
	// rejected order messages are routed here for inspection
	deadLetterExchange = "orders.dlx"
	deadLetterQueue    = OrderPlacedQueue + ".dlq"
)

// Topology is the declaring side of an AMQP channel.
type Topology interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// DeclareOrderTopology declares the durable order queue. Messages nacked
// without requeue dead-letter into deadLetterQueue under the same routing key.
// Consumer prefetch is a per-channel setting and is left to the consuming side.
func DeclareOrderTopology(ch Topology) error {
	const durable = true

	err := ch.ExchangeDeclare(deadLetterExchange, amqp.ExchangeDirect, durable, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", deadLetterExchange, err)
	}

	queues := []struct {
		name string
		args amqp.Table
	}{
		{name: deadLetterQueue},
		{name: OrderPlacedQueue, args: amqp.Table{
			"x-dead-letter-exchange":    deadLetterExchange,
			"x-dead-letter-routing-key": OrderPlacedQueue,
		}},
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.name, durable, false, false, false, q.args); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	if err := ch.QueueBind(deadLetterQueue, OrderPlacedQueue, deadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", deadLetterQueue, deadLetterExchange, err)
	}
	return nil
}

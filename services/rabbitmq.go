package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Kyy487/ruangcerita/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

const routingPrefix = "storage."

// RoutingKey is the topic routing key used for change events of key.
func RoutingKey(key string) string {
	return routingPrefix + key
}

// AMQPNotifier relays ChangeEvents through a RabbitMQ topic exchange. Each
// process consumes from its own exclusive queue bound to storage.#.
type AMQPNotifier struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	bus      *Bus

	publishMu sync.Mutex
	wg        sync.WaitGroup
}

func NewAMQPNotifier(url, exchange string, buffer int) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	n, err := newAMQPNotifier(conn, exchange, buffer)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	logger.Info().Str("exchange", exchange).Msg("RabbitMQ notifier initialized")
	return n, nil
}

func newAMQPNotifier(conn *amqp.Connection, exchange string, buffer int) (*AMQPNotifier, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, routingPrefix+"#", exchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}
	deliveries, err := ch.Consume(
		q.Name,
		"",
		true,  // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consumer: %w", err)
	}

	n := &AMQPNotifier{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		bus:      NewBus(buffer),
	}
	n.wg.Add(1)
	go n.relay(deliveries)
	return n, nil
}

func (n *AMQPNotifier) relay(deliveries <-chan amqp.Delivery) {
	defer n.wg.Done()
	for d := range deliveries {
		var ev ChangeEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			logger.Warn().Err(err).Str("routing_key", d.RoutingKey).Msg("undecodable change event")
			continue
		}
		n.bus.dispatch(ev)
	}
}

func (n *AMQPNotifier) Publish(ctx context.Context, ev ChangeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	n.publishMu.Lock()
	defer n.publishMu.Unlock()
	return n.channel.PublishWithContext(ctx,
		n.exchange,
		RoutingKey(ev.Key),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (n *AMQPNotifier) Subscribe(key, origin string, handler Handler) *Subscription {
	return n.bus.Subscribe(key, origin, handler)
}

// Close tears down the channel and connection; the consumer drains and stops.
func (n *AMQPNotifier) Close() error {
	chErr := n.channel.Close()
	connErr := n.conn.Close()
	n.wg.Wait()
	_ = n.bus.Close()
	if chErr != nil {
		return chErr
	}
	return connErr
}

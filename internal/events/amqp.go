package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the fanout exchange seat changes are published to.
const DefaultExchange = "seat.changed"

// AMQPPublisher publishes SeatChanged events to a durable fanout exchange.
// Every server instance binds its own queue to the exchange, so a change
// committed on one instance reaches the live views of all of them.
type AMQPPublisher struct {
	URL      string
	Exchange string
}

// NewAMQPPublisher returns a publisher for url.  An empty exchange falls
// back to DefaultExchange.
func NewAMQPPublisher(url, exchange string) *AMQPPublisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &AMQPPublisher{URL: url, Exchange: exchange}
}

// PublishSeatChanged dials the broker, makes sure the exchange exists and
// publishes ev as a persistent JSON message.  Errors are logged and
// returned so the caller can decide to ignore them.
func (p *AMQPPublisher) PublishSeatChanged(ctx context.Context, ev SeatChanged) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Errorf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Errorf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := declareExchange(ch, p.Exchange); err != nil {
		log.Errorf("rabbitmq: exchange declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		p.Exchange, // exchange
		"",         // routing key, ignored by fanout
		false,      // mandatory
		false,      // immediate
		pub,
	); err != nil {
		log.Errorf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}

func declareExchange(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(
		name,     // name
		"fanout", // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	)
}

// StartConsumer binds a private queue to the exchange and hands every
// decoded event to deliver.  It reconnects with exponential backoff and
// only returns once ctx is done.
func StartConsumer(ctx context.Context, url, exchange string, deliver func(SeatChanged)) error {
	if exchange == "" {
		exchange = DefaultExchange
	}
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warnf("seat-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, exchange, deliver)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warnf("seat-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, exchange string, deliver func(SeatChanged)) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warnf("seat-consumer: set QoS failed: %v", err)
	}
	if err := declareExchange(ch, exchange); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	// server-named, deleted with the connection
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			ev, err := decodeSeatChanged(d.Body)
			if err != nil {
				log.Errorf("seat-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			deliver(ev)
			_ = d.Ack(false)
		}
	}
}

func decodeSeatChanged(body []byte) (SeatChanged, error) {
	var ev SeatChanged
	if err := json.Unmarshal(body, &ev); err != nil {
		return SeatChanged{}, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.RoomID == 0 || ev.SeatID == 0 {
		return SeatChanged{}, errors.New("event without room or seat")
	}
	return ev, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

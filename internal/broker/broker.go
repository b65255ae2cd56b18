// Package broker publishes recorded registrations to RabbitMQ.
package broker

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/grvc/ambassadors/internal/events"
)

const ContentType = "application/x-msgpack"

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	log      zerolog.Logger
}

// Dial connects to url and declares a durable topic exchange.
func Dial(url, exchange string, log zerolog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	log.Info().Str("exchange", exchange).Msg("rabbitmq publisher ready")
	return &Publisher{conn: conn, ch: ch, exchange: exchange, log: log}, nil
}

// Notify publishes ev under events.RoutingKeySubmitted.
func (p *Publisher) Notify(ctx context.Context, ev events.SubmittedEvent) error {
	body, err := Encode(ev)
	if err != nil {
		return err
	}
	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		events.RoutingKeySubmitted,
		false,
		false,
		amqp.Publishing{
			ContentType:  ContentType,
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Code, err)
	}
	p.log.Debug().Str("code", ev.Code).Str("exchange", p.exchange).Msg("registration published")
	return nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func Encode(ev events.SubmittedEvent) ([]byte, error) {
	b, err := msgpack.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return b, nil
}

func Decode(b []byte) (events.SubmittedEvent, error) {
	var ev events.SubmittedEvent
	if err := msgpack.Unmarshal(b, &ev); err != nil {
		return ev, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}

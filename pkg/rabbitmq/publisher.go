package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"echocore/config"
	"echocore/dto"
)

// Publisher emits job lifecycle events to a topic exchange. It is a
// notification tap, not a work queue: the scheduler stays in-process.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewPublisher dials the broker with exponential backoff and declares
// the jobs exchange.
func NewPublisher(ctx context.Context, cfg *config.RabbitMQ) (*Publisher, error) {
	connAddr := fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.User, cfg.Pass, cfg.Host, cfg.Port)

	operation := func() (*amqp.Connection, error) {
		conn, err := amqp.Dial(connAddr)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to connect to RabbitMQ, retrying")
			return nil, err
		}
		return conn, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 10 * time.Second
	conn, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(5))
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(cfg.ExchangeName, cfg.Kind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("exchange", cfg.ExchangeName).Msg("connected to RabbitMQ")
	return &Publisher{conn: conn, ch: ch, exchange: cfg.ExchangeName}, nil
}

// JobTransition publishes one state-change event. Routing key is
// "offline.job.<status>".
func (p *Publisher) JobTransition(ctx context.Context, msg dto.JobEventMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(ctx,
		p.exchange,
		fmt.Sprintf("offline.job.%s", msg.Status),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   msg.At,
		},
	)
}

func (p *Publisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}

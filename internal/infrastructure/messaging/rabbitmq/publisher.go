package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

const DefaultExchange = "identity.events"

// Routing keys on the topic exchange.
const (
	KeyUserRegistered         = "identity.user.registered"
	KeyUserSignedIn           = "identity.user.signed_in"
	KeyUserSignedOut          = "identity.user.signed_out"
	KeyPasswordResetRequested = "identity.password.reset_requested"
)

var _ auth.EventPublisher = (*Publisher)(nil)

// Publisher sends account events with publisher confirms. One channel is
// shared and guarded by mu; a failed publish drops the connection and the
// next publish redials.
type Publisher struct {
	url      string
	exchange string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{
		url:      url,
		exchange: exchange,
	}
	if err := p.connect(); err != nil {
		return nil, domain.ErrRabbitUnavailable(err)
	}
	return p, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetConn()
	return nil
}

// ---- auth.EventPublisher ----

func (p *Publisher) PublishUserRegistered(ctx context.Context, evt auth.UserEvent) error {
	return p.publishJSON(ctx, KeyUserRegistered, evt)
}

func (p *Publisher) PublishUserSignedIn(ctx context.Context, evt auth.UserEvent) error {
	return p.publishJSON(ctx, KeyUserSignedIn, evt)
}

func (p *Publisher) PublishUserSignedOut(ctx context.Context, evt auth.UserEvent) error {
	return p.publishJSON(ctx, KeyUserSignedOut, evt)
}

func (p *Publisher) PublishPasswordResetRequested(ctx context.Context, evt auth.PasswordResetEvent) error {
	return p.publishJSON(ctx, KeyPasswordResetRequested, evt)
}

// ---- internal ----

// envelope is the wire format shared by every identity event.
type envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

func buildMessage(routingKey string, payload any, now time.Time) (amqp.Publishing, error) {
	id := uuid.NewString()
	body, err := json.Marshal(envelope{
		ID:         id,
		Type:       routingKey,
		OccurredAt: now.UTC(),
		Data:       payload,
	})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal payload: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Type:         routingKey,
		Timestamp:    now,
		Body:         body,
	}, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	// Declare topic exchange (idempotent).
	if err := ch.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("exchange declare: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}

	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.conn = conn
	p.ch = ch
	return nil
}

func (p *Publisher) ensureConnected() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.resetConn()
	return p.connect()
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, payload any) error {
	msg, err := buildMessage(routingKey, payload, time.Now())
	if err != nil {
		return err
	}

	// Ensure there is a deadline to avoid blocking forever.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(); err != nil {
		return domain.ErrRabbitUnavailable(err)
	}

	// Drain stale confirms so the one we wait for is ours.
drain:
	for {
		select {
		case _, ok := <-p.confirmCh:
			if !ok {
				break drain
			}
		default:
			break drain
		}
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg); err != nil {
		p.resetConn()
		return domain.ErrRabbitUnavailable(fmt.Errorf("publish %s: %w", routingKey, err))
	}

	select {
	case conf, ok := <-p.confirmCh:
		if !ok {
			p.resetConn()
			return domain.ErrRabbitUnavailable(fmt.Errorf("channel closed while waiting for confirm: key=%s", routingKey))
		}
		if !conf.Ack {
			return fmt.Errorf("rabbitmq nack: key=%s deliveryTag=%d", routingKey, conf.DeliveryTag)
		}
		return nil
	case <-ctx.Done():
		// the confirm may still arrive; the channel state is unknown, start over next time
		p.resetConn()
		return domain.ErrRabbitUnavailable(fmt.Errorf("confirm wait: key=%s: %w", routingKey, ctx.Err()))
	}
}

func (p *Publisher) resetConn() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	p.confirmCh = nil
}

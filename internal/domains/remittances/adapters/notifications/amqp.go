package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
)

// Exchange is the durable topic exchange the chat delivery service binds to.
const Exchange = "remittance_notifications"

const dialTimeout = 10 * time.Second

var (
	_ ports.NotificationPublisher = (*AMQPPublisher)(nil)
	_ ports.NotificationPublisher = (*LogPublisher)(nil)
)

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes notification payloads to RabbitMQ.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	reopen   func() (channel, error)
	exchange string
	logger   *slog.Logger
	now      func() time.Time
}

// DialAMQP connects to the broker and declares the exchange.
func DialAMQP(rawURL string, logger *slog.Logger) (*AMQPPublisher, error) {
	clean, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp.DialConfig(clean, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		return nil, err
	}
	reopen := func() (channel, error) { return conn.Channel() }
	p, err := newAMQPPublisher(reopen, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(open func() (channel, error), logger *slog.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &AMQPPublisher{reopen: open, exchange: Exchange, logger: logger, now: time.Now}
	ch, err := p.open()
	if err != nil {
		return nil, err
	}
	p.ch = ch
	return p, nil
}

func (p *AMQPPublisher) open() (channel, error) {
	ch, err := p.reopen()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, err
	}
	return ch, nil
}

// Publish sends n with routing key whatsapp.<kind>. A failed publish reopens the channel and
// retries once.
func (p *AMQPPublisher) Publish(ctx context.Context, n ports.Notification) error {
	body, err := json.Marshal(newPayload(n))
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID,
		Timestamp:    p.now(),
		Body:         body,
	}
	key := RoutingKey(n)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return errors.New("amqp publisher closed")
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
	if err == nil {
		return nil
	}
	p.logger.Warn("amqp publish failed, reopening channel",
		slog.String("exchange", p.exchange),
		slog.String("routing_key", key),
		slog.String("error", err.Error()),
	)
	ch, openErr := p.open()
	if openErr != nil {
		return errors.Join(err, openErr)
	}
	p.ch.Close()
	p.ch = ch
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// LogPublisher records notifications in the log when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, n ports.Notification) error {
	p.logger.LogAttrs(ctx, slog.LevelWarn, "notification publish skipped, no broker configured",
		slog.String("notification_id", n.ID),
		slog.String("routing_key", RoutingKey(n)),
		slog.String("order_id", n.OrderID),
		slog.String("status", string(n.Status)),
	)
	return nil
}

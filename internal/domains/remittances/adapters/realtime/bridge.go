package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
)

// DefaultChannel is the Postgres notification channel events travel on.
const DefaultChannel = "remittance_events"

const (
	notifyTimeout     = 2 * time.Second
	minReconnect      = 2 * time.Second
	maxReconnect      = time.Minute
	listenerKeepAlive = 90 * time.Second
)

var _ ports.Notifier = (*PostgresBridge)(nil)

// PostgresBridge fans events out across processes. Publish sends the event through pg_notify;
// Run listens on the same channel and forwards every notification into the local hub, so
// subscribers of any process connected to the database see events raised by any other.
type PostgresBridge struct {
	hub     *Hub
	db      *gorm.DB
	dsn     string
	channel string
	logger  *slog.Logger
}

// NewPostgresBridge wires the bridge. dsn is used by the dedicated LISTEN connection.
func NewPostgresBridge(hub *Hub, db *gorm.DB, dsn, channel string, logger *slog.Logger) *PostgresBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PostgresBridge{hub: hub, db: db, dsn: dsn, channel: channel, logger: logger}
}

// Publish notifies every listening process. If the notification cannot be sent the event is
// still delivered to this process's subscribers.
func (b *PostgresBridge) Publish(event domain.Event) {
	if err := b.notify(event); err != nil {
		b.logger.Warn("realtime notify failed, delivering locally",
			slog.String("event_id", event.ID),
			slog.String("kind", string(event.Kind)),
			slog.String("error", err.Error()),
		)
		b.hub.Publish(event)
	}
}

func (b *PostgresBridge) Subscribe(filter domain.Filter) ports.Subscription {
	return b.hub.Subscribe(filter)
}

func (b *PostgresBridge) notify(event domain.Event) error {
	if b.db == nil {
		return errors.New("realtime bridge has no database")
	}
	payload, err := json.Marshal(NewMessage(event))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	return b.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", b.channel, string(payload)).Error
}

// Run listens until ctx is done. Notifications sent while the listener reconnects are lost.
func (b *PostgresBridge) Run(ctx context.Context) error {
	listener := pq.NewListener(b.dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			b.logger.Warn("realtime listener connection event", slog.Int("event", int(ev)), slog.String("error", err.Error()))
		}
	})
	defer listener.Close()
	if err := listener.Listen(b.channel); err != nil {
		return fmt.Errorf("listen on %s: %w", b.channel, err)
	}
	b.logger.Info("realtime bridge listening", slog.String("channel", b.channel))

	keepAlive := time.NewTicker(listenerKeepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-listener.Notify:
			if !ok {
				return errors.New("realtime listener closed")
			}
			if n == nil {
				b.logger.Info("realtime listener reconnected")
				continue
			}
			b.deliver(n.Extra)
		case <-keepAlive.C:
			if err := listener.Ping(); err != nil {
				b.logger.Warn("realtime listener ping failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (b *PostgresBridge) deliver(payload string) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		b.logger.Warn("discarding malformed realtime payload", slog.String("error", err.Error()))
		return
	}
	b.hub.Publish(msg.Event())
}

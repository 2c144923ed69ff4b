package ports

import "github.com/remesas/remittance-api/internal/domains/remittances/domain"

// Subscription is a live event stream. Events stops only after Close; there is no replay,
// so a subscriber that reconnects must re-read current state.
type Subscription interface {
	Events() <-chan domain.Event
	Close()
}

// Notifier fans realtime events out to subscribers, best effort and at most once.
type Notifier interface {
	Publish(event domain.Event)
	Subscribe(filter domain.Filter) Subscription
}

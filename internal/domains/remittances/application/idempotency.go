package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
)

const (
	// DefaultIdempotencyWait bounds how long a retry waits for the request holding its key.
	DefaultIdempotencyWait = 2 * time.Second
	idempotencyPoll        = 25 * time.Millisecond
)

type normalizedCreateOrder struct {
	SenderID         string           `json:"senderId"`
	RemittanceTypeID string           `json:"remittanceTypeId"`
	Kind             string           `json:"kind"`
	AmountSent       string           `json:"amountSent"`
	Recipient        domain.Recipient `json:"recipient"`
}

// FingerprintCreateOrder hashes the order submission, excluding the idempotency key.
func FingerprintCreateOrder(input ports.CreateOrderInput) (string, error) {
	kind := input.Kind
	if kind == "" {
		kind = domain.KindRemittance
	}
	payload, err := json.Marshal(normalizedCreateOrder{
		SenderID:         input.Actor.ID,
		RemittanceTypeID: strings.TrimSpace(input.RemittanceTypeID),
		Kind:             string(kind),
		AmountSent:       input.AmountSent.String(),
		Recipient:        input.Recipient,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// scopedKey keeps keys of different senders apart.
func scopedKey(actor domain.Actor, key string) string {
	return actor.ID + ":" + key
}

// createIdempotent reserves the key before the order exists. The request that wins the
// reservation creates the order; every other request with the key gets that same order.
func (s *Service) createIdempotent(ctx context.Context, input ports.CreateOrderInput) (*domain.Order, error) {
	hash, err := FingerprintCreateOrder(input)
	if err != nil {
		return nil, fmt.Errorf("fingerprint order: %w", err)
	}
	key := scopedKey(input.Actor, input.IdempotencyKey)
	existing, err := s.idempotency.Reserve(ctx, ports.IdempotencyRecord{
		Key:         key,
		RequestHash: hash,
		CreatedAt:   s.now().UTC(),
	})
	switch {
	case errors.Is(err, ports.ErrIdempotencyKeyTaken):
		return s.awaitOriginal(ctx, key, hash, existing)
	case err != nil:
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}

	order, err := s.createOrder(ctx, input)
	if err != nil {
		if releaseErr := s.idempotency.Release(context.WithoutCancel(ctx), key); releaseErr != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to release idempotency key",
				slog.String("error", releaseErr.Error()),
			)
		}
		return nil, err
	}
	if err := s.idempotency.Complete(context.WithoutCancel(ctx), key, order.ID); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to record idempotency key",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	return order, nil
}

// awaitOriginal returns the order created under key, polling while the holder is still working.
func (s *Service) awaitOriginal(ctx context.Context, key, hash string, record *ports.IdempotencyRecord) (*domain.Order, error) {
	deadline := time.Now().Add(s.idempotencyWait)
	for {
		if record == nil {
			return nil, ports.ErrIdempotencyInProgress
		}
		if record.RequestHash != hash {
			return nil, ports.ErrIdempotencyConflict
		}
		if !record.Pending() {
			return s.repo.GetByID(ctx, record.OrderID)
		}
		if !time.Now().Before(deadline) {
			return nil, ports.ErrIdempotencyInProgress
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(idempotencyPoll):
		}
		var err error
		record, err = s.idempotency.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load idempotency key: %w", err)
		}
	}
}

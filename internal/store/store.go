package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PrabinKa/ShipMate/internal/domain"
	"github.com/PrabinKa/ShipMate/internal/storage"
	apperrors "github.com/PrabinKa/ShipMate/pkg/errors"
)

const ordersKey = "orders"

// Store is the Local Order Store: the durable record of shipment orders
// created on this device. Orders are kept as one JSON list under the
// "orders" key of the encrypted region, newest first. Every mutation is
// durable before the call returns, so a read immediately after a write
// always observes the write.
type Store struct {
	mu     sync.Mutex
	region *storage.Region
	clock  func() time.Time
	logger *slog.Logger
}

// New creates a Store backed by the given region.
func New(region *storage.Region, logger *slog.Logger) *Store {
	return &Store{
		region: region,
		clock:  time.Now,
		logger: logger,
	}
}

// WithClock overrides the store's clock. Tests use this to pin timestamps.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

// Append assigns a fresh local id and display code to the draft, persists it
// in pending state, and returns the stored order. It never touches the
// network.
func (s *Store) Append(draft domain.Draft) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().UTC()
	order := domain.Order{
		LocalID:          uuid.New().String(),
		Code:             fmt.Sprintf("ORD-%d", now.UnixMilli()),
		SenderName:       draft.SenderName,
		SenderAddress:    draft.SenderAddress,
		SenderContact:    draft.SenderContact,
		RecipientName:    draft.RecipientName,
		RecipientAddress: draft.RecipientAddress,
		RecipientContact: draft.RecipientContact,
		PaymentMethod:    draft.PaymentMethod,
		PaymentStatus:    draft.PaymentStatus,
		Status:           domain.StatusPending,
		SyncState:        domain.SyncPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	orders, err := s.load()
	if err != nil {
		return domain.Order{}, err
	}

	orders = append([]domain.Order{order}, orders...)
	if err := s.save(orders); err != nil {
		return domain.Order{}, err
	}

	s.logger.Info("order appended",
		slog.String("local_id", order.LocalID),
		slog.String("code", order.Code),
	)
	return order, nil
}

// List returns all persisted orders in storage order (newest first). Callers
// must not rely on this order for display; the reconciliation engine re-sorts.
func (s *Store) List() ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Pending returns the orders still awaiting server acknowledgment, in stored
// order.
func (s *Store) Pending() ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.load()
	if err != nil {
		return nil, err
	}

	var pending []domain.Order
	for _, o := range orders {
		if o.SyncState == domain.SyncPending {
			pending = append(pending, o)
		}
	}
	return pending, nil
}

// MarkSynced records the server's acknowledgment of a local order. Unknown
// local ids are a no-op, which guards against racing duplicate sync attempts.
// A server id already assigned is never overwritten.
func (s *Store) MarkSynced(localID, serverID string) error {
	return s.update(localID, func(o *domain.Order) {
		if o.ServerID == "" {
			o.ServerID = serverID
		}
		o.SyncState = domain.SyncSynced
		o.UpdatedAt = s.clock().UTC()
	})
}

// MarkFailed records a terminal sync failure. Unknown local ids are a no-op.
func (s *Store) MarkFailed(localID string) error {
	return s.update(localID, func(o *domain.Order) {
		o.SyncState = domain.SyncFailed
		o.UpdatedAt = s.clock().UTC()
	})
}

func (s *Store) update(localID string, apply func(*domain.Order)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.load()
	if err != nil {
		return err
	}

	for i := range orders {
		if orders[i].LocalID == localID {
			apply(&orders[i])
			return s.save(orders)
		}
	}
	return nil
}

func (s *Store) load() ([]domain.Order, error) {
	raw, err := s.region.Get(ordersKey)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var orders []domain.Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		// A corrupt list reads back as empty rather than wedging the agent.
		s.logger.Warn("discarding corrupt order list", slog.String("error", err.Error()))
		return nil, nil
	}
	return orders, nil
}

func (s *Store) save(orders []domain.Order) error {
	raw, err := json.Marshal(orders)
	if err != nil {
		return apperrors.Storage(err)
	}
	return s.region.Set(ordersKey, raw)
}

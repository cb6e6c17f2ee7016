// Package reconcile keeps the local order store and the shipment backend
// convergent. It owns order creation, the merged order view, and the sweep
// that pushes pending orders whenever connectivity returns.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/PrabinKa/ShipMate/internal/domain"
	"github.com/PrabinKa/ShipMate/internal/netmon"
	"github.com/PrabinKa/ShipMate/internal/notify"
	apperrors "github.com/PrabinKa/ShipMate/pkg/errors"
	"github.com/PrabinKa/ShipMate/pkg/logger"
	"github.com/PrabinKa/ShipMate/pkg/validator"
)

// Backend is the slice of the API client the engine uses.
type Backend interface {
	CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
}

// OrderStore is the slice of the local store the engine uses.
type OrderStore interface {
	Append(draft domain.Draft) (domain.Order, error)
	List() ([]domain.Order, error)
	Pending() ([]domain.Order, error)
	MarkSynced(localID, serverID string) error
	MarkFailed(localID string) error
}

// Sweep outcome per order.
const (
	OutcomeSynced   = "synced"
	OutcomeFailed   = "failed"
	OutcomeRetained = "retained"
)

// OrderOutcome records what happened to one pending order during a sweep.
type OrderOutcome struct {
	LocalID string `json:"local_id"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// Report summarizes a completed sweep.
type Report struct {
	Outcomes []OrderOutcome `json:"outcomes"`
	Synced   int            `json:"synced"`
	Failed   int            `json:"failed"`
	Retained int            `json:"retained"`
}

// Engine is the reconciliation engine.
type Engine struct {
	store    OrderStore
	backend  Backend
	monitor  *netmon.Monitor
	notifier notify.Notifier
	logger   *slog.Logger

	sweeping atomic.Bool
}

// New creates the engine.
func New(store OrderStore, backend Backend, monitor *netmon.Monitor, notifier notify.Notifier, log *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		backend:  backend,
		monitor:  monitor,
		notifier: notifier,
		logger:   log.With(slog.String("component", "reconcile")),
	}
}

// CreateOrder validates the draft, persists it locally, and, when the
// device is online, pushes it to the server immediately. The order is
// durable before any network activity, so a failed or skipped push never
// loses input: transient push failures leave the order pending for the next
// sweep, and only a server-side validation rejection marks it failed and
// surfaces an error alongside the persisted order.
func (e *Engine) CreateOrder(ctx context.Context, draft domain.Draft) (domain.Order, error) {
	if err := validator.Validate(draft); err != nil {
		return domain.Order{}, apperrors.InvalidInput(err.Error())
	}

	order, err := e.store.Append(draft)
	if err != nil {
		return domain.Order{}, err
	}

	if !e.monitor.Online() {
		return order, nil
	}

	created, err := e.backend.CreateOrder(ctx, order)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			if markErr := e.store.MarkFailed(order.LocalID); markErr != nil {
				e.logger.Error("failed to mark order failed",
					slog.String("local_id", order.LocalID),
					slog.String("error", markErr.Error()),
				)
			}
			e.notifier.OrderSyncFailed(order.LocalID, err)
			order.SyncState = domain.SyncFailed
			return order, err
		}

		logger.WithContext(ctx, e.logger).Warn("immediate push failed, order retained pending",
			slog.String("local_id", order.LocalID),
			slog.String("error", err.Error()),
		)
		return order, nil
	}

	if err := e.store.MarkSynced(order.LocalID, created.ServerID); err != nil {
		e.logger.Error("failed to record sync",
			slog.String("local_id", order.LocalID),
			slog.String("error", err.Error()),
		)
		return order, nil
	}
	e.notifier.OrderSynced(order.LocalID, created.ServerID)

	order.ServerID = created.ServerID
	order.SyncState = domain.SyncSynced
	return order, nil
}

// ListOrders returns the merged order view. Offline, or when the server
// fetch fails with a network error, it degrades to the local view so the
// device always has something to show.
func (e *Engine) ListOrders(ctx context.Context) ([]domain.Order, error) {
	local, err := e.store.List()
	if err != nil {
		return nil, err
	}

	if !e.monitor.Online() {
		sortByRecency(local)
		return local, nil
	}

	server, err := e.backend.ListOrders(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNetworkUnreachable) {
			logger.WithContext(ctx, e.logger).Warn("order fetch unreachable, serving local view",
				slog.String("error", err.Error()),
			)
			sortByRecency(local)
			return local, nil
		}
		return nil, err
	}

	return Merge(local, server), nil
}

// SweepPending pushes every pending order once. At most one sweep runs at a
// time; a trigger during an active sweep is dropped and returns a nil
// report. One order's failure never aborts the rest: server validation
// rejections mark the order failed, network and authorization failures
// leave it pending for a later sweep.
func (e *Engine) SweepPending(ctx context.Context) (*Report, error) {
	if !e.sweeping.CompareAndSwap(false, true) {
		e.logger.Debug("sweep already in progress, trigger dropped")
		return nil, nil
	}
	defer e.sweeping.Store(false)

	pending, err := e.store.Pending()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, order := range pending {
		if ctx.Err() != nil {
			report.record(order.LocalID, OutcomeRetained, ctx.Err().Error())
			continue
		}
		outcome, reason := e.push(ctx, order)
		report.record(order.LocalID, outcome, reason)
	}

	e.logger.Info("sweep complete",
		slog.Int("synced", report.Synced),
		slog.Int("failed", report.Failed),
		slog.Int("retained", report.Retained),
	)
	return report, nil
}

func (e *Engine) push(ctx context.Context, order domain.Order) (string, string) {
	created, err := e.backend.CreateOrder(ctx, order)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			if markErr := e.store.MarkFailed(order.LocalID); markErr != nil {
				return OutcomeRetained, markErr.Error()
			}
			e.notifier.OrderSyncFailed(order.LocalID, err)
			return OutcomeFailed, err.Error()
		}
		return OutcomeRetained, err.Error()
	}

	if err := e.store.MarkSynced(order.LocalID, created.ServerID); err != nil {
		return OutcomeRetained, err.Error()
	}
	e.notifier.OrderSynced(order.LocalID, created.ServerID)
	return OutcomeSynced, ""
}

func (r *Report) record(localID, outcome, reason string) {
	r.Outcomes = append(r.Outcomes, OrderOutcome{LocalID: localID, Outcome: outcome, Reason: reason})
	switch outcome {
	case OutcomeSynced:
		r.Synced++
	case OutcomeFailed:
		r.Failed++
	default:
		r.Retained++
	}
}

// Run subscribes to the connectivity monitor and launches a sweep on every
// offline to online transition. It blocks until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	events := e.monitor.Subscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case online := <-events:
			if !online {
				continue
			}
			go func() {
				if _, err := e.SweepPending(ctx); err != nil {
					e.logger.Error("sweep failed", slog.String("error", err.Error()))
				}
			}()
		}
	}
}

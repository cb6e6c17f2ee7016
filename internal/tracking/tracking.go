// Package tracking records the courier's most recent location. Positions
// come from a Source; the production source is platform GPS supplied by the
// embedding application, and a route simulator ships for development.
package tracking

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/PrabinKa/ShipMate/internal/domain"
	"github.com/PrabinKa/ShipMate/internal/storage"
	apperrors "github.com/PrabinKa/ShipMate/pkg/errors"
)

const lastLocationKey = "last_location"

// Source streams location fixes until ctx is done or the source completes.
type Source interface {
	Locations(ctx context.Context) <-chan domain.Location
}

// Tracker consumes a Source and keeps the latest fix, persisted so it
// survives restarts.
type Tracker struct {
	region *storage.Region
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	last    *domain.Location
}

// New creates the tracker and restores the last persisted fix, if any.
func New(region *storage.Region, log *slog.Logger) *Tracker {
	t := &Tracker{
		region: region,
		logger: log.With(slog.String("component", "tracking")),
	}

	raw, err := region.Get(lastLocationKey)
	if err != nil {
		t.logger.Warn("failed to restore last location", slog.String("error", err.Error()))
		return t
	}
	if len(raw) == 0 {
		return t
	}

	var loc domain.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		t.logger.Warn("discarding corrupt last location", slog.String("error", err.Error()))
		return t
	}
	t.last = &loc
	return t
}

// Start consumes the source until it completes or ctx is done. A second
// Start while one is running is rejected.
func (t *Tracker) Start(ctx context.Context, source Source) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return apperrors.InvalidInput("tracking already running")
	}
	t.running = true
	t.mu.Unlock()

	go t.consume(ctx, source)
	return nil
}

func (t *Tracker) consume(ctx context.Context, source Source) {
	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
		t.logger.Info("tracking stopped")
	}()

	fixes := source.Locations(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case loc, ok := <-fixes:
			if !ok {
				return
			}
			t.record(loc)
		}
	}
}

func (t *Tracker) record(loc domain.Location) {
	t.mu.Lock()
	t.last = &loc
	t.mu.Unlock()

	raw, err := json.Marshal(loc)
	if err != nil {
		t.logger.Error("failed to encode location", slog.String("error", err.Error()))
		return
	}
	if err := t.region.Set(lastLocationKey, raw); err != nil {
		t.logger.Warn("failed to persist location", slog.String("error", err.Error()))
	}
}

// Running reports whether a source is currently being consumed.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Last returns the most recent fix, or false when none has been recorded.
func (t *Tracker) Last() (domain.Location, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return domain.Location{}, false
	}
	return *t.last, true
}

package tracking

import (
	"context"
	"time"

	"github.com/PrabinKa/ShipMate/internal/domain"
)

// SimulatorConfig describes a simulated delivery route.
type SimulatorConfig struct {
	Start    domain.Location
	End      domain.Location
	Duration time.Duration
	Tick     time.Duration
}

// DefaultSimulatorConfig returns the Kathmandu demo route: New Road to
// Patan over 100 seconds.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Start:    domain.Location{Latitude: 27.7172, Longitude: 85.3240},
		End:      domain.Location{Latitude: 27.700769, Longitude: 85.300140},
		Duration: 100 * time.Second,
		Tick:     time.Second,
	}
}

// Simulator emits fixes along a straight line between two points. It
// implements Source and closes its channel on arrival.
type Simulator struct {
	config SimulatorConfig
	clock  func() time.Time
}

// NewSimulator creates a route simulator.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 100 * time.Second
	}
	return &Simulator{config: cfg, clock: time.Now}
}

// Locations streams interpolated fixes every tick until the route completes
// or ctx is done. The first fix is the start point, the final fix the end
// point.
func (s *Simulator) Locations(ctx context.Context) <-chan domain.Location {
	out := make(chan domain.Location, 1)

	go func() {
		defer close(out)

		began := s.clock()
		ticker := time.NewTicker(s.config.Tick)
		defer ticker.Stop()

		s.emit(ctx, out, s.at(0))
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				progress := float64(now.Sub(began)) / float64(s.config.Duration)
				if progress >= 1 {
					s.emit(ctx, out, s.at(1))
					return
				}
				s.emit(ctx, out, s.at(progress))
			}
		}
	}()

	return out
}

// at returns the route position at the given progress in [0, 1].
func (s *Simulator) at(progress float64) domain.Location {
	start, end := s.config.Start, s.config.End
	return domain.Location{
		Latitude:  start.Latitude + (end.Latitude-start.Latitude)*progress,
		Longitude: start.Longitude + (end.Longitude-start.Longitude)*progress,
		Timestamp: s.clock().UTC(),
	}
}

func (s *Simulator) emit(ctx context.Context, out chan<- domain.Location, loc domain.Location) {
	select {
	case out <- loc:
	case <-ctx.Done():
	}
}

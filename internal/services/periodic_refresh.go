package services

import (
	"context"
	"sync"
	"time"

	"github.com/dpup/prefab/logging"
)

// Refresher reloads a cached data set
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefresherFunc adapts a function to Refresher
type RefresherFunc func(ctx context.Context) error

func (f RefresherFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// PeriodicRefreshService reloads routes on a fixed interval so requests are
// served from a warm cache
type PeriodicRefreshService struct {
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration

	// Background refresh control
	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
	running  bool
}

// NewPeriodicRefreshService creates a new periodic refresh service. Each
// refresh is bounded by timeout; zero means two minutes.
func NewPeriodicRefreshService(refresher Refresher, interval, timeout time.Duration) *PeriodicRefreshService {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &PeriodicRefreshService{
		refresher: refresher,
		interval:  interval,
		timeout:   timeout,
	}
}

// ForRoutes refreshes the routes service cache. The loaded set is discarded
// here since the service caches it.
func ForRoutes(s *RoutesService) Refresher {
	return RefresherFunc(func(ctx context.Context) error {
		_, err := s.Refresh(ctx)
		return err
	})
}

// StartPeriodicRefresh refreshes immediately and then on every interval until
// ctx is done or Stop is called. A non-positive interval disables refreshing.
func (p *PeriodicRefreshService) StartPeriodicRefresh(ctx context.Context) error {
	ctx = logging.EnsureLogger(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil // Already running
	}
	if p.interval <= 0 {
		logging.Infow(ctx, "Periodic refresh disabled")
		return nil
	}

	p.running = true
	p.stopChan = make(chan struct{})
	p.done = make(chan struct{})

	logging.Infow(ctx, "Starting periodic refresh to maintain cache warmth", "interval", p.interval.String())

	go p.refreshLoop(ctx, p.stopChan, p.done)
	return nil
}

// Stop stops the refresh loop and waits for an in-flight refresh to finish
func (p *PeriodicRefreshService) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	done := p.done
	p.mu.Unlock()

	<-done
}

// refreshLoop runs the periodic refresh in background
func (p *PeriodicRefreshService) refreshLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Do initial refresh immediately
	p.refreshOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			logging.Infow(ctx, "Periodic refresh stopping due to context cancellation")
			return
		case <-stop:
			logging.Infow(ctx, "Periodic refresh stopping due to stop signal")
			return
		case <-ticker.C:
			p.refreshOnce(ctx)
		}
	}
}

func (p *PeriodicRefreshService) refreshOnce(ctx context.Context) {
	refreshCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.refresher.Refresh(refreshCtx); err != nil {
		logging.Warnw(ctx, "Periodic refresh failed", "error", err)
		return
	}
	logging.Infow(ctx, "Periodic refresh: cache refreshed")
}

// IsRunning returns whether periodic refresh is active
func (p *PeriodicRefreshService) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

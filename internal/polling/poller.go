package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/umutugur/rezzy-core/internal/logger"
	"github.com/umutugur/rezzy-core/internal/models"
)

// Fetcher is the slice of the reservation client the poller needs.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (*models.Reservation, error)
}

// SnapshotStore receives each successfully fetched reservation so the last
// known state survives offline.
type SnapshotStore interface {
	Put(ctx context.Context, r *models.Reservation) error
}

// Snapshot is the poller's observable state at one point in time.
type Snapshot struct {
	Reservation *models.Reservation
	LastErr     error
	Ticks       int
	Skipped     int
}

// Options configure a Poller. Store and OnChange are optional.
type Options struct {
	Store    SnapshotStore
	OnChange func(old, new models.Status)
}

// Poller keeps a displayed reservation's status fresh: one immediate fetch,
// then one per interval. A tick that fires while a fetch is still in flight
// is dropped, not queued. Tick errors are recorded and the loop carries on;
// transient failures self-heal on the next tick.
type Poller struct {
	fetcher Fetcher
	opts    Options
	logger  *logger.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	latest  *models.Reservation
	lastErr error
	ticks   int
	skipped int

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func New(fetcher Fetcher, log *logger.Logger, opts Options) *Poller {
	return &Poller{
		fetcher: fetcher,
		opts:    opts,
		logger:  log,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins polling the given reservation. It fetches once immediately,
// then on every interval until Stop is called. A Poller polls one
// reservation for its lifetime; Start twice is an error.
func (p *Poller) Start(reservationID string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", interval)
	}

	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return errors.New("poller already started")
	}
	if p.stopped {
		p.mu.Unlock()
		return errors.New("poller already stopped")
	}
	p.started = true
	p.mu.Unlock()

	go p.run(reservationID, interval)
	return nil
}

func (p *Poller) run(reservationID string, interval time.Duration) {
	defer close(p.done)

	select {
	case <-p.stopCh:
		return
	default:
	}
	p.tick(reservationID)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.tick(reservationID)
			// A tick that fired during the fetch is dropped rather than
			// run back to back.
			select {
			case <-ticker.C:
				p.mu.Lock()
				p.skipped++
				p.mu.Unlock()
			default:
			}
		}
	}
}

// tick fetches once. The fetch deliberately does not use the poller's stop
// signal as a context: stopping the poller discards the result but does not
// cancel the request already on the wire.
func (p *Poller) tick(reservationID string) {
	fetched, err := p.fetcher.Fetch(context.Background(), reservationID)

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.ticks++
	if err != nil {
		p.lastErr = err
		p.mu.Unlock()
		p.logger.LogPoll(reservationID, fmt.Sprintf("tick failed: %v", err))
		return
	}

	var previous models.Status
	if p.latest != nil {
		previous = p.latest.Status
	}
	p.latest = fetched
	p.lastErr = nil
	p.mu.Unlock()

	if p.opts.Store != nil {
		if err := p.opts.Store.Put(context.Background(), fetched); err != nil {
			p.logger.LogPoll(reservationID, fmt.Sprintf("snapshot write failed: %v", err))
		}
	}
	if p.opts.OnChange != nil && previous != "" && previous != fetched.Status {
		p.logger.LogPoll(reservationID, fmt.Sprintf("status %s -> %s", previous, fetched.Status))
		p.opts.OnChange(previous, fetched.Status)
	}
}

// Stop cancels the loop. Safe to call any number of times, before the first
// tick or long after the poller went idle. A result from a fetch still in
// flight is discarded.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		started := p.started
		p.mu.Unlock()
		close(p.stopCh)
		if started {
			<-p.done
		}
	})
}

// Snapshot returns the latest observed state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Reservation: p.latest,
		LastErr:     p.lastErr,
		Ticks:       p.ticks,
		Skipped:     p.skipped,
	}
}

// Package layout persists the canvas arrangement. It watches the canvas
// store for structural changes and saves on three triggers: a periodic
// timer, a short coalescing window after a structural change, and explicit
// manual saves. Failed saves are retried on the next trigger; the canvas
// keeps working regardless.
package layout

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leapstack-labs/flowcanvas/internal/api"
	"github.com/leapstack-labs/flowcanvas/internal/canvas"
)

// Saver pushes one project's layout to the backend.
type Saver interface {
	PutLayout(ctx context.Context, projectID int, layout *api.Layout) error
}

// Cache is an optional local write-through for the last saved layout, so a
// later session can render placement before the backend answers.
type Cache interface {
	SaveLayout(projectID int, layout *api.Layout) error
}

// Config configures a layout Service.
type Config struct {
	ProjectID int
	Store     *canvas.Store
	Saver     Saver
	Cache     Cache // may be nil
	Logger    *slog.Logger

	// Interval is the periodic autosave cadence. Defaults to 10s.
	Interval time.Duration
	// Coalesce is how long to wait after a structural change before
	// saving, absorbing bursts like multi-node drops. Defaults to 100ms.
	Coalesce time.Duration
}

// Service runs the autosave loop for one project.
type Service struct {
	projectID int
	store     *canvas.Store
	saver     Saver
	cache     Cache
	logger    *slog.Logger
	interval  time.Duration
	coalesce  time.Duration

	kick chan struct{}
	seq  atomic.Uint64

	mu        sync.Mutex
	lastSaved time.Time
	lastErr   error

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService wires a service to the store's structural events. Start must
// be called before any saving happens.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Coalesce <= 0 {
		cfg.Coalesce = 100 * time.Millisecond
	}
	s := &Service{
		projectID: cfg.ProjectID,
		store:     cfg.Store,
		saver:     cfg.Saver,
		cache:     cfg.Cache,
		logger:    cfg.Logger,
		interval:  cfg.Interval,
		coalesce:  cfg.Coalesce,
		kick:      make(chan struct{}, 1),
	}
	s.store.On(canvas.EventStructural, s.notify)
	return s
}

// notify records a structural change and nudges the loop. Non-blocking: a
// pending nudge already covers any number of changes.
func (s *Service) notify() {
	s.seq.Add(1)
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Start launches the autosave loop.
func (s *Service) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
}

// Stop halts the loop, flushing one final save if the layout is dirty.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.store.Dirty() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := s.save(flushCtx); err != nil {
					s.logger.Warn("final layout save failed", "project", s.projectID, "error", err)
				}
				cancel()
			}
			return
		case <-ticker.C:
			if s.store.Dirty() {
				s.trySave(ctx)
			}
		case <-s.kick:
			// Absorb the burst, then save once. A shutdown during the
			// window falls through to the final flush above.
			timer := time.NewTimer(s.coalesce)
			stopped := false
		drain:
			for {
				select {
				case <-ctx.Done():
					timer.Stop()
					stopped = true
					break drain
				case <-s.kick:
				case <-timer.C:
					break drain
				}
			}
			if !stopped {
				s.trySave(ctx)
			}
		}
	}
}

func (s *Service) trySave(ctx context.Context) {
	if err := s.save(ctx); err != nil {
		s.logger.Warn("layout autosave failed", "project", s.projectID, "error", err)
	}
}

// Save persists the current layout immediately, bypassing the coalescing
// window. Used by explicit save actions.
func (s *Service) Save(ctx context.Context) error {
	return s.save(ctx)
}

func (s *Service) save(ctx context.Context) error {
	before := s.seq.Load()
	snapshot := canvas.Snapshot(s.store.Nodes(), s.store.Edges())

	err := s.saver.PutLayout(ctx, s.projectID, &snapshot)

	s.mu.Lock()
	s.lastErr = err
	if err == nil {
		s.lastSaved = time.Now()
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if s.cache != nil {
		if cerr := s.cache.SaveLayout(s.projectID, &snapshot); cerr != nil {
			s.logger.Debug("layout cache write failed", "project", s.projectID, "error", cerr)
		}
	}

	// Only clear dirty if nothing changed while the save was in flight.
	if s.seq.Load() == before {
		s.store.ClearDirty()
	}
	return nil
}

// LastSaved returns the time of the most recent successful save and the
// error of the most recent attempt, for status display.
func (s *Service) LastSaved() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved, s.lastErr
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"roomdesk/pkg/logger"
)

var ErrLoaderRunning = errors.New("catalog loader already running")

// Loader copies a Source into a Store. It retries every retryDelay until
// the first load succeeds, then reloads every refreshInterval.
type Loader struct {
	source          Source
	store           *Store
	log             *logger.Logger
	refreshInterval time.Duration
	retryDelay      time.Duration
	onLoad          func()

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewLoader(source Source, store *Store, log *logger.Logger, refreshInterval, retryDelay time.Duration) *Loader {
	return &Loader{
		source:          source,
		store:           store,
		log:             log,
		refreshInterval: refreshInterval,
		retryDelay:      retryDelay,
	}
}

// OnLoad registers fn to run after every successful load.
func (l *Loader) OnLoad(fn func()) {
	l.onLoad = fn
}

// LoadOnce reads both lists and replaces the store's contents. The store is
// left untouched on error.
func (l *Loader) LoadOnce(ctx context.Context) error {
	rooms, err := l.source.LoadRooms(ctx)
	if err != nil {
		return fmt.Errorf("load rooms: %w", err)
	}
	teams, err := l.source.LoadTeams(ctx)
	if err != nil {
		return fmt.Errorf("load teams: %w", err)
	}

	l.store.Set(rooms, teams)
	l.log.Info("Catalog loaded", "rooms", len(rooms), "teams", len(teams))
	if l.onLoad != nil {
		l.onLoad()
	}
	return nil
}

// Start loads in the background until Stop.
func (l *Loader) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return ErrLoaderRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(ctx, l.done)
	return nil
}

func (l *Loader) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := l.LoadOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			l.log.Warn("Catalog load failed, retrying", "error", err, "retry_in", l.retryDelay)
			timer.Reset(l.retryDelay)
			continue
		}
		timer.Reset(l.refreshInterval)
	}
}

// Stop cancels the loader and waits for it to exit. Safe to call when not
// started.
func (l *Loader) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Package liveupdates pushes room statuses to a live channel and keeps
// that channel connected.
package liveupdates

import (
	"context"
	"errors"
	"sync"
	"time"

	"roomdesk/pkg/kafka"
	"roomdesk/pkg/logger"
)

var (
	ErrNotConnected = errors.New("live link is not connected")
	ErrLinkRunning  = errors.New("live link already running")
)

// State is the connection state of a Link.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	RetryPending
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case RetryPending:
		return "retry_pending"
	default:
		return "unknown"
	}
}

// Conn is an open connection to the status channel.
type Conn interface {
	Write(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Dialer opens a Conn. Dial must honour ctx cancellation.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// Link owns one connection. A single goroutine performs every dial, so at
// most one attempt is ever in flight. After a failed dial or a broken
// connection it waits a fixed delay before dialing again.
type Link struct {
	dialer    Dialer
	log       *logger.Logger
	delay     time.Duration
	onConnect func()

	kick chan struct{}
	lost chan Conn

	mu    sync.RWMutex
	state State
	conn  Conn

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLink returns a disconnected link that waits delay between attempts.
func NewLink(dialer Dialer, delay time.Duration, log *logger.Logger) *Link {
	return &Link{
		dialer: dialer,
		log:    log,
		delay:  delay,
		kick:   make(chan struct{}, 1),
		lost:   make(chan Conn, 1),
	}
}

// OnConnect registers fn to run after every successful dial.
func (l *Link) OnConnect(fn func()) {
	l.onConnect = fn
}

// State returns the current connection state.
func (l *Link) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Start begins dialing in the background.
func (l *Link) Start(ctx context.Context) error {
	l.lifeMu.Lock()
	defer l.lifeMu.Unlock()
	if l.cancel != nil {
		return ErrLinkRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(ctx, l.done)
	return nil
}

// Close stops the link, cancels any pending retry and closes the
// connection. Safe to call more than once.
func (l *Link) Close() {
	l.lifeMu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.lifeMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Kick skips a pending retry delay. It has no effect while connected or
// while a dial is already in progress.
func (l *Link) Kick() {
	select {
	case l.kick <- struct{}{}:
	default:
	}
}

// Send writes msgs on the current connection. A write failure marks the
// connection lost and schedules a reconnect.
func (l *Link) Send(ctx context.Context, msgs ...kafka.Message) error {
	l.mu.RLock()
	conn, state := l.conn, l.state
	l.mu.RUnlock()

	if state != Connected || conn == nil {
		return ErrNotConnected
	}
	if err := conn.Write(ctx, msgs...); err != nil {
		select {
		case l.lost <- conn:
		default:
		}
		return err
	}
	return nil
}

func (l *Link) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	retry := time.NewTimer(0)
	defer retry.Stop()

	for {
		select {
		case <-ctx.Done():
			l.disconnect()
			return

		case <-retry.C:
			l.connect(ctx, retry)

		case <-l.kick:
			if l.State() != RetryPending {
				continue
			}
			stopTimer(retry)
			l.connect(ctx, retry)

		case conn := <-l.lost:
			l.mu.Lock()
			if l.conn != conn {
				l.mu.Unlock()
				continue
			}
			l.conn = nil
			l.mu.Unlock()
			if err := conn.Close(); err != nil {
				l.log.Debug("Closing lost live connection failed", "error", err)
			}
			l.log.Warn("Live connection lost", "retry_in", l.delay)
			l.setState(RetryPending)
			retry.Reset(l.delay)
		}
	}
}

func (l *Link) connect(ctx context.Context, retry *time.Timer) {
	l.setState(Connecting)

	conn, err := l.dialer.Dial(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.log.Warn("Live connection failed", "error", err, "retry_in", l.delay)
		l.setState(RetryPending)
		retry.Reset(l.delay)
		return
	}

	stopTimer(retry)
	l.mu.Lock()
	l.conn = conn
	l.state = Connected
	l.mu.Unlock()
	l.log.Info("Live connection established")

	if l.onConnect != nil {
		l.onConnect()
	}
}

func (l *Link) disconnect() {
	l.mu.Lock()
	conn := l.conn
	l.conn = nil
	l.state = Disconnected
	l.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			l.log.Debug("Closing live connection failed", "error", err)
		}
	}
}

func (l *Link) setState(s State) {
	l.mu.Lock()
	prev := l.state
	l.state = s
	l.mu.Unlock()
	if prev != s {
		l.log.Debug("Live link state changed", "from", prev.String(), "to", s.String())
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"roomdesk/internal/reservations/availability"
	"roomdesk/internal/reservations/policy"
	"roomdesk/pkg/logger"
	"roomdesk/pkg/model"
)

type mockSource struct {
	calls        atomic.Int32
	mu           sync.Mutex
	SnapshotFunc func(ctx context.Context, now time.Time) (*availability.Snapshot, error)
}

func (m *mockSource) Snapshot(ctx context.Context, now time.Time) (*availability.Snapshot, error) {
	m.calls.Add(1)
	m.mu.Lock()
	fn := m.SnapshotFunc
	m.mu.Unlock()
	return fn(ctx, now)
}

func (m *mockSource) set(fn func(ctx context.Context, now time.Time) (*availability.Snapshot, error)) {
	m.mu.Lock()
	m.SnapshotFunc = fn
	m.mu.Unlock()
}

func oneRoom(reservations ...*model.Reservation) func(context.Context, time.Time) (*availability.Snapshot, error) {
	return func(context.Context, time.Time) (*availability.Snapshot, error) {
		return &availability.Snapshot{
			Date:         "2024-06-03",
			Rooms:        []model.Room{{ID: "r-1", Name: "Orion"}},
			Reservations: map[string][]*model.Reservation{"r-1": reservations},
		}, nil
	}
}

func newRefresher(src SnapshotSource, interval time.Duration) *Refresher {
	p := &policy.Policy{Open: 9 * 60, Close: 20 * 60, MinDuration: time.Hour, Location: time.UTC}
	r := NewRefresher(src, availability.NewEngine(p), logger.Discard(), interval)
	r.now = func() time.Time { return time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC) }
	return r
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRefresher_StartComputesImmediately(t *testing.T) {
	src := &mockSource{}
	src.set(oneRoom(&model.Reservation{ID: "a", RoomID: "r-1", Date: "2024-06-03", StartTime: "09:00", EndTime: "10:00"}))
	r := newRefresher(src, time.Hour)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop()

	waitFor(t, func() bool { return r.Latest() != nil })
	latest := r.Latest()
	if len(latest) != 1 || latest[0].Available {
		t.Fatalf("Latest() = %+v, want r-1 busy", latest)
	}
	if latest[0].Until != "10:00" {
		t.Errorf("Until = %q, want 10:00", latest[0].Until)
	}
}

func TestRefresher_TriggerRecomputes(t *testing.T) {
	src := &mockSource{}
	src.set(oneRoom())
	r := newRefresher(src, time.Hour)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop()

	waitFor(t, func() bool { return src.calls.Load() >= 1 })
	r.Trigger()
	waitFor(t, func() bool { return src.calls.Load() >= 2 })
}

func TestRefresher_TicksOnInterval(t *testing.T) {
	src := &mockSource{}
	src.set(oneRoom())
	r := newRefresher(src, 10*time.Millisecond)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop()

	waitFor(t, func() bool { return src.calls.Load() >= 3 })
}

func TestRefresher_Lifecycle(t *testing.T) {
	src := &mockSource{}
	src.set(oneRoom())
	r := newRefresher(src, 10*time.Millisecond)

	r.Stop()

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrRefresherRunning) {
		t.Errorf("second Start() error = %v, want ErrRefresherRunning", err)
	}

	r.Stop()
	calls := src.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if got := src.calls.Load(); got != calls {
		t.Errorf("refresh ran %d more times after Stop", got-calls)
	}

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	r.Stop()
}

func TestRefresher_ErrorKeepsPrevious(t *testing.T) {
	src := &mockSource{}
	src.set(oneRoom())
	r := newRefresher(src, time.Hour)

	r.Refresh(context.Background())
	if len(r.Latest()) != 1 {
		t.Fatalf("expected one status after first refresh")
	}

	src.set(func(context.Context, time.Time) (*availability.Snapshot, error) {
		return nil, errors.New("database unreachable")
	})
	r.Refresh(context.Background())
	if len(r.Latest()) != 1 {
		t.Errorf("statuses should survive a failed refresh, got %+v", r.Latest())
	}
}

func TestRefresher_EmptyCatalog(t *testing.T) {
	src := &mockSource{}
	src.set(func(context.Context, time.Time) (*availability.Snapshot, error) {
		return &availability.Snapshot{}, nil
	})
	r := newRefresher(src, time.Hour)

	r.Refresh(context.Background())
	latest := r.Latest()
	if latest == nil || len(latest) != 0 {
		t.Errorf("Latest() = %#v, want empty non-nil set", latest)
	}
}

func TestRefresher_EmptyCatalogReachesSubscribers(t *testing.T) {
	src := &mockSource{}
	src.set(func(context.Context, time.Time) (*availability.Snapshot, error) {
		return &availability.Snapshot{}, nil
	})
	r := newRefresher(src, time.Hour)

	if got := r.Latest(); got != nil {
		t.Fatalf("Latest() before any refresh = %#v, want nil", got)
	}

	live, unsubscribe := r.Subscribe()
	defer unsubscribe()
	r.Refresh(context.Background())

	select {
	case got := <-live:
		if got == nil || len(got) != 0 {
			t.Errorf("subscriber got %#v, want empty non-nil set", got)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber was not notified")
	}

	late, unsubscribeLate := r.Subscribe()
	defer unsubscribeLate()
	select {
	case got := <-late:
		if got == nil {
			t.Error("late subscriber should be seeded with the empty set")
		}
	default:
		t.Error("late subscriber was not seeded")
	}
}

func TestRefresher_SubscribeLatestWins(t *testing.T) {
	src := &mockSource{}
	src.set(oneRoom())
	r := newRefresher(src, time.Hour)

	ch, unsubscribe := r.Subscribe()

	r.Refresh(context.Background())
	src.set(oneRoom(&model.Reservation{ID: "a", RoomID: "r-1", Date: "2024-06-03", StartTime: "09:00", EndTime: "10:00"}))
	r.Refresh(context.Background())

	select {
	case got := <-ch:
		if len(got) != 1 || got[0].Available {
			t.Errorf("expected the newest (busy) status, got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no status delivered")
	}

	select {
	case got := <-ch:
		t.Errorf("expected only the newest set to be buffered, got extra %+v", got)
	default:
	}

	unsubscribe()
	unsubscribe()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	r.Refresh(context.Background())
}

func TestRefresher_SubscribeSeedsLatest(t *testing.T) {
	src := &mockSource{}
	src.set(oneRoom())
	r := newRefresher(src, time.Hour)
	r.Refresh(context.Background())

	ch, unsubscribe := r.Subscribe()
	defer unsubscribe()

	select {
	case got := <-ch:
		if len(got) != 1 {
			t.Errorf("seeded status = %+v", got)
		}
	default:
		t.Fatal("new subscriber should receive the latest set immediately")
	}
}

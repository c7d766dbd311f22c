package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"roomdesk/internal/catalog"
	reserrors "roomdesk/internal/reservations/errors"
	"roomdesk/internal/reservations/events"
	"roomdesk/internal/reservations/policy"
	"roomdesk/internal/reservations/repository"
	"roomdesk/internal/reservations/validator"
	"roomdesk/pkg/config"
	apperrors "roomdesk/pkg/errors"
	"roomdesk/pkg/logger"
	"roomdesk/pkg/model"
	"roomdesk/pkg/sealer"

	"golang.org/x/crypto/bcrypt"
)

const testDate = "2024-06-03"

var testNow = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

type mockPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) kinds() []events.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Kind, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Kind)
	}
	return out
}

type countingNotifier struct {
	mu sync.Mutex
	n  int
}

func (c *countingNotifier) Trigger() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *countingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// mockRepo overrides selected reads of an in-memory repository.
type mockRepo struct {
	repository.ReservationRepository
	ListByDateFunc func(ctx context.Context, date string) (map[string][]*model.Reservation, error)
	ListByRoomFunc func(ctx context.Context, roomID, date string) ([]*model.Reservation, error)
}

func (m *mockRepo) ListByDate(ctx context.Context, date string) (map[string][]*model.Reservation, error) {
	if m.ListByDateFunc != nil {
		return m.ListByDateFunc(ctx, date)
	}
	return m.ReservationRepository.ListByDate(ctx, date)
}

func (m *mockRepo) ListByRoom(ctx context.Context, roomID, date string) ([]*model.Reservation, error) {
	if m.ListByRoomFunc != nil {
		return m.ListByRoomFunc(ctx, roomID, date)
	}
	return m.ReservationRepository.ListByRoom(ctx, roomID, date)
}

type fixture struct {
	svc       *reservationService
	store     *catalog.Store
	repo      repository.ReservationRepository
	publisher *mockPublisher
	notifier  *countingNotifier
}

func newFixture(t *testing.T, repo repository.ReservationRepository) *fixture {
	t.Helper()
	if repo == nil {
		repo = repository.NewMemoryReservationRepository()
	}
	log := logger.Discard()
	p := &policy.Policy{Open: 9 * 60, Close: 20 * 60, MinDuration: time.Hour, Location: time.UTC}
	store := catalog.NewStore()
	store.Set(
		[]model.Room{{ID: "r-1", Name: "Orion"}, {ID: "r-2", Name: "Lyra"}},
		[]model.Team{{ID: "t-1", Name: "Platform"}, {ID: "t-2", Name: "Design"}},
	)
	cfg := &config.Config{EnforceBookingWindow: true, InstanceID: "test-1", Log: log}
	pub := &mockPublisher{}

	svc := NewReservationService(
		repo,
		store,
		validator.NewConflictValidator(p, log),
		validator.NewReservationValidator(log, 4),
		sealer.New(bcrypt.MinCost),
		pub,
		cfg,
	).(*reservationService)
	svc.now = func() time.Time { return testNow }

	n := &countingNotifier{}
	svc.SetNotifier(n)
	return &fixture{svc: svc, store: store, repo: repo, publisher: pub, notifier: n}
}

func request(team, start, end string) *model.ReservationRequest {
	return &model.ReservationRequest{
		TeamID:    team,
		Date:      testDate,
		StartTime: start,
		EndTime:   end,
		Password:  "1234",
	}
}

func strPtr(s string) *string { return &s }

func requireAppError(t *testing.T, err error, status int, reason reserrors.Reason) *apperrors.AppError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", status)
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	if appErr.StatusCode() != status {
		t.Errorf("status = %d, want %d (%v)", appErr.StatusCode(), status, err)
	}
	if reason != "" && appErr.Details[DetailReason] != string(reason) {
		t.Errorf("reason = %v, want %s", appErr.Details[DetailReason], reason)
	}
	return appErr
}

func TestCreate_Success(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, "r-1", request(" t-1 ", "9:00", "10:30:00"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if res.ID == "" {
		t.Error("expected generated ID")
	}
	if res.StartTime != "09:00" || res.EndTime != "10:30" {
		t.Errorf("times not normalized: %s-%s", res.StartTime, res.EndTime)
	}
	if res.TeamID != "t-1" {
		t.Errorf("TeamID = %q, want t-1", res.TeamID)
	}
	if res.PasswordHash == "" || res.PasswordHash == "1234" {
		t.Error("password must be stored hashed")
	}

	stored, err := f.repo.FindByID(ctx, "r-1", res.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if stored.Date != testDate {
		t.Errorf("stored date = %s, want %s", stored.Date, testDate)
	}
	if f.notifier.count() != 1 {
		t.Errorf("notifier triggered %d times, want 1", f.notifier.count())
	}
	if kinds := f.publisher.kinds(); len(kinds) != 1 || kinds[0] != events.Created {
		t.Errorf("published %v, want [%s]", kinds, events.Created)
	}
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		roomID     string
		req        *model.ReservationRequest
		wantStatus int
		wantReason reserrors.Reason
	}{
		{"before open", "r-1", request("t-1", "08:00", "10:00"), http.StatusUnprocessableEntity, reserrors.OutsideOperatingHours},
		{"after close", "r-1", request("t-1", "19:30", "20:30"), http.StatusUnprocessableEntity, reserrors.OutsideOperatingHours},
		{"end before start", "r-1", request("t-1", "12:00", "11:00"), http.StatusUnprocessableEntity, reserrors.InvalidOrder},
		{"zero length", "r-1", request("t-1", "12:00", "12:00"), http.StatusUnprocessableEntity, reserrors.InvalidOrder},
		{"too short", "r-1", request("t-1", "12:00", "12:30"), http.StatusUnprocessableEntity, reserrors.TooShort},
		{"unknown room", "r-9", request("t-1", "12:00", "13:00"), http.StatusNotFound, reserrors.NotFound},
		{"unknown team", "r-1", request("t-9", "12:00", "13:00"), http.StatusNotFound, reserrors.NotFound},
		{"bad time", "r-1", request("t-1", "noon", "13:00"), http.StatusUnprocessableEntity, reserrors.MalformedInput},
		{"short password", "r-1", &model.ReservationRequest{TeamID: "t-1", Date: testDate, StartTime: "12:00", EndTime: "13:00", Password: "12"}, http.StatusUnprocessableEntity, reserrors.MalformedInput},
		{"nil body", "r-1", nil, http.StatusUnprocessableEntity, reserrors.MalformedInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			_, err := f.svc.Create(context.Background(), tt.roomID, tt.req)
			requireAppError(t, err, tt.wantStatus, tt.wantReason)
			if f.notifier.count() != 0 {
				t.Error("rejected create must not trigger a refresh")
			}
		})
	}
}

func TestCreate_DateOutOfRange(t *testing.T) {
	f := newFixture(t, nil)
	req := request("t-1", "12:00", "13:00")
	req.Date = "2024-06-10"

	_, err := f.svc.Create(context.Background(), "r-1", req)
	requireAppError(t, err, http.StatusUnprocessableEntity, reserrors.DateOutOfRange)

	f.svc.cfg.EnforceBookingWindow = false
	if _, err := f.svc.Create(context.Background(), "r-1", req); err != nil {
		t.Fatalf("Create() with window disabled error = %v", err)
	}
}

func TestCreate_Conflict(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, "r-1", request("t-1", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = f.svc.Create(ctx, "r-1", request("t-2", "10:30", "11:30"))
	appErr := requireAppError(t, err, http.StatusConflict, reserrors.SlotConflict)
	if appErr.Details[DetailConflictingID] != first.ID {
		t.Errorf("conflicting id = %v, want %s", appErr.Details[DetailConflictingID], first.ID)
	}
	if appErr.Details[DetailConflictStart] != "10:00" || appErr.Details[DetailConflictEnd] != "11:00" {
		t.Errorf("conflict range = %v-%v", appErr.Details[DetailConflictStart], appErr.Details[DetailConflictEnd])
	}

	if _, err := f.svc.Create(ctx, "r-1", request("t-2", "11:00", "12:00")); err != nil {
		t.Errorf("back-to-back reservation should be accepted: %v", err)
	}
	if _, err := f.svc.Create(ctx, "r-2", request("t-2", "10:30", "11:30")); err != nil {
		t.Errorf("other room should be independent: %v", err)
	}
}

func TestCreate_ConcurrentSameSlot(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(ctx, "r-1", request("t-1", "14:00", "15:00"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		if reason, _ := reserrors.ReasonOf(err); reason == reserrors.SlotConflict {
			conflicts++
		}
	}
	if ok != 1 || conflicts != attempts-1 {
		t.Errorf("ok = %d, conflicts = %d, want 1 and %d", ok, conflicts, attempts-1)
	}

	list, _ := f.repo.ListByRoom(ctx, "r-1", testDate)
	if len(list) != 1 {
		t.Errorf("stored %d reservations, want 1", len(list))
	}
}

func TestCreate_CatalogUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.catalog = catalog.NewStore()

	_, err := f.svc.Create(context.Background(), "r-1", request("t-1", "10:00", "11:00"))
	requireAppError(t, err, http.StatusServiceUnavailable, reserrors.CatalogUnavailable)
}

func TestCreate_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, nil)
	f.publisher.err = errors.New("broker down")

	if _, err := f.svc.Create(context.Background(), "r-1", request("t-1", "10:00", "11:00")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func TestEdit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	own, err := f.svc.Create(ctx, "r-1", request("t-1", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	other, err := f.svc.Create(ctx, "r-1", request("t-2", "13:00", "14:00"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("overlapping itself is allowed", func(t *testing.T) {
		updated, err := f.svc.Edit(ctx, "r-1", own.ID, &model.ReservationPatch{
			StartTime: strPtr("10:30"),
			EndTime:   strPtr("11:30"),
			Password:  "1234",
		})
		if err != nil {
			t.Fatalf("Edit() error = %v", err)
		}
		if updated.StartTime != "10:30" || updated.EndTime != "11:30" {
			t.Errorf("updated = %s-%s", updated.StartTime, updated.EndTime)
		}
		if updated.PasswordHash != own.PasswordHash {
			t.Error("edit must keep the password hash")
		}
	})

	t.Run("overlapping another reservation", func(t *testing.T) {
		_, err := f.svc.Edit(ctx, "r-1", own.ID, &model.ReservationPatch{
			EndTime:  strPtr("13:30"),
			Password: "1234",
		})
		appErr := requireAppError(t, err, http.StatusConflict, reserrors.SlotConflict)
		if appErr.Details[DetailConflictingID] != other.ID {
			t.Errorf("conflicting id = %v, want %s", appErr.Details[DetailConflictingID], other.ID)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.Edit(ctx, "r-1", own.ID, &model.ReservationPatch{
			TeamID:   strPtr("t-2"),
			Password: "nope",
		})
		requireAppError(t, err, http.StatusForbidden, reserrors.WrongCredential)
	})

	t.Run("change team", func(t *testing.T) {
		updated, err := f.svc.Edit(ctx, "r-1", own.ID, &model.ReservationPatch{
			TeamID:   strPtr("t-2"),
			Password: "1234",
		})
		if err != nil {
			t.Fatalf("Edit() error = %v", err)
		}
		if updated.TeamID != "t-2" {
			t.Errorf("TeamID = %s, want t-2", updated.TeamID)
		}
	})

	t.Run("team id is normalized without touching the patch", func(t *testing.T) {
		raw := " t-1 "
		patch := &model.ReservationPatch{TeamID: &raw, Password: "1234"}
		updated, err := f.svc.Edit(ctx, "r-1", own.ID, patch)
		if err != nil {
			t.Fatalf("Edit() error = %v", err)
		}
		if updated.TeamID != "t-1" {
			t.Errorf("TeamID = %q, want t-1", updated.TeamID)
		}
		if patch.TeamID != &raw || raw != " t-1 " {
			t.Errorf("caller's patch was modified: %q", *patch.TeamID)
		}
	})

	t.Run("unknown reservation", func(t *testing.T) {
		_, err := f.svc.Edit(ctx, "r-1", "missing", &model.ReservationPatch{Password: "1234"})
		requireAppError(t, err, http.StatusNotFound, reserrors.NotFound)
	})

	t.Run("reservation of another room", func(t *testing.T) {
		_, err := f.svc.Edit(ctx, "r-2", own.ID, &model.ReservationPatch{Password: "1234"})
		requireAppError(t, err, http.StatusNotFound, reserrors.NotFound)
	})

	t.Run("moving out of the booking window", func(t *testing.T) {
		_, err := f.svc.Edit(ctx, "r-1", own.ID, &model.ReservationPatch{
			Date:     strPtr("2024-07-01"),
			Password: "1234",
		})
		requireAppError(t, err, http.StatusUnprocessableEntity, reserrors.DateOutOfRange)
	})
}

func TestEdit_KeepsDayWhenOutsideWindow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, "r-1", request("t-1", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Two days later the reservation's date is no longer bookable, but
	// edits that keep the date stay allowed.
	f.svc.now = func() time.Time { return testNow.Add(48 * time.Hour) }
	if _, err := f.svc.Edit(ctx, "r-1", res.ID, &model.ReservationPatch{
		EndTime:  strPtr("12:00"),
		Password: "1234",
	}); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, "r-1", request("t-1", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err = f.svc.Cancel(ctx, "r-1", res.ID, "wrong")
	requireAppError(t, err, http.StatusForbidden, reserrors.WrongCredential)

	err = f.svc.Cancel(ctx, "r-1", res.ID, "")
	requireAppError(t, err, http.StatusUnprocessableEntity, reserrors.MalformedInput)

	if err := f.svc.Cancel(ctx, "r-1", res.ID, "1234"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	list, err := f.svc.ListByRoom(ctx, "r-1", testDate)
	if err != nil {
		t.Fatalf("ListByRoom() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no reservations after cancel, got %d", len(list))
	}

	err = f.svc.Cancel(ctx, "r-1", res.ID, "1234")
	requireAppError(t, err, http.StatusNotFound, reserrors.NotFound)

	kinds := f.publisher.kinds()
	if len(kinds) != 2 || kinds[1] != events.Cancelled {
		t.Errorf("published %v, want created then cancelled", kinds)
	}
}

func TestListByRoom(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, slot := range [][2]string{{"15:00", "16:00"}, {"09:00", "10:00"}} {
		if _, err := f.svc.Create(ctx, "r-1", request("t-1", slot[0], slot[1])); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	list, err := f.svc.ListByRoom(ctx, "r-1", "")
	if err != nil {
		t.Fatalf("ListByRoom() error = %v", err)
	}
	if len(list) != 2 || list[0].StartTime != "09:00" {
		t.Errorf("expected two reservations ordered by start, got %+v", list)
	}

	_, err = f.svc.ListByRoom(ctx, "r-9", "")
	requireAppError(t, err, http.StatusNotFound, reserrors.NotFound)

	_, err = f.svc.ListByRoom(ctx, "r-1", "03/06/2024")
	requireAppError(t, err, http.StatusUnprocessableEntity, reserrors.MalformedInput)
}

func TestCheck(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, "r-1", request("t-1", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	check := &model.SlotCheck{Date: testDate, StartTime: "10:30", EndTime: "11:30"}
	requireAppError(t, f.svc.Check(ctx, "r-1", check), http.StatusConflict, reserrors.SlotConflict)

	check.ExcludeReservationID = res.ID
	if err := f.svc.Check(ctx, "r-1", check); err != nil {
		t.Errorf("Check() excluding own reservation error = %v", err)
	}

	list, _ := f.repo.ListByRoom(ctx, "r-1", testDate)
	if len(list) != 1 {
		t.Errorf("Check must not write, found %d reservations", len(list))
	}
}

func TestSnapshot(t *testing.T) {
	t.Run("empty before catalog loads", func(t *testing.T) {
		f := newFixture(t, nil)
		f.svc.catalog = catalog.NewStore()

		snap, err := f.svc.Snapshot(context.Background(), testNow)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if len(snap.Rooms) != 0 {
			t.Errorf("expected no rooms, got %d", len(snap.Rooms))
		}
	})

	t.Run("every room gets an entry", func(t *testing.T) {
		f := newFixture(t, nil)
		if _, err := f.svc.Create(context.Background(), "r-1", request("t-1", "10:00", "11:00")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		snap, err := f.svc.Snapshot(context.Background(), testNow)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if snap.Date != testDate {
			t.Errorf("Date = %s, want %s", snap.Date, testDate)
		}
		if len(snap.Reservations["r-1"]) != 1 {
			t.Errorf("r-1 reservations = %d, want 1", len(snap.Reservations["r-1"]))
		}
		if _, ok := snap.Reservations["r-2"]; !ok {
			t.Error("r-2 should have an entry even without reservations")
		}
		if snap.TeamNames["t-1"] != "Platform" {
			t.Errorf("team names = %v", snap.TeamNames)
		}
	})

	t.Run("falls back per room and marks failures", func(t *testing.T) {
		repo := &mockRepo{
			ReservationRepository: repository.NewMemoryReservationRepository(),
			ListByDateFunc: func(context.Context, string) (map[string][]*model.Reservation, error) {
				return nil, errors.New("bulk read failed")
			},
		}
		f := newFixture(t, repo)
		repo.ListByRoomFunc = func(ctx context.Context, roomID, date string) ([]*model.Reservation, error) {
			if roomID == "r-2" {
				return nil, errors.New("read failed")
			}
			return repo.ReservationRepository.ListByRoom(ctx, roomID, date)
		}

		snap, err := f.svc.Snapshot(context.Background(), testNow)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if !snap.Missing["r-2"] {
			t.Error("r-2 should be marked missing")
		}
		if snap.Missing["r-1"] {
			t.Error("r-1 should not be marked missing")
		}
	})
}

func TestBookingWindow(t *testing.T) {
	f := newFixture(t, nil)

	w := f.svc.BookingWindow(testNow)
	if w.Dates.Min != testDate || w.Dates.Max != "2024-06-04" {
		t.Errorf("Dates = %+v", w.Dates)
	}
	if len(w.StartSlots) == 0 || w.StartSlots[0] != "09:00" {
		t.Errorf("StartSlots = %v", w.StartSlots)
	}
}

package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"roomdesk/internal/catalog"
	"roomdesk/internal/reservations/availability"
	reserrors "roomdesk/internal/reservations/errors"
	"roomdesk/internal/reservations/events"
	"roomdesk/internal/reservations/policy"
	"roomdesk/internal/reservations/repository"
	"roomdesk/internal/reservations/validator"
	"roomdesk/pkg/config"
	apperrors "roomdesk/pkg/errors"
	"roomdesk/pkg/model"
	"roomdesk/pkg/sanitizer"
	"roomdesk/pkg/sealer"

	"github.com/google/uuid"
)

// ReservationService owns every reservation mutation. Mutations are
// serialized, so no two overlapping reservations can be committed for a room.
type ReservationService interface {
	Create(ctx context.Context, roomID string, req *model.ReservationRequest) (*model.Reservation, error)
	Edit(ctx context.Context, roomID, id string, patch *model.ReservationPatch) (*model.Reservation, error)
	Cancel(ctx context.Context, roomID, id, password string) error
	GetByID(ctx context.Context, roomID, id string) (*model.Reservation, error)
	ListByRoom(ctx context.Context, roomID, date string) ([]*model.Reservation, error)
	Check(ctx context.Context, roomID string, check *model.SlotCheck) error
	Rooms() ([]model.Room, error)
	Teams() ([]model.Team, error)
	Snapshot(ctx context.Context, now time.Time) (*availability.Snapshot, error)
	BookingWindow(now time.Time) model.BookingWindow
	SetNotifier(n Notifier)
	Ping(ctx context.Context) error
}

// Notifier is told after every committed mutation.
type Notifier interface {
	Trigger()
}

type reservationService struct {
	repo      repository.ReservationRepository
	catalog   catalog.Catalog
	conflicts *validator.ConflictValidator
	requests  *validator.ReservationValidator
	sealer    *sealer.Sealer
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time

	// mu serializes every mutation from the first read of existing
	// reservations to the final write.
	mu sync.Mutex

	notifyMu sync.RWMutex
	notifier Notifier
}

func NewReservationService(
	repo repository.ReservationRepository,
	cat catalog.Catalog,
	conflicts *validator.ConflictValidator,
	requests *validator.ReservationValidator,
	seal *sealer.Sealer,
	publisher events.Publisher,
	cfg *config.Config,
) ReservationService {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &reservationService{
		repo:      repo,
		catalog:   cat,
		conflicts: conflicts,
		requests:  requests,
		sealer:    seal,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *reservationService) policy() *policy.Policy {
	return s.conflicts.Policy()
}

func (s *reservationService) SetNotifier(n Notifier) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.notifier = n
}

func (s *reservationService) Create(ctx context.Context, roomID string, req *model.ReservationRequest) (*model.Reservation, error) {
	if err := s.requests.ValidateRequest(req); err != nil {
		return nil, malformed(err)
	}
	teamID := sanitizer.NormalizeID(req.TeamID)
	if err := s.checkRoomAndTeam(roomID, teamID); err != nil {
		return nil, err
	}

	cand, rej := validator.ParseCandidate(roomID, req.Date, req.StartTime, req.EndTime)
	if rej != nil {
		return nil, rejectionError(rej)
	}
	if err := s.checkDate(cand.Date); err != nil {
		return nil, err
	}

	hash, err := s.sealer.Seal(req.Password)
	if err != nil {
		return nil, malformed(validator.ValidationErrors{{Field: "Password", Message: err.Error()}})
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	res := &model.Reservation{
		ID:           uuid.NewString(),
		RoomID:       roomID,
		TeamID:       teamID,
		Date:         cand.Date,
		StartTime:    cand.Start.String(),
		EndTime:      cand.End.String(),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mu.Lock()
	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.ListByRoom(txCtx, roomID, cand.Date)
		if err != nil {
			return apperrors.Internal("Failed to read reservations", err)
		}
		if rej := s.conflicts.Validate(cand, existing, ""); rej != nil {
			return rejectionError(rej)
		}
		if err := s.repo.Create(txCtx, res); err != nil {
			return repositoryError(err, res.ID, "create")
		}
		return nil
	})
	s.mu.Unlock()

	if err != nil {
		s.logRejected("create", roomID, "", err)
		return nil, err
	}

	s.cfg.Log.Info("Reservation created successfully",
		"reservation_id", res.ID,
		"room_id", res.RoomID,
		"team_id", res.TeamID,
		"reservation_date", res.Date,
		"start_time", res.StartTime,
		"end_time", res.EndTime,
	)
	s.afterCommit(ctx, events.Created, res)
	return res, nil
}

func (s *reservationService) Edit(ctx context.Context, roomID, id string, patch *model.ReservationPatch) (*model.Reservation, error) {
	if err := s.requests.ValidatePatch(patch); err != nil {
		return nil, malformed(err)
	}
	if err := s.checkRoom(roomID); err != nil {
		return nil, err
	}
	if patch.TeamID != nil {
		teamID := sanitizer.NormalizeID(*patch.TeamID)
		normalized := *patch
		normalized.TeamID = &teamID
		patch = &normalized
		if _, err := s.catalog.Team(teamID); err != nil {
			return nil, catalogError(err, "Team", teamID)
		}
	}

	verified, err := s.authorize(ctx, roomID, id, patch.Password)
	if err != nil {
		return nil, err
	}

	var updated *model.Reservation
	s.mu.Lock()
	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.reauthorize(txCtx, verified, patch.Password)
		if err != nil {
			return err
		}

		merged, cand, err := s.merge(current, patch)
		if err != nil {
			return err
		}

		existing, err := s.repo.ListByRoom(txCtx, roomID, cand.Date)
		if err != nil {
			return apperrors.Internal("Failed to read reservations", err)
		}
		if rej := s.conflicts.Validate(cand, existing, id); rej != nil {
			return rejectionError(rej)
		}
		if err := s.repo.Update(txCtx, merged); err != nil {
			return repositoryError(err, id, "update")
		}
		updated = merged
		return nil
	})
	s.mu.Unlock()

	if err != nil {
		s.logRejected("edit", roomID, id, err)
		return nil, err
	}

	s.cfg.Log.Info("Reservation updated successfully",
		"reservation_id", updated.ID,
		"room_id", updated.RoomID,
		"reservation_date", updated.Date,
		"start_time", updated.StartTime,
		"end_time", updated.EndTime,
	)
	s.afterCommit(ctx, events.Updated, updated)
	return updated, nil
}

func (s *reservationService) Cancel(ctx context.Context, roomID, id, password string) error {
	if password == "" {
		return malformed(validator.ValidationErrors{{Field: "Password", Message: "Password is required"}})
	}

	verified, err := s.authorize(ctx, roomID, id, password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.reauthorize(txCtx, verified, password); err != nil {
			return err
		}
		if err := s.repo.Delete(txCtx, roomID, id); err != nil {
			return repositoryError(err, id, "delete")
		}
		return nil
	})
	s.mu.Unlock()

	if err != nil {
		s.logRejected("cancel", roomID, id, err)
		return err
	}

	s.cfg.Log.Info("Reservation cancelled successfully", "reservation_id", id, "room_id", roomID)
	s.afterCommit(ctx, events.Cancelled, verified)
	return nil
}

func (s *reservationService) GetByID(ctx context.Context, roomID, id string) (*model.Reservation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	res, err := s.repo.FindByID(ctx, roomID, id)
	if err != nil {
		return nil, repositoryError(err, id, "retrieve")
	}
	return res, nil
}

func (s *reservationService) ListByRoom(ctx context.Context, roomID, date string) ([]*model.Reservation, error) {
	if err := s.checkRoomIfLoaded(roomID); err != nil {
		return nil, err
	}
	if date != "" {
		d, err := policy.ParseDate(date)
		if err != nil {
			return nil, malformed(validator.ValidationErrors{{Field: "date", Message: err.Error()}})
		}
		date = d.Format(policy.DateLayout)
	}

	list, err := s.repo.ListByRoom(ctx, roomID, date)
	if err != nil {
		s.cfg.Log.Error("Failed to list reservations", "room_id", roomID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve reservations", err)
	}
	return list, nil
}

// Check runs the booking rules without writing, so a form can warn about
// a conflict before it is submitted.
func (s *reservationService) Check(ctx context.Context, roomID string, check *model.SlotCheck) error {
	if check == nil {
		return malformed(validator.ValidationErrors{{Field: "query", Message: "slot is required"}})
	}
	if err := s.requests.ValidateCheck(check); err != nil {
		return malformed(err)
	}
	if err := s.checkRoom(roomID); err != nil {
		return err
	}

	cand, rej := validator.ParseCandidate(roomID, check.Date, check.StartTime, check.EndTime)
	if rej != nil {
		return rejectionError(rej)
	}
	if err := s.checkDate(cand.Date); err != nil {
		return err
	}

	existing, err := s.repo.ListByRoom(ctx, roomID, cand.Date)
	if err != nil {
		return apperrors.Internal("Failed to read reservations", err)
	}
	if rej := s.conflicts.Validate(cand, existing, check.ExcludeReservationID); rej != nil {
		return rejectionError(rej)
	}
	return nil
}

func (s *reservationService) Rooms() ([]model.Room, error) {
	rooms, err := s.catalog.Rooms()
	if err != nil {
		return nil, catalogError(err, "Room", "")
	}
	return rooms, nil
}

func (s *reservationService) Teams() ([]model.Team, error) {
	teams, err := s.catalog.Teams()
	if err != nil {
		return nil, catalogError(err, "Team", "")
	}
	return teams, nil
}

// Snapshot reads today's reservations for every catalog room. Before the
// catalog loads it returns an empty snapshot. When the bulk read fails each
// room is read on its own and rooms that still fail are marked missing.
func (s *reservationService) Snapshot(ctx context.Context, now time.Time) (*availability.Snapshot, error) {
	snap := &availability.Snapshot{
		Date:         s.policy().Today(now),
		Reservations: make(map[string][]*model.Reservation),
		Missing:      make(map[string]bool),
		TeamNames:    make(map[string]string),
	}

	rooms, err := s.catalog.Rooms()
	if err != nil {
		if errors.Is(err, catalog.ErrUnavailable) {
			return snap, nil
		}
		return nil, err
	}
	snap.Rooms = rooms
	if teams, err := s.catalog.Teams(); err == nil {
		for _, t := range teams {
			snap.TeamNames[t.ID] = t.Name
		}
	}

	byRoom, err := s.repo.ListByDate(ctx, snap.Date)
	if err == nil {
		for _, room := range rooms {
			snap.Reservations[room.ID] = byRoom[room.ID]
		}
		return snap, nil
	}

	s.cfg.Log.Warn("Bulk reservation read failed, reading rooms one by one", "error", err)
	for _, room := range rooms {
		list, err := s.repo.ListByRoom(ctx, room.ID, snap.Date)
		if err != nil {
			s.cfg.Log.Warn("Failed to read reservations for room", "room_id", room.ID, "error", err)
			snap.Missing[room.ID] = true
			continue
		}
		snap.Reservations[room.ID] = list
	}
	return snap, nil
}

func (s *reservationService) BookingWindow(now time.Time) model.BookingWindow {
	return s.policy().Window(now)
}

func (s *reservationService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *reservationService) checkRoom(roomID string) error {
	if strings.TrimSpace(roomID) == "" {
		return rejectionError(reserrors.Reject(reserrors.MalformedInput, "room_id is required"))
	}
	if _, err := s.catalog.Room(roomID); err != nil {
		return catalogError(err, "Room", roomID)
	}
	return nil
}

func (s *reservationService) checkRoomIfLoaded(roomID string) error {
	if !s.catalog.Loaded() {
		return nil
	}
	return s.checkRoom(roomID)
}

func (s *reservationService) checkRoomAndTeam(roomID, teamID string) error {
	if err := s.checkRoom(roomID); err != nil {
		return err
	}
	if _, err := s.catalog.Team(teamID); err != nil {
		return catalogError(err, "Team", teamID)
	}
	return nil
}

func (s *reservationService) checkDate(date string) error {
	if !s.cfg.EnforceBookingWindow {
		return nil
	}
	now := s.now()
	if s.policy().DateInRange(date, now) {
		return nil
	}
	r := s.policy().AllowedDateRange(now)
	return rejectionError(reserrors.Reject(reserrors.DateOutOfRange,
		"reservations can only be made from %s to %s", r.Min, r.Max))
}

// authorize loads the reservation and checks the password outside the
// write lock; bcrypt is slow and must not stall other writers.
func (s *reservationService) authorize(ctx context.Context, roomID, id, password string) (*model.Reservation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	res, err := s.repo.FindByID(ctx, roomID, id)
	if err != nil {
		return nil, repositoryError(err, id, "retrieve")
	}
	if !s.sealer.Verify(res.PasswordHash, password) {
		s.cfg.Log.Warn("Wrong reservation password", "reservation_id", id, "room_id", roomID)
		return nil, rejectionError(reserrors.Reject(reserrors.WrongCredential, "the password does not match this reservation"))
	}
	return res, nil
}

// reauthorize re-reads the reservation under the write lock. The hash
// verified by authorize still applies unless it changed in between.
func (s *reservationService) reauthorize(ctx context.Context, verified *model.Reservation, password string) (*model.Reservation, error) {
	current, err := s.repo.FindByID(ctx, verified.RoomID, verified.ID)
	if err != nil {
		return nil, repositoryError(err, verified.ID, "retrieve")
	}
	if current.PasswordHash != verified.PasswordHash && !s.sealer.Verify(current.PasswordHash, password) {
		return nil, rejectionError(reserrors.Reject(reserrors.WrongCredential, "the password does not match this reservation"))
	}
	return current, nil
}

// merge applies patch onto current and parses the result. Only a changed
// date is checked against the booking window.
func (s *reservationService) merge(current *model.Reservation, patch *model.ReservationPatch) (*model.Reservation, validator.Candidate, error) {
	merged := current.Clone()
	if patch.TeamID != nil {
		merged.TeamID = *patch.TeamID
	}
	if patch.Date != nil {
		merged.Date = *patch.Date
	}
	if patch.StartTime != nil {
		merged.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		merged.EndTime = *patch.EndTime
	}

	cand, rej := validator.ParseCandidate(merged.RoomID, merged.Date, merged.StartTime, merged.EndTime)
	if rej != nil {
		return nil, validator.Candidate{}, rejectionError(rej)
	}
	if patch.Date != nil && cand.Date != current.Date {
		if err := s.checkDate(cand.Date); err != nil {
			return nil, validator.Candidate{}, err
		}
	}

	merged.Date = cand.Date
	merged.StartTime = cand.Start.String()
	merged.EndTime = cand.End.String()
	merged.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)
	return merged, cand, nil
}

func (s *reservationService) afterCommit(ctx context.Context, kind events.Kind, res *model.Reservation) {
	s.notifyMu.RLock()
	n := s.notifier
	s.notifyMu.RUnlock()
	if n != nil {
		n.Trigger()
	}

	e := events.Event{Kind: kind, Reservation: res, Source: s.cfg.InstanceID, OccurredAt: s.now().UTC()}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.cfg.Log.Warn("Failed to publish reservation event",
			"event_type", kind,
			"reservation_id", res.ID,
			"error", err,
		)
	}
}

func (s *reservationService) logRejected(op, roomID, id string, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.Code == apperrors.CodeInternal {
		s.cfg.Log.Error("Reservation "+op+" failed", "room_id", roomID, "reservation_id", id, "error", err)
		return
	}
	s.cfg.Log.Info("Reservation "+op+" rejected",
		"room_id", roomID,
		"reservation_id", id,
		"reason", appErr.Details[DetailReason],
	)
}

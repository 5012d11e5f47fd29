// Package booking implements the reservation core: validation, recurring
// expansion, the approval state machine, the per-occurrence opening lifecycle
// and the institutional schedule materializer.
package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"room-booking-backend/config"
	"room-booking-backend/internal/db"
	"room-booking-backend/internal/model"
	"room-booking-backend/internal/parse"
	"room-booking-backend/internal/store"
)

// Notifier is the fire-and-forget notification sink. Implementations must
// never block the calling transaction; failures are logged, not propagated.
type Notifier interface {
	NotifyUser(userID uuid.UUID, message string, meta map[string]any)
	NotifyRole(role string, message string, meta map[string]any)
}

// Service drives all reservation operations.
type Service struct {
	store    store.Store
	cfg      *config.BookingConfig
	notifier Notifier

	// Now is the clock used for all window checks; overridable in tests.
	Now func() time.Time
}

// NewService creates the booking service. The notifier may be nil, in which
// case notifications are dropped.
func NewService(st store.Store, cfg *config.BookingConfig, notifier Notifier) *Service {
	return &Service{store: st, cfg: cfg, notifier: notifier, Now: time.Now}
}

// CreateReservation is a booking request for a single occurrence or a weekly
// recurring series.
type CreateReservation struct {
	SpaceID       uuid.UUID
	StartsAt      time.Time
	EndsAt        time.Time
	Reason        string
	AttendeeCount *int
	RequiresKeys  bool
	Recurring     bool
	Weeks         int    // explicit occurrence count; 0 derives from RRule
	RRule         string // optional recurrence rule, only COUNT is honored
	Metadata      map[string]any
}

// Create validates the request and persists every occurrence atomically:
// either the whole series exists afterwards, or nothing does.
func (s *Service) Create(ctx context.Context, actor Actor, req CreateReservation) ([]model.Reservation, error) {
	space, err := s.store.Space(ctx, req.SpaceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFound("space")
		}
		return nil, err
	}
	if !space.Active {
		return nil, Validation("space %s is inactive", space.Code)
	}

	var created []model.Reservation
	err = s.store.Tx(ctx, func(tx *gorm.DB) error {
		weeks, err := s.validate(tx, req, nil)
		if err != nil {
			return err
		}
		created, err = s.expand(tx, actor, req, weeks)
		return err
	})
	if err != nil {
		return nil, mapCommitError(err)
	}

	log.Info().
		Str("space", space.Code).
		Int("occurrences", len(created)).
		Time("starts_at", req.StartsAt).
		Msg("reservation created")
	return created, nil
}

// validate applies the acceptance rules in order and returns the derived
// occurrence count (1 for non-recurring requests). excludeID is set when
// revalidating an existing instance.
func (s *Service) validate(tx *gorm.DB, req CreateReservation, excludeID *uuid.UUID) (int, error) {
	if !req.StartsAt.Before(req.EndsAt) {
		return 0, Validation("starts_at must be strictly before ends_at")
	}

	weeks := 1
	if req.Recurring {
		weeks = req.Weeks
		if weeks == 0 {
			if n, ok := parse.RRuleCount(req.RRule); ok {
				weeks = n
			} else {
				weeks = 1
			}
		}
		if weeks < 1 {
			return 0, Validation("recurring reservations need a week count of at least 1")
		}
		if err := s.checkSemesterBounds(req.StartsAt, req.EndsAt, weeks); err != nil {
			return 0, err
		}
	}

	// Any overlap with an approved reservation rejects the request outright.
	conflict, err := store.OverlapExists(tx, req.SpaceID, req.StartsAt, req.EndsAt,
		[]model.ReservationState{model.StateApproved}, excludeID)
	if err != nil {
		return 0, err
	}
	if conflict {
		return 0, Validation("space is not available in that time range (overlap)")
	}

	// For new recurring requests every occurrence must be free against
	// pending and approved reservations; one collision rejects the series.
	if req.Recurring && excludeID == nil {
		states := []model.ReservationState{model.StatePending, model.StateApproved}
		for week := 0; week < weeks; week++ {
			offset := time.Duration(week) * 7 * 24 * time.Hour
			occStart := req.StartsAt.Add(offset)
			occEnd := req.EndsAt.Add(offset)
			conflict, err := store.OverlapExists(tx, req.SpaceID, occStart, occEnd, states, nil)
			if err != nil {
				return 0, err
			}
			if conflict {
				return 0, Validation("occurrence %d of %d (%s) collides with an existing reservation",
					week+1, weeks, occStart.Format("2006-01-02"))
			}
		}
	}

	return weeks, nil
}

func (s *Service) checkSemesterBounds(start, end time.Time, weeks int) error {
	if s.cfg.SemesterStartDate.IsZero() || s.cfg.SemesterEndDate.IsZero() {
		return Validation("recurring reservations are disabled: no semester window is configured")
	}
	semStart := s.cfg.SemesterStartDate
	// The semester end date is inclusive.
	semEnd := s.cfg.SemesterEndDate.AddDate(0, 0, 1)

	if start.Before(semStart) {
		return Validation("reservation starts before the semester window (%s)", s.cfg.SemesterStart)
	}
	lastEnd := end.AddDate(0, 0, 7*(weeks-1))
	if !lastEnd.Before(semEnd) {
		return Validation("the series' last occurrence (%s) exceeds the semester end (%s)",
			lastEnd.Format("2006-01-02"), s.cfg.SemesterEnd)
	}
	return nil
}

// expand persists the canonical occurrence plus (weeks - 1) weekly siblings,
// each with its own identity and creation log entry, sharing series metadata.
func (s *Service) expand(tx *gorm.DB, actor Actor, req CreateReservation, weeks int) ([]model.Reservation, error) {
	series := uuid.NewString()
	created := make([]model.Reservation, 0, weeks)

	for week := 0; week < weeks; week++ {
		offset := time.Duration(week) * 7 * 24 * time.Hour
		r := model.Reservation{
			UserID:        ActorRef(actor),
			SpaceID:       req.SpaceID,
			StartsAt:      req.StartsAt.Add(offset),
			EndsAt:        req.EndsAt.Add(offset),
			State:         model.StatePending,
			Reason:        req.Reason,
			AttendeeCount: req.AttendeeCount,
			RequiresKeys:  req.RequiresKeys,
			Recurring:     req.Recurring,
			RRule:         req.RRule,
			CreatedByID:   ActorRef(actor),
			Metadata:      ensureMap(req.Metadata),
		}
		if req.Recurring {
			semStart := s.cfg.SemesterStartDate
			semEnd := s.cfg.SemesterEndDate
			r.SemesterStart = &semStart
			r.SemesterEnd = &semEnd
			RecurrenceInfo{
				Series:        series,
				Week:          week + 1,
				Weeks:         weeks,
				SemesterStart: semStart,
				SemesterEnd:   semEnd,
			}.apply(r.Metadata)
		} else {
			// Non-recurring requests never carry semester bookkeeping.
			r.SemesterStart = nil
			r.SemesterEnd = nil
			r.RRule = ""
		}
		if err := store.CreateReservation(tx, &r, "reservation request created"); err != nil {
			return nil, err
		}
		created = append(created, r)
	}
	return created, nil
}

// Get returns one reservation.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	r, err := s.store.Reservation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFound("reservation")
	}
	return r, err
}

// List returns reservations matching the filter.
func (s *Service) List(ctx context.Context, f store.ReservationFilter) ([]model.Reservation, error) {
	return s.store.ListReservations(ctx, f)
}

// History returns the immutable state log of a reservation.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]model.ReservationStateLog, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.History(ctx, id)
}

// Delete removes a reservation with its log entries and opening records.
// Allowed for the requester, the creator, superusers and category managers.
func (s *Service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.canDelete(actor, r) {
		return Authorization("you are not allowed to delete this reservation")
	}
	return s.store.Tx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("reservation_id = ?", id).Delete(&model.ReservationStateLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("reservation_id = ?", id).Delete(&model.OpeningRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Reservation{}, "id = ?", id).Error
	})
}

func (s *Service) canDelete(actor Actor, r *model.Reservation) bool {
	if !actor.Authenticated {
		return false
	}
	if actor.Superuser {
		return true
	}
	if r.UserID != nil && *r.UserID == actor.ID {
		return true
	}
	if r.CreatedByID != nil && *r.CreatedByID == actor.ID {
		return true
	}
	return CanManage(actor, r.Space.Category)
}

func (s *Service) notifyUser(userID *uuid.UUID, message string, meta map[string]any) {
	if s.notifier == nil || userID == nil {
		return
	}
	s.notifier.NotifyUser(*userID, message, meta)
}

func (s *Service) notifyRole(role, message string, meta map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyRole(role, message, meta)
}

// mapCommitError converts a violation of the durable exclusion constraint
// into the validation error the pre-check would have produced. The pre-check
// can pass and the commit still fail when two writers race.
func mapCommitError(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if strings.Contains(err.Error(), db.ExclusionConstraintName) {
		return Validation("space is not available in that time range (overlap)")
	}
	return err
}

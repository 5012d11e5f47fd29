package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"room-booking-backend/internal/model"
	"room-booking-backend/internal/parse"
	"room-booking-backend/internal/store"
)

// OpeningInput carries the optional fields of a register-opening call.
type OpeningInput struct {
	At       *time.Time
	Notes    string
	Metadata map[string]any
}

// AttendanceInput carries the fields of a register-attendance call. Status
// accepts the synonyms normalized by internal/parse.
type AttendanceInput struct {
	Status    string
	ArrivalAt *time.Time
	Notes     string
}

// ClosureInput carries the fields of a register-closure call.
type ClosureInput struct {
	Reason string
	Notes  string
	At     *time.Time
}

// RegisterOpening marks the room physically opened for the reservation's
// occurrence. Only allowed for approved reservations, by doorkeeper roles,
// inside the window around the scheduled start.
func (s *Service) RegisterOpening(ctx context.Context, actor Actor, reservationID uuid.UUID, in OpeningInput) (*model.OpeningRecord, error) {
	r, err := s.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.State != model.StateApproved {
		return nil, State("reservation is %s, openings are only tracked for approved reservations", r.State)
	}
	if !CanOpen(actor) {
		return nil, Authorization("role cannot register openings")
	}

	now := s.Now()
	var record *model.OpeningRecord
	err = s.store.Tx(ctx, func(tx *gorm.DB) error {
		record, err = store.FindOrCreateOpening(tx, r, r.StartsAt)
		if err != nil {
			return err
		}
		if record.Opened {
			return State("room already opened for this occurrence")
		}

		windowStart := record.ScheduledAt.Add(-s.cfg.OpeningWindowBefore)
		windowEnd := record.ScheduledAt.Add(s.cfg.OpeningWindowAfter)
		if now.Before(windowStart) {
			return Window("too early: the opening window starts in %s", formatDuration(windowStart.Sub(now)))
		}
		if now.After(windowEnd) {
			return Window("too late: the opening window closed %s ago", formatDuration(now.Sub(windowEnd)))
		}

		openedAt := now
		if in.At != nil {
			openedAt = *in.At
		}
		record.Opened = true
		record.OpenedAt = &openedAt
		record.OpenedByID = ActorRef(actor)
		record.Notes = in.Notes
		record.Metadata = s.openingMetadata(r, in.Metadata)
		return tx.Save(record).Error
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("reservation", r.ID.String()).
		Str("space", r.Space.Code).
		Msg("opening registered")
	s.notifyUser(r.UserID, "Your room has been opened", map[string]any{
		"reservation_id": r.ID.String(),
		"space":          r.Space.Code,
	})
	return record, nil
}

// openingMetadata merges the caller-supplied metadata over the defaults
// derived from the reservation: course code, group and requester name.
func (s *Service) openingMetadata(r *model.Reservation, supplied map[string]any) map[string]any {
	merged := ensureMap(nil)
	classInfoFrom(r.Metadata).apply(merged)
	for k, v := range supplied {
		merged[k] = v
	}
	return merged
}

// RegisterAttendance records the attendance outcome for an opened occurrence.
// An absent outcome escalates to every admin (once per occurrence) and closes
// the room automatically.
func (s *Service) RegisterAttendance(ctx context.Context, actor Actor, reservationID uuid.UUID, in AttendanceInput) (*model.OpeningRecord, error) {
	r, err := s.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !CanOpen(actor) {
		return nil, Authorization("role cannot register attendance")
	}

	status, ok := parse.AttendanceStatus(in.Status)
	if !ok {
		return nil, Validation("unknown attendance status %q", in.Status)
	}
	if status == model.AttendanceLate && in.ArrivalAt == nil {
		return nil, Validation("a late attendance needs the actual arrival time")
	}

	now := s.Now()
	var record *model.OpeningRecord
	var escalate bool
	err = s.store.Tx(ctx, func(tx *gorm.DB) error {
		record, err = findOpening(tx, r.ID, r.StartsAt)
		if err != nil {
			return err
		}
		if record == nil || !record.Opened {
			return State("the room has not been opened yet, register the opening first")
		}
		if record.Closed {
			return State("the occurrence is already closed")
		}

		windowStart := record.ScheduledAt
		if record.OpenedAt != nil && record.OpenedAt.Before(windowStart) {
			windowStart = *record.OpenedAt
		}
		windowEnd := record.ScheduledAt.Add(s.cfg.AttendanceGrace)
		if now.Before(windowStart) {
			return Window("too early: attendance can be registered in %s", formatDuration(windowStart.Sub(now)))
		}
		if now.After(windowEnd) {
			return Window("too late: the attendance window closed %s ago", formatDuration(now.Sub(windowEnd)))
		}

		record.AttendanceStatus = &status
		record.AttendanceAt = &now
		if in.Notes != "" {
			record.AttendanceNotes = in.Notes
		}
		switch status {
		case model.AttendanceLate:
			record.ArrivalAt = in.ArrivalAt
		case model.AttendancePresent:
			arrival := now
			if in.ArrivalAt != nil {
				arrival = *in.ArrivalAt
			}
			record.ArrivalAt = &arrival
		case model.AttendanceAbsent:
			record.ArrivalAt = nil
			if !record.AbsenceNotified {
				record.AbsenceNotified = true
				escalate = true
			}
		}
		if err := tx.Save(record).Error; err != nil {
			return err
		}

		if status == model.AttendanceAbsent {
			// The one auto-cascading transition of the lifecycle: absence
			// closes the occurrence without a separate closure call.
			return s.close(tx, r, record, actor, model.ClosureInstructorAbsence,
				"closed automatically after an absence was recorded", now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("reservation", r.ID.String()).
		Str("status", string(status)).
		Msg("attendance registered")
	if escalate {
		s.notifyRole(RoleAdmin, "Instructor absence recorded for "+r.Space.Code, map[string]any{
			"reservation_id": r.ID.String(),
			"space":          r.Space.Code,
			"scheduled_at":   r.StartsAt.Format(time.RFC3339),
		})
	}
	return record, nil
}

// RegisterClosure marks the occurrence finished. Interactive calls are gated
// by the closure window; the absence cascade bypasses it.
func (s *Service) RegisterClosure(ctx context.Context, actor Actor, reservationID uuid.UUID, in ClosureInput) (*model.OpeningRecord, error) {
	r, err := s.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !CanOpen(actor) {
		return nil, Authorization("role cannot register closures")
	}

	reason, ok := parse.ClosureReason(in.Reason)
	if !ok {
		return nil, Validation("unknown closure reason %q", in.Reason)
	}

	// The window is gated on the real clock; a supplied timestamp only
	// backdates the recorded closure time.
	now := s.Now()
	closedAt := now
	if in.At != nil {
		closedAt = *in.At
	}
	var record *model.OpeningRecord
	err = s.store.Tx(ctx, func(tx *gorm.DB) error {
		record, err = findOpening(tx, r.ID, r.StartsAt)
		if err != nil {
			return err
		}
		if record == nil || !record.Opened {
			return State("the room has not been opened yet, register the opening first")
		}
		if record.Closed {
			return State("the occurrence is already closed")
		}

		windowStart := record.ScheduledAt
		if record.OpenedAt != nil {
			windowStart = *record.OpenedAt
		}
		windowEnd := r.EndsAt.Add(s.cfg.ClosureGrace)
		if now.Before(windowStart) {
			return Window("too early: the closure window starts in %s", formatDuration(windowStart.Sub(now)))
		}
		if now.After(windowEnd) {
			return Window("too late: the closure window closed %s ago", formatDuration(now.Sub(windowEnd)))
		}

		return s.close(tx, r, record, actor, reason, in.Notes, closedAt)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("reservation", r.ID.String()).
		Str("reason", string(reason)).
		Msg("closure registered")
	return record, nil
}

// close writes the closure block (first-write-wins) and mirrors the closure
// state into the parent reservation's metadata.
func (s *Service) close(tx *gorm.DB, r *model.Reservation, record *model.OpeningRecord, actor Actor, reason model.ClosureReason, notes string, at time.Time) error {
	if record.Closed {
		return State("the occurrence is already closed")
	}
	record.Closed = true
	record.ClosedAt = &at
	record.ClosedByID = ActorRef(actor)
	record.ClosureReason = &reason
	if record.ClosureNotes == "" {
		record.ClosureNotes = notes
	}
	if err := tx.Save(record).Error; err != nil {
		return err
	}

	metadata := ensureMap(r.Metadata)
	ClosureInfo{Reason: string(reason), ClosedAt: at}.apply(metadata)
	r.Metadata = metadata
	return tx.Model(r).Update("metadata", metadata).Error
}

// findOpening returns the occurrence's opening record, or nil when the
// occurrence has never been touched.
func findOpening(tx *gorm.DB, reservationID uuid.UUID, scheduledAt time.Time) (*model.OpeningRecord, error) {
	var record model.OpeningRecord
	err := tx.Where("reservation_id = ? AND scheduled_at = ?", reservationID, scheduledAt).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

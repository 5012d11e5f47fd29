package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"room-booking-backend/internal/model"
	"room-booking-backend/internal/store"
)

// Approve transitions a pending reservation to approved and, in the same
// transaction, auto-rejects every other pending reservation overlapping the
// same space and interval. Returns the updated reservation and the number of
// cascaded rejections.
func (s *Service) Approve(ctx context.Context, actor Actor, id uuid.UUID, comment string) (*model.Reservation, int, error) {
	var approved *model.Reservation
	var rejected []model.Reservation

	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		r, err := loadForUpdate(tx, id)
		if err != nil {
			return err
		}
		if r.State != model.StatePending {
			return State("reservation is %s, only pending reservations can be approved", r.State)
		}
		if !CanManage(actor, r.Space.Category) {
			return Authorization("role cannot manage reservations for %s spaces", r.Space.Category)
		}

		// Re-check against approved reservations at approval time; the
		// creation-time check may have raced another approval.
		conflict, err := store.OverlapExists(tx, r.SpaceID, r.StartsAt, r.EndsAt,
			[]model.ReservationState{model.StateApproved}, &r.ID)
		if err != nil {
			return err
		}
		if conflict {
			return Validation("an approved reservation already overlaps that time range")
		}

		previous := r.State
		if err := store.AppendStateLog(tx, r.ID, &previous, model.StateApproved, ActorRef(actor), comment); err != nil {
			return err
		}
		r.State = model.StateApproved
		if err := tx.Model(r).Update("state", model.StateApproved).Error; err != nil {
			return err
		}

		// Cascade: lock the conflicting pending set, then reject each row.
		rejected, err = store.LockConflictingPending(tx, r.SpaceID, r.StartsAt, r.EndsAt, r.ID)
		if err != nil {
			return err
		}
		for i := range rejected {
			c := &rejected[i]
			prev := c.State
			if err := store.AppendStateLog(tx, c.ID, &prev, model.StateRejected, nil,
				"automatically rejected: an overlapping reservation was approved"); err != nil {
				return err
			}
			if err := tx.Model(c).Update("state", model.StateRejected).Error; err != nil {
				return err
			}
		}

		// The opening dashboard tracks the occurrence from approval on.
		if _, err := store.FindOrCreateOpening(tx, r, r.StartsAt); err != nil {
			return err
		}

		approved = r
		return nil
	})
	if err != nil {
		return nil, 0, mapCommitError(err)
	}

	log.Info().
		Str("reservation", approved.ID.String()).
		Int("auto_rejected", len(rejected)).
		Msg("reservation approved")

	s.notifyUser(approved.UserID, "Your reservation was approved", map[string]any{
		"reservation_id": approved.ID.String(),
	})
	for _, c := range rejected {
		s.notifyUser(c.UserID, "Your reservation was rejected: the time slot was assigned to another request", map[string]any{
			"reservation_id": c.ID.String(),
		})
	}
	return approved, len(rejected), nil
}

// Reject transitions a pending reservation to rejected. No cascade.
func (s *Service) Reject(ctx context.Context, actor Actor, id uuid.UUID, comment string) (*model.Reservation, error) {
	var rejected *model.Reservation
	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		r, err := loadForUpdate(tx, id)
		if err != nil {
			return err
		}
		if r.State != model.StatePending {
			return State("reservation is %s, only pending reservations can be rejected", r.State)
		}
		if !CanManage(actor, r.Space.Category) {
			return Authorization("role cannot manage reservations for %s spaces", r.Space.Category)
		}

		previous := r.State
		if err := store.AppendStateLog(tx, r.ID, &previous, model.StateRejected, ActorRef(actor), comment); err != nil {
			return err
		}
		r.State = model.StateRejected
		if err := tx.Model(r).Update("state", model.StateRejected).Error; err != nil {
			return err
		}
		rejected = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyUser(rejected.UserID, "Your reservation was rejected", map[string]any{
		"reservation_id": rejected.ID.String(),
	})
	return rejected, nil
}

// loadForUpdate fetches a reservation with its space, row-locked on dialects
// that support it so concurrent transitions serialize.
func loadForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Reservation, error) {
	q := tx.Preload("Space")
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var r model.Reservation
	if err := q.First(&r, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("reservation")
		}
		return nil, err
	}
	return &r, nil
}

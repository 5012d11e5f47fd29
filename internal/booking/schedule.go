package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"room-booking-backend/internal/model"
	"room-booking-backend/internal/parse"
	"room-booking-backend/internal/store"
)

// OpeningView is one row of the daily opening dashboard: an approved
// reservation for the day and its opening record, when one exists.
type OpeningView struct {
	Reservation model.Reservation    `json:"reservation"`
	Opening     *model.OpeningRecord `json:"opening,omitempty"`
}

// OpeningsForDate materializes the institutional class schedule for the date
// and returns every approved reservation of the day, manual and materialized,
// each paired with its opening record.
func (s *Service) OpeningsForDate(ctx context.Context, date time.Time) ([]OpeningView, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.cfg.Location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	if _, err := s.MaterializeSchedule(ctx, dayStart); err != nil {
		return nil, err
	}

	approved := model.StateApproved
	reservations, err := s.store.ListReservations(ctx, store.ReservationFilter{
		State: &approved,
		From:  &dayStart,
		To:    &dayEnd,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(reservations))
	for i, r := range reservations {
		ids[i] = r.ID
	}
	openings, err := s.store.OpeningsForReservations(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]OpeningView, 0, len(reservations))
	for _, r := range reservations {
		view := OpeningView{Reservation: r}
		if record, ok := openings[r.ID]; ok {
			rec := record
			view.Opening = &rec
		}
		views = append(views, view)
	}
	return views, nil
}

// MaterializeSchedule converts every institutional class block matching the
// date into an approved reservation, skipping blocks whose slot overlaps an
// already-known manual reservation (manual bookings take precedence).
// Materialization is idempotent: re-running for the same date creates
// nothing new. Returns the reservations created by this call.
func (s *Service) MaterializeSchedule(ctx context.Context, date time.Time) ([]model.Reservation, error) {
	blocking := true
	blocks, err := s.store.ListBlocks(ctx, store.BlockFilter{Blocking: &blocking})
	if err != nil {
		return nil, err
	}

	var created []model.Reservation
	err = s.store.Tx(ctx, func(tx *gorm.DB) error {
		for _, block := range blocks {
			class, ok := parse.ClassBlockNotes(block.Notes)
			if !ok {
				continue
			}
			if !blockMatchesDate(block, date, s.cfg.Location) {
				continue
			}
			start, end, err := blockInterval(block, date, s.cfg.Location)
			if err != nil {
				log.Warn().Str("block", block.ID.String()).Err(err).Msg("skipping malformed class block")
				continue
			}

			// Already materialized for this slot.
			var count int64
			if err := tx.Model(&model.Reservation{}).
				Where("space_id = ? AND from_schedule = ? AND starts_at = ? AND ends_at = ?",
					block.SpaceID, true, start, end).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			// A manual booking on the slot wins over the schedule.
			conflict, err := store.OverlapExists(tx, block.SpaceID, start, end,
				[]model.ReservationState{model.StatePending, model.StateApproved}, nil)
			if err != nil {
				return err
			}
			if conflict {
				continue
			}

			r := model.Reservation{
				SpaceID:      block.SpaceID,
				StartsAt:     start,
				EndsAt:       end,
				State:        model.StateApproved,
				Reason:       classReason(class),
				FromSchedule: true,
				Metadata:     ensureMap(nil),
			}
			ClassInfo{
				BlockID: block.ID.String(),
				Date:    date.Format("2006-01-02"),
				Course:  class.Course,
				Group:   class.Group,
			}.apply(r.Metadata)
			if err := store.CreateReservation(tx, &r, "materialized from the institutional schedule"); err != nil {
				return err
			}
			if _, err := store.FindOrCreateOpening(tx, &r, r.StartsAt); err != nil {
				return err
			}
			created = append(created, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(created) > 0 {
		log.Info().
			Time("date", date).
			Int("materialized", len(created)).
			Msg("institutional schedule materialized")
	}
	return created, nil
}

// blockMatchesDate reports whether a class block applies to the date: weekly
// blocks match on weekday (0=Monday), date-bounded blocks on range
// containment with either side open. Range bounds are compared as calendar
// dates in the configured timezone, never as raw instants.
func blockMatchesDate(block model.AvailabilityBlock, date time.Time, loc *time.Location) bool {
	if block.Weekday != nil {
		return block.Recurring && *block.Weekday == mondayIndexed(date.Weekday())
	}
	if block.DateFrom == nil && block.DateTo == nil {
		return false
	}
	day := dateOnly(date, loc)
	if block.DateFrom != nil && day.Before(dateOnly(*block.DateFrom, loc)) {
		return false
	}
	if block.DateTo != nil && day.After(dateOnly(*block.DateTo, loc)) {
		return false
	}
	return true
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func blockInterval(block model.AvailabilityBlock, date time.Time, loc *time.Location) (time.Time, time.Time, error) {
	start, err := atTimeOfDay(date, block.StartTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := atTimeOfDay(date, block.EndTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("block time range %s-%s is inverted", block.StartTime, block.EndTime)
	}
	return start, end, nil
}

func atTimeOfDay(date time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q: %w", hhmm, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// mondayIndexed converts Go's Sunday-first weekday to the 0=Monday..6=Sunday
// convention used by availability blocks.
func mondayIndexed(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

func classReason(class parse.ClassBlock) string {
	if class.Title != "" {
		return fmt.Sprintf("%s %s - %s", class.Course, class.Group, class.Title)
	}
	return fmt.Sprintf("%s %s", class.Course, class.Group)
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReservationState is the lifecycle state of a reservation. A reservation is
// created pending and transitions exactly once to approved or rejected.
type ReservationState string

const (
	StatePending  ReservationState = "pending"
	StateApproved ReservationState = "approved"
	StateRejected ReservationState = "rejected"
)

// Reservation is one concrete occurrence of a booking for a space. Recurring
// requests are expanded into one row per weekly occurrence; the rows share
// series metadata but have independent identities.
type Reservation struct {
	ID      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	SpaceID uuid.UUID  `gorm:"type:uuid;index:idx_reservations_space_time;not null" json:"space_id"`

	StartsAt time.Time `gorm:"index:idx_reservations_space_time;not null" json:"starts_at"`
	EndsAt   time.Time `gorm:"index:idx_reservations_space_time;not null" json:"ends_at"`
	// PeriodStart/PeriodEnd mirror StartsAt/EndsAt as the half-open interval
	// [start, end) backing the range index and exclusion constraint. Kept in
	// sync by BeforeSave on every write.
	PeriodStart time.Time `gorm:"not null" json:"-"`
	PeriodEnd   time.Time `gorm:"not null" json:"-"`

	State         ReservationState `gorm:"size:20;not null;default:pending;index" json:"state"`
	Reason        string           `json:"reason,omitempty"`
	AttendeeCount *int             `json:"attendee_count,omitempty"`
	RequiresKeys  bool             `gorm:"not null;default:false" json:"requires_keys"`

	Recurring     bool       `gorm:"not null;default:false" json:"recurring"`
	SemesterStart *time.Time `gorm:"type:date" json:"semester_start,omitempty"`
	SemesterEnd   *time.Time `gorm:"type:date" json:"semester_end,omitempty"`
	RRule         string     `json:"rrule,omitempty"`

	// FromSchedule marks reservations materialized from institutional class
	// blocks. They bypass the overlap exclusion constraint and are never
	// counted as booking conflicts.
	FromSchedule bool `gorm:"not null;default:false;index" json:"from_schedule"`

	CreatedByID *uuid.UUID        `gorm:"type:uuid" json:"created_by,omitempty"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`

	// Associations
	Space    Space                 `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	History  []ReservationStateLog `gorm:"foreignKey:ReservationID" json:"-"`
	Openings []OpeningRecord       `gorm:"foreignKey:ReservationID" json:"-"`
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// BeforeSave derives the half-open interval from the timestamps so the two
// can never drift apart.
func (r *Reservation) BeforeSave(tx *gorm.DB) error {
	if !r.StartsAt.IsZero() && !r.EndsAt.IsZero() {
		r.PeriodStart = r.StartsAt
		r.PeriodEnd = r.EndsAt
	}
	return nil
}

// ReservationStateLog is an immutable audit entry for one state transition.
// Every reservation gets a creation entry (PreviousState nil) in the same
// transaction that creates it.
type ReservationStateLog struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ReservationID uuid.UUID         `gorm:"type:uuid;index;not null" json:"reservation_id"`
	PreviousState *ReservationState `gorm:"size:20" json:"previous_state,omitempty"`
	NewState      ReservationState  `gorm:"size:20;not null" json:"new_state"`
	ActorID       *uuid.UUID        `gorm:"type:uuid" json:"actor_id,omitempty"`
	Comment       string            `json:"comment,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`

	// Associations
	Reservation Reservation `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (l *ReservationStateLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AttendanceStatus is the recorded attendance outcome for an occurrence.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// ClosureReason explains why a room was closed for an occurrence.
type ClosureReason string

const (
	ClosureEndOfClass        ClosureReason = "end_of_class"
	ClosureInstructorAbsence ClosureReason = "instructor_absence"
	ClosureAdminInstruction  ClosureReason = "admin_instruction"
)

// OpeningRecord tracks the physical-space lifecycle of one scheduled
// occurrence of a reservation: opening, attendance verification and closure.
// One record exists per (reservation, scheduled timestamp), created lazily by
// the first opening-related action (or on approval) and never deleted.
//
// Closure fields are first-write-wins: once Closed is set they never change.
type OpeningRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReservationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_opening_occurrence" json:"reservation_id"`
	SpaceID       uuid.UUID `gorm:"type:uuid;index;not null" json:"space_id"`
	ScheduledAt   time.Time `gorm:"not null;uniqueIndex:idx_opening_occurrence" json:"scheduled_at"`

	Opened     bool       `gorm:"not null;default:false" json:"opened"`
	OpenedAt   *time.Time `json:"opened_at,omitempty"`
	OpenedByID *uuid.UUID `gorm:"type:uuid" json:"opened_by,omitempty"`

	AttendanceStatus *AttendanceStatus `gorm:"size:20" json:"attendance_status,omitempty"`
	AttendanceAt     *time.Time        `json:"attendance_at,omitempty"`
	AttendanceNotes  string            `json:"attendance_notes,omitempty"`
	ArrivalAt        *time.Time        `json:"arrival_at,omitempty"`
	// AbsenceNotified prevents duplicate absence escalations for the same
	// occurrence.
	AbsenceNotified bool `gorm:"not null;default:false" json:"absence_notified"`

	Closed        bool           `gorm:"not null;default:false" json:"closed"`
	ClosedAt      *time.Time     `json:"closed_at,omitempty"`
	ClosedByID    *uuid.UUID     `gorm:"type:uuid" json:"closed_by,omitempty"`
	ClosureReason *ClosureReason `gorm:"size:30" json:"closure_reason,omitempty"`
	ClosureNotes  string         `json:"closure_notes,omitempty"`

	Notes     string            `json:"notes,omitempty"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	// Associations
	Reservation Reservation `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Space       Space       `json:"-"`
}

func (o *OpeningRecord) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

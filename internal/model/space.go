package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SpaceCategory classifies a bookable room. The category decides which roles
// may manage reservations for the space.
type SpaceCategory string

const (
	SpaceClassroom SpaceCategory = "classroom"
	SpaceLab       SpaceCategory = "lab"
	SpaceHall      SpaceCategory = "hall"
)

// Space represents a bookable physical room.
type Space struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Code        string         `gorm:"uniqueIndex;size:50;not null" json:"code"`
	Name        string         `gorm:"size:200;not null" json:"name"`
	Description string         `json:"description,omitempty"`
	Category    SpaceCategory  `gorm:"size:20;not null;default:classroom" json:"category"`
	Capacity    *int           `json:"capacity,omitempty"`
	Location    string         `gorm:"size:50" json:"location,omitempty"`
	Resources   datatypes.JSON `json:"resources,omitempty"`
	// Spaces are soft-deactivated, never deleted, while reservations
	// reference them.
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Blocks []AvailabilityBlock `gorm:"foreignKey:SpaceID" json:"-"`
}

func (s *Space) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// AvailabilityBlock is attached to a space and describes either baseline open
// hours (non-blocking) or a blocked window. Blocking entries whose notes carry
// the class prefix are institutional class blocks (see internal/parse).
//
// Exactly one of Weekday or the DateFrom/DateTo range is set: a weekly
// recurring block uses Weekday (0=Monday .. 6=Sunday), a date-bounded block
// uses the range, with either side open.
type AvailabilityBlock struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SpaceID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"space_id"`
	Weekday   *int       `json:"weekday,omitempty"`
	StartTime string     `gorm:"size:5" json:"start_time"` // "HH:MM"
	EndTime   string     `gorm:"size:5" json:"end_time"`   // "HH:MM"
	DateFrom  *time.Time `gorm:"type:date" json:"date_from,omitempty"`
	DateTo    *time.Time `gorm:"type:date" json:"date_to,omitempty"`
	Recurring bool       `gorm:"not null;default:true" json:"recurring"`
	Blocking  bool       `gorm:"column:is_blocking;not null;default:false" json:"is_blocking"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Associations
	Space Space `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (b *AvailabilityBlock) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Baseline open hours seeded for every new space.
const (
	DefaultOpenTime  = "06:00"
	DefaultCloseTime = "20:00"
)

// DefaultAvailability returns the baseline weekly open-hours blocks for a
// space, one non-blocking recurring entry per weekday.
func DefaultAvailability(spaceID uuid.UUID) []AvailabilityBlock {
	blocks := make([]AvailabilityBlock, 0, 7)
	for day := 0; day < 7; day++ {
		d := day
		blocks = append(blocks, AvailabilityBlock{
			SpaceID:   spaceID,
			Weekday:   &d,
			StartTime: DefaultOpenTime,
			EndTime:   DefaultCloseTime,
			Recurring: true,
			Blocking:  false,
			Notes:     "baseline open hours",
		})
	}
	return blocks
}

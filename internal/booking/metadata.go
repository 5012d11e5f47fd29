package booking

import (
	"time"

	"gorm.io/datatypes"
)

// The open string-keyed metadata map on reservations and opening records is
// only touched at the storage boundary through the typed structures below.

// Metadata keys used by the booking core.
const (
	metaSeries          = "series"
	metaWeek            = "week"
	metaWeeks           = "weeks"
	metaSemesterStart   = "semester_start"
	metaSemesterEnd     = "semester_end"
	metaScheduleBlockID = "schedule_block_id"
	metaScheduleDate    = "schedule_date"
	metaCourse          = "course"
	metaGroup           = "group"
	metaRequester       = "requester"
	metaClosed          = "closed"
	metaClosureReason   = "closure_reason"
	metaClosedAt        = "closed_at"
)

// RecurrenceInfo links the occurrences of one recurring series: a shared
// series id, the 1-based week index, the total count and the semester bounds.
type RecurrenceInfo struct {
	Series        string
	Week          int
	Weeks         int
	SemesterStart time.Time
	SemesterEnd   time.Time
}

func (r RecurrenceInfo) apply(m datatypes.JSONMap) {
	m[metaSeries] = r.Series
	m[metaWeek] = r.Week
	m[metaWeeks] = r.Weeks
	m[metaSemesterStart] = r.SemesterStart.Format("2006-01-02")
	m[metaSemesterEnd] = r.SemesterEnd.Format("2006-01-02")
}

// ClassInfo carries the institutional-schedule provenance of a materialized
// reservation, and the course defaults shown on the opening dashboard.
type ClassInfo struct {
	BlockID   string
	Date      string // YYYY-MM-DD
	Course    string
	Group     string
	Requester string
}

func (c ClassInfo) apply(m datatypes.JSONMap) {
	if c.BlockID != "" {
		m[metaScheduleBlockID] = c.BlockID
	}
	if c.Date != "" {
		m[metaScheduleDate] = c.Date
	}
	if c.Course != "" {
		m[metaCourse] = c.Course
	}
	if c.Group != "" {
		m[metaGroup] = c.Group
	}
	if c.Requester != "" {
		m[metaRequester] = c.Requester
	}
}

func classInfoFrom(m datatypes.JSONMap) ClassInfo {
	return ClassInfo{
		Course:    stringAt(m, metaCourse),
		Group:     stringAt(m, metaGroup),
		Requester: stringAt(m, metaRequester),
	}
}

// ClosureInfo is the closure state mirrored into the parent reservation's
// metadata for read paths.
type ClosureInfo struct {
	Reason   string
	ClosedAt time.Time
}

func (c ClosureInfo) apply(m datatypes.JSONMap) {
	m[metaClosed] = true
	m[metaClosureReason] = c.Reason
	m[metaClosedAt] = c.ClosedAt.Format(time.RFC3339)
}

func stringAt(m datatypes.JSONMap, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func ensureMap(m datatypes.JSONMap) datatypes.JSONMap {
	if m == nil {
		return datatypes.JSONMap{}
	}
	return m
}

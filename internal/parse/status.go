package parse

import (
	"strings"

	"room-booking-backend/internal/model"
)

var attendanceSynonyms = map[string]model.AttendanceStatus{
	"present":  model.AttendancePresent,
	"presente": model.AttendancePresent,
	"ok":       model.AttendancePresent,
	"asistio":  model.AttendancePresent,
	"attended": model.AttendancePresent,
	"late":     model.AttendanceLate,
	"tarde":    model.AttendanceLate,
	"delayed":  model.AttendanceLate,
	"absent":   model.AttendanceAbsent,
	"ausente":  model.AttendanceAbsent,
	"no-show":  model.AttendanceAbsent,
	"noshow":   model.AttendanceAbsent,
}

// AttendanceStatus normalizes a free-text attendance value to one of the
// three canonical statuses.
func AttendanceStatus(s string) (model.AttendanceStatus, bool) {
	status, ok := attendanceSynonyms[normalize(s)]
	return status, ok
}

var closureSynonyms = map[string]model.ClosureReason{
	"end_of_class":               model.ClosureEndOfClass,
	"end-of-class":               model.ClosureEndOfClass,
	"end_class":                  model.ClosureEndOfClass,
	"finished":                   model.ClosureEndOfClass,
	"fin":                        model.ClosureEndOfClass,
	"fin_clase":                  model.ClosureEndOfClass,
	"instructor_absence":         model.ClosureInstructorAbsence,
	"instructor-absence":         model.ClosureInstructorAbsence,
	"absence":                    model.ClosureInstructorAbsence,
	"ausencia":                   model.ClosureInstructorAbsence,
	"admin_instruction":          model.ClosureAdminInstruction,
	"admin-instruction":          model.ClosureAdminInstruction,
	"administrative":             model.ClosureAdminInstruction,
	"administrative_instruction": model.ClosureAdminInstruction,
	"administrative-instruction": model.ClosureAdminInstruction,
	"instruccion":                model.ClosureAdminInstruction,
}

// ClosureReason normalizes a free-text closure reason to one of the three
// canonical reasons.
func ClosureReason(s string) (model.ClosureReason, bool) {
	reason, ok := closureSynonyms[normalize(s)]
	return reason, ok
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

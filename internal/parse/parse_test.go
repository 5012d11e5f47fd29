package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"room-booking-backend/internal/model"
)

func TestClassBlockNotes(t *testing.T) {
	tests := []struct {
		name  string
		notes string
		want  ClassBlock
		ok    bool
	}{
		{
			name:  "full marker",
			notes: "class:MAT101 G2 Calculus I",
			want:  ClassBlock{Course: "MAT101", Group: "G2", Title: "Calculus I"},
			ok:    true,
		},
		{
			name:  "no title",
			notes: "class:FIS200 G1",
			want:  ClassBlock{Course: "FIS200", Group: "G1"},
			ok:    true,
		},
		{
			name:  "mixed case prefix and lowercase course",
			notes: "  Class:mat101 G2 Calculus I  ",
			want:  ClassBlock{Course: "MAT101", Group: "G2", Title: "Calculus I"},
			ok:    true,
		},
		{name: "plain notes", notes: "reserved for maintenance", ok: false},
		{name: "marker without group", notes: "class:MAT101", ok: false},
		{name: "empty", notes: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClassBlockNotes(tt.notes)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRRuleCount(t *testing.T) {
	tests := []struct {
		rrule string
		want  int
		ok    bool
	}{
		{"FREQ=WEEKLY;COUNT=16", 16, true},
		{"RRULE:FREQ=WEEKLY;COUNT=4", 4, true},
		{"count=3", 3, true},
		{" freq=weekly ; Count=2 ", 2, true},
		{"FREQ=WEEKLY", 0, false},
		{"COUNT=abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := RRuleCount(tt.rrule)
		assert.Equal(t, tt.ok, ok, tt.rrule)
		assert.Equal(t, tt.want, got, tt.rrule)
	}
}

func TestAttendanceStatusSynonyms(t *testing.T) {
	for input, want := range map[string]model.AttendanceStatus{
		"present":  model.AttendancePresent,
		"Presente": model.AttendancePresent,
		" OK ":     model.AttendancePresent,
		"late":     model.AttendanceLate,
		"tarde":    model.AttendanceLate,
		"absent":   model.AttendanceAbsent,
		"no-show":  model.AttendanceAbsent,
	} {
		got, ok := AttendanceStatus(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}

	_, ok := AttendanceStatus("vanished")
	assert.False(t, ok)
}

func TestClosureReasonSynonyms(t *testing.T) {
	for input, want := range map[string]model.ClosureReason{
		"end_of_class":      model.ClosureEndOfClass,
		"FIN_CLASE":         model.ClosureEndOfClass,
		"finished":          model.ClosureEndOfClass,
		"absence":           model.ClosureInstructorAbsence,
		"Ausencia":          model.ClosureInstructorAbsence,
		"admin_instruction": model.ClosureAdminInstruction,
		"administrative":    model.ClosureAdminInstruction,
	} {
		got, ok := ClosureReason(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}

	_, ok := ClosureReason("because")
	assert.False(t, ok)
}

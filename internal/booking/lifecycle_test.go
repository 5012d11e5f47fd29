package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-booking-backend/internal/model"
)

// approvedReservation creates and approves a [10:00, 12:00) reservation on
// the first semester day. Opening window: [09:40, 10:15]. Attendance window
// ends 10:30, closure window ends 12:15.
func approvedReservation(t *testing.T, svc *Service, spaceID uuid.UUID) *model.Reservation {
	t.Helper()
	ctx := context.Background()
	created, err := svc.Create(ctx, requesterActor(), CreateReservation{
		SpaceID:  spaceID,
		StartsAt: at(0, 10, 0),
		EndsAt:   at(0, 12, 0),
	})
	require.NoError(t, err)
	approved, _, err := svc.Approve(ctx, adminActor(), created[0].ID, "")
	require.NoError(t, err)
	return approved
}

func setClock(svc *Service, now time.Time) {
	svc.Now = func() time.Time { return now }
}

func TestRegisterOpening(t *testing.T) {
	svc, st, notifier := newTestService(t)
	space := mustCreateSpace(t, st, "104", model.SpaceClassroom)
	ctx := context.Background()
	concierge := conciergeActor()
	r := approvedReservation(t, svc, space.ID)

	t.Run("too early reports the wait", func(t *testing.T) {
		setClock(svc, at(0, 9, 20))
		_, err := svc.RegisterOpening(ctx, concierge, r.ID, OpeningInput{})
		require.Error(t, err)
		assert.Equal(t, KindWindow, KindOf(err))
		assert.Contains(t, err.Error(), "too early")
		assert.Contains(t, err.Error(), "20m")
	})

	t.Run("too late reports the overrun", func(t *testing.T) {
		setClock(svc, at(0, 10, 17))
		_, err := svc.RegisterOpening(ctx, concierge, r.ID, OpeningInput{})
		require.Error(t, err)
		assert.Equal(t, KindWindow, KindOf(err))
		assert.Contains(t, err.Error(), "too late")
		assert.Contains(t, err.Error(), "2m")
	})

	t.Run("requester role cannot open", func(t *testing.T) {
		setClock(svc, at(0, 9, 45))
		_, err := svc.RegisterOpening(ctx, requesterActor(), r.ID, OpeningInput{})
		require.Error(t, err)
		assert.Equal(t, KindAuthorization, KindOf(err))
	})

	t.Run("opens inside the window", func(t *testing.T) {
		setClock(svc, at(0, 9, 45))
		record, err := svc.RegisterOpening(ctx, concierge, r.ID, OpeningInput{Notes: "keys handed over"})
		require.NoError(t, err)
		assert.True(t, record.Opened)
		assert.Equal(t, at(0, 9, 45), record.OpenedAt.UTC())
		assert.Equal(t, concierge.ID, *record.OpenedByID)
		assert.Equal(t, "keys handed over", record.Notes)

		require.NotEmpty(t, notifier.users)
		assert.Contains(t, notifier.users[len(notifier.users)-1].Message, "opened")
	})

	t.Run("double opening is refused", func(t *testing.T) {
		setClock(svc, at(0, 9, 50))
		_, err := svc.RegisterOpening(ctx, concierge, r.ID, OpeningInput{})
		require.Error(t, err)
		assert.Equal(t, KindState, KindOf(err))
	})
}

func TestRegisterOpeningRequiresApprovedState(t *testing.T) {
	svc, st, _ := newTestService(t)
	space := mustCreateSpace(t, st, "104", model.SpaceClassroom)
	ctx := context.Background()

	created, err := svc.Create(ctx, requesterActor(), CreateReservation{
		SpaceID:  space.ID,
		StartsAt: at(0, 10, 0),
		EndsAt:   at(0, 12, 0),
	})
	require.NoError(t, err)

	setClock(svc, at(0, 9, 45))
	_, err = svc.RegisterOpening(ctx, conciergeActor(), created[0].ID, OpeningInput{})
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
}

func TestRegisterAttendance(t *testing.T) {
	svc, st, _ := newTestService(t)
	space := mustCreateSpace(t, st, "104", model.SpaceClassroom)
	ctx := context.Background()
	concierge := conciergeActor()
	r := approvedReservation(t, svc, space.ID)

	t.Run("requires an opened room", func(t *testing.T) {
		setClock(svc, at(0, 10, 5))
		_, err := svc.RegisterAttendance(ctx, concierge, r.ID, AttendanceInput{Status: "present"})
		require.Error(t, err)
		assert.Equal(t, KindState, KindOf(err))
	})

	setClock(svc, at(0, 9, 45))
	_, err := svc.RegisterOpening(ctx, concierge, r.ID, OpeningInput{})
	require.NoError(t, err)

	t.Run("unknown status", func(t *testing.T) {
		setClock(svc, at(0, 10, 5))
		_, err := svc.RegisterAttendance(ctx, concierge, r.ID, AttendanceInput{Status: "vanished"})
		require.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("late needs an arrival time", func(t *testing.T) {
		setClock(svc, at(0, 10, 5))
		_, err := svc.RegisterAttendance(ctx, concierge, r.ID, AttendanceInput{Status: "late"})
		require.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("refused after the grace period", func(t *testing.T) {
		setClock(svc, at(0, 10, 31))
		_, err := svc.RegisterAttendance(ctx, concierge, r.ID, AttendanceInput{Status: "present"})
		require.Error(t, err)
		assert.Equal(t, KindWindow, KindOf(err))
		assert.Contains(t, err.Error(), "1m")
	})

	t.Run("synonym normalizes to present", func(t *testing.T) {
		setClock(svc, at(0, 10, 5))
		record, err := svc.RegisterAttendance(ctx, concierge, r.ID, AttendanceInput{Status: "Presente"})
		require.NoError(t, err)
		require.NotNil(t, record.AttendanceStatus)
		assert.Equal(t, model.AttendancePresent, *record.AttendanceStatus)
		// A present instructor defaults the arrival to now.
		assert.Equal(t, at(0, 10, 5), record.ArrivalAt.UTC())
		assert.False(t, record.Closed)
	})
}

func TestRegisterAttendanceAbsenceCascade(t *testing.T) {
	svc, st, notifier := newTestService(t)
	space := mustCreateSpace(t, st, "104", model.SpaceClassroom)
	ctx := context.Background()
	concierge := conciergeActor()
	r := approvedReservation(t, svc, space.ID)

	setClock(svc, at(0, 9, 45))
	_, err := svc.RegisterOpening(ctx, concierge, r.ID, OpeningInput{})
	require.NoError(t, err)

	setClock(svc, at(0, 10, 20))
	record, err := svc.RegisterAttendance(ctx, concierge, r.ID, AttendanceInput{Status: "no-show"})
	require.NoError(t, err)

	// The absence closes the occurrence in the same call.
	require.NotNil(t, record.AttendanceStatus)
	assert.Equal(t, model.AttendanceAbsent, *record.AttendanceStatus)
	assert.True(t, record.Closed)
	require.NotNil(t, record.ClosureReason)
	assert.Equal(t, model.ClosureInstructorAbsence, *record.ClosureReason)
	assert.True(t, record.AbsenceNotified)
	assert.Nil(t, record.ArrivalAt)

	// The escalation reaches the admin role exactly once.
	require.Len(t, notifier.roles, 1)
	assert.Equal(t, RoleAdmin, notifier.roles[0].Role)
	assert.Contains(t, notifier.roles[0].Message, "absence")

	// The closure state is mirrored into the reservation metadata.
	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, true, got.Metadata["closed"])
	assert.Equal(t, string(model.ClosureInstructorAbsence), got.Metadata["closure_reason"])

	// Everything is final after the automatic closure.
	_, err = svc.RegisterAttendance(ctx, concierge, r.ID, AttendanceInput{Status: "present"})
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
	assert.Len(t, notifier.roles, 1)
}

func TestRegisterAttendanceKeepsOpeningNotes(t *testing.T) {
	svc, st, _ := newTestService(t)
	space := mustCreateSpace(t, st, "104", model.SpaceClassroom)
	ctx := context.Background()
	concierge := conciergeActor()
	r := approvedReservation(t, svc, space.ID)

	setClock(svc, at(0, 9, 45))
	_, err := svc.RegisterOpening(ctx, concierge, r.ID, OpeningInput{Notes: "keys handed over"})
	require.NoError(t, err)

	// Attendance observations land in their own field; the opening notes
	// stay untouched.
	setClock(svc, at(0, 10, 5))
	record, err := svc.RegisterAttendance(ctx, concierge, r.ID, AttendanceInput{
		Status: "present",
		Notes:  "arrived with the whole group",
	})
	require.NoError(t, err)
	assert.Equal(t, "keys handed over", record.Notes)
	assert.Equal(t, "arrived with the whole group", record.AttendanceNotes)
}

func TestRegisterClosureWindowIgnoresSuppliedTimestamp(t *testing.T) {
	svc, st, _ := newTestService(t)
	space := mustCreateSpace(t, st, "104", model.SpaceClassroom)
	ctx := context.Background()
	concierge := conciergeActor()
	r := approvedReservation(t, svc, space.ID)

	setClock(svc, at(0, 9, 45))
	_, err := svc.RegisterOpening(ctx, concierge, r.ID, OpeningInput{})
	require.NoError(t, err)

	// Two days later the closure window is long gone; a backdated
	// timestamp must not reopen it.
	backdated := at(0, 11, 50)
	setClock(svc, at(2, 11, 50))
	_, err = svc.RegisterClosure(ctx, concierge, r.ID, ClosureInput{
		Reason: "end_of_class",
		At:     &backdated,
	})
	require.Error(t, err)
	assert.Equal(t, KindWindow, KindOf(err))

	// Inside the window the supplied timestamp is only recorded as the
	// closure time.
	setClock(svc, at(0, 11, 55))
	record, err := svc.RegisterClosure(ctx, concierge, r.ID, ClosureInput{
		Reason: "end_of_class",
		At:     &backdated,
	})
	require.NoError(t, err)
	assert.True(t, record.Closed)
	assert.Equal(t, backdated, record.ClosedAt.UTC())
}

func TestRegisterClosure(t *testing.T) {
	svc, st, _ := newTestService(t)
	space := mustCreateSpace(t, st, "104", model.SpaceClassroom)
	ctx := context.Background()
	concierge := conciergeActor()
	r := approvedReservation(t, svc, space.ID)

	t.Run("requires an opened room", func(t *testing.T) {
		setClock(svc, at(0, 11, 50))
		_, err := svc.RegisterClosure(ctx, concierge, r.ID, ClosureInput{Reason: "end_of_class"})
		require.Error(t, err)
		assert.Equal(t, KindState, KindOf(err))
	})

	setClock(svc, at(0, 9, 45))
	_, err := svc.RegisterOpening(ctx, concierge, r.ID, OpeningInput{})
	require.NoError(t, err)

	t.Run("unknown reason", func(t *testing.T) {
		setClock(svc, at(0, 11, 50))
		_, err := svc.RegisterClosure(ctx, concierge, r.ID, ClosureInput{Reason: "because"})
		require.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("too late after the grace period", func(t *testing.T) {
		setClock(svc, at(0, 12, 20))
		_, err := svc.RegisterClosure(ctx, concierge, r.ID, ClosureInput{Reason: "end_of_class"})
		require.Error(t, err)
		assert.Equal(t, KindWindow, KindOf(err))
		assert.Contains(t, err.Error(), "5m")
	})

	t.Run("closes with a synonym reason", func(t *testing.T) {
		setClock(svc, at(0, 11, 50))
		record, err := svc.RegisterClosure(ctx, concierge, r.ID, ClosureInput{Reason: "fin_clase", Notes: "room empty"})
		require.NoError(t, err)
		assert.True(t, record.Closed)
		require.NotNil(t, record.ClosureReason)
		assert.Equal(t, model.ClosureEndOfClass, *record.ClosureReason)
		assert.Equal(t, "room empty", record.ClosureNotes)
		assert.Equal(t, concierge.ID, *record.ClosedByID)
	})

	t.Run("double closure is refused", func(t *testing.T) {
		setClock(svc, at(0, 11, 55))
		_, err := svc.RegisterClosure(ctx, concierge, r.ID, ClosureInput{Reason: "end_of_class"})
		require.Error(t, err)
		assert.Equal(t, KindState, KindOf(err))
	})
}

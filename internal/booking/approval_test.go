package booking

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room-booking-backend/internal/model"
)

func pendingReservation(t *testing.T, svc *Service, spaceID uuid.UUID, startHour, endHour int) model.Reservation {
	t.Helper()
	created, err := svc.Create(context.Background(), requesterActor(), CreateReservation{
		SpaceID:  spaceID,
		StartsAt: at(0, startHour, 0),
		EndsAt:   at(0, endHour, 0),
	})
	require.NoError(t, err)
	return created[0]
}

func TestApprove(t *testing.T) {
	svc, st, notifier := newTestService(t)
	space := mustCreateSpace(t, st, "104", model.SpaceClassroom)
	ctx := context.Background()
	admin := adminActor()

	r := pendingReservation(t, svc, space.ID, 10, 12)

	approved, autoRejected, err := svc.Approve(ctx, admin, r.ID, "fits the roster")
	require.NoError(t, err)
	assert.Equal(t, model.StateApproved, approved.State)
	assert.Zero(t, autoRejected)

	history, err := svc.History(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.StatePending, *history[1].PreviousState)
	assert.Equal(t, model.StateApproved, history[1].NewState)
	assert.Equal(t, admin.ID, *history[1].ActorID)
	assert.Equal(t, "fits the roster", history[1].Comment)

	// Approval seeds the opening record for the occurrence.
	var openings int64
	st.DB().Model(&model.OpeningRecord{}).Where("reservation_id = ?", r.ID).Count(&openings)
	assert.EqualValues(t, 1, openings)

	require.Len(t, notifier.users, 1)
	assert.Equal(t, *r.UserID, notifier.users[0].UserID)
	assert.Contains(t, notifier.users[0].Message, "approved")
}

func TestApproveCascadesRejections(t *testing.T) {
	svc, st, notifier := newTestService(t)
	space := mustCreateSpace(t, st, "104", model.SpaceClassroom)
	ctx := context.Background()

	winner := pendingReservation(t, svc, space.ID, 10, 12)
	loserA := pendingReservation(t, svc, space.ID, 11, 13)
	loserB := pendingReservation(t, svc, space.ID, 9, 11)
	untouched := pendingReservation(t, svc, space.ID, 13, 14)

	_, autoRejected, err := svc.Approve(ctx, adminActor(), winner.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, autoRejected)

	for _, loser := range []model.Reservation{loserA, loserB} {
		got, err := svc.Get(ctx, loser.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StateRejected, got.State)

		history, err := svc.History(ctx, loser.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		// The cascade is a system action, no actor is recorded.
		assert.Nil(t, history[1].ActorID)
		assert.Contains(t, history[1].Comment, "automatically rejected")
	}

	got, err := svc.Get(ctx, untouched.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatePending, got.State)

	// The winner and both losers were notified.
	assert.Len(t, notifier.users, 3)
}

func TestApproveRequiresPendingState(t *testing.T) {
	svc, st, _ := newTestService(t)
	space := mustCreateSpace(t, st, "104", model.SpaceClassroom)
	ctx := context.Background()

	r := pendingReservation(t, svc, space.ID, 10, 12)
	_, _, err := svc.Approve(ctx, adminActor(), r.ID, "")
	require.NoError(t, err)

	_, _, err = svc.Approve(ctx, adminActor(), r.ID, "")
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
	assert.Contains(t, err.Error(), "approved")
}

func TestApproveAuthorizationByCategory(t *testing.T) {
	svc, st, _ := newTestService(t)
	classroom := mustCreateSpace(t, st, "104", model.SpaceClassroom)
	lab := mustCreateSpace(t, st, "LAB-2", model.SpaceLab)
	ctx := context.Background()

	t.Run("front desk manages classrooms", func(t *testing.T) {
		r := pendingReservation(t, svc, classroom.ID, 10, 12)
		_, _, err := svc.Approve(ctx, frontDeskActor(), r.ID, "")
		assert.NoError(t, err)
	})

	t.Run("front desk cannot manage labs", func(t *testing.T) {
		r := pendingReservation(t, svc, lab.ID, 10, 12)
		_, _, err := svc.Approve(ctx, frontDeskActor(), r.ID, "")
		require.Error(t, err)
		assert.Equal(t, KindAuthorization, KindOf(err))
	})

	t.Run("lab tech manages labs", func(t *testing.T) {
		r := pendingReservation(t, svc, lab.ID, 14, 15)
		_, _, err := svc.Approve(ctx, Actor{ID: uuid.New(), Authenticated: true, Role: RoleLabTech}, r.ID, "")
		assert.NoError(t, err)
	})

	t.Run("superuser acts as admin", func(t *testing.T) {
		r := pendingReservation(t, svc, lab.ID, 16, 17)
		_, _, err := svc.Approve(ctx, Actor{ID: uuid.New(), Authenticated: true, Superuser: true}, r.ID, "")
		assert.NoError(t, err)
	})

	t.Run("unauthenticated actor is refused", func(t *testing.T) {
		r := pendingReservation(t, svc, classroom.ID, 18, 19)
		_, _, err := svc.Approve(ctx, Actor{}, r.ID, "")
		require.Error(t, err)
		assert.Equal(t, KindAuthorization, KindOf(err))
	})
}

func TestApproveUnknownReservation(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, _, err := svc.Approve(context.Background(), adminActor(), uuid.New(), "")
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestReject(t *testing.T) {
	svc, st, notifier := newTestService(t)
	space := mustCreateSpace(t, st, "104", model.SpaceClassroom)
	ctx := context.Background()

	competing := pendingReservation(t, svc, space.ID, 11, 13)
	r := pendingReservation(t, svc, space.ID, 10, 12)

	rejected, err := svc.Reject(ctx, adminActor(), r.ID, "double booked")
	require.NoError(t, err)
	assert.Equal(t, model.StateRejected, rejected.State)

	// Rejection never cascades.
	got, err := svc.Get(ctx, competing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatePending, got.State)

	history, err := svc.History(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "double booked", history[1].Comment)

	require.Len(t, notifier.users, 1)
	assert.Contains(t, notifier.users[0].Message, "rejected")
}

func TestRejectRequiresPendingState(t *testing.T) {
	svc, st, _ := newTestService(t)
	space := mustCreateSpace(t, st, "104", model.SpaceClassroom)
	ctx := context.Background()

	r := pendingReservation(t, svc, space.ID, 10, 12)
	_, err := svc.Reject(ctx, adminActor(), r.ID, "")
	require.NoError(t, err)

	_, err = svc.Reject(ctx, adminActor(), r.ID, "")
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
}

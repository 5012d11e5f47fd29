package booking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"room-booking-backend/config"
	"room-booking-backend/internal/model"
	"room-booking-backend/internal/store"
)

// Each test gets its own named in-memory database so state never leaks
// between tests sharing the process.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Space{},
		&model.AvailabilityBlock{},
		&model.Reservation{},
		&model.ReservationStateLog{},
		&model.OpeningRecord{},
		&model.PushSubscription{},
	))
	return db
}

func testBookingConfig() *config.BookingConfig {
	loc := time.UTC
	return &config.BookingConfig{
		Timezone:            "UTC",
		SemesterStart:       "2025-08-11",
		SemesterEnd:         "2025-12-13",
		Location:            loc,
		SemesterStartDate:   time.Date(2025, 8, 11, 0, 0, 0, 0, loc),
		SemesterEndDate:     time.Date(2025, 12, 13, 0, 0, 0, 0, loc),
		OpeningWindowBefore: 20 * time.Minute,
		OpeningWindowAfter:  15 * time.Minute,
		AttendanceGrace:     30 * time.Minute,
		ClosureGrace:        15 * time.Minute,
	}
}

type userNotice struct {
	UserID  uuid.UUID
	Message string
}

type roleNotice struct {
	Role    string
	Message string
}

type fakeNotifier struct {
	mu    sync.Mutex
	users []userNotice
	roles []roleNotice
}

func (f *fakeNotifier) NotifyUser(userID uuid.UUID, message string, meta map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userNotice{UserID: userID, Message: message})
}

func (f *fakeNotifier) NotifyRole(role string, message string, meta map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = append(f.roles, roleNotice{Role: role, Message: message})
}

func newTestService(t *testing.T) (*Service, store.Store, *fakeNotifier) {
	t.Helper()
	st := store.NewGormStore(newTestDB(t))
	notifier := &fakeNotifier{}
	svc := NewService(st, testBookingConfig(), notifier)
	return svc, st, notifier
}

func mustCreateSpace(t *testing.T, st store.Store, code string, category model.SpaceCategory) *model.Space {
	t.Helper()
	space := &model.Space{Code: code, Name: "Room " + code, Category: category, Active: true}
	require.NoError(t, st.CreateSpace(context.Background(), space))
	return space
}

func requesterActor() Actor {
	return Actor{ID: uuid.New(), Name: "requester", Authenticated: true}
}

func adminActor() Actor {
	return Actor{ID: uuid.New(), Name: "admin", Authenticated: true, Role: RoleAdmin}
}

func frontDeskActor() Actor {
	return Actor{ID: uuid.New(), Name: "front desk", Authenticated: true, Role: RoleFrontDesk}
}

func conciergeActor() Actor {
	return Actor{ID: uuid.New(), Name: "concierge", Authenticated: true, Role: RoleConcierge}
}

// at builds a semester-local timestamp for the fixtures: day is an offset in
// days from the semester start (a Monday).
func at(day, hour, minute int) time.Time {
	base := time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

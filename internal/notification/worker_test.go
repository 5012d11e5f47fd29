package notification

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"room-booking-backend/internal/model"
)

type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.PushSubscription{}))
	t.Cleanup(func() {
		db.Exec("DELETE FROM push_subscriptions")
	})
	return db
}

func okResponse() *http.Response {
	return &http.Response{
		StatusCode: http.StatusCreated,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}
}

func TestWorkerPoolDispatchNonBlocking(t *testing.T) {
	db := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{})

	// No workers running: fill the queue, the surplus must be dropped
	// without blocking.
	for i := 0; i < cap(wp.jobs)+5; i++ {
		wp.Dispatch(Notice{Role: "admin", Message: "msg"})
	}
	assert.Equal(t, cap(wp.jobs), len(wp.Jobs()))
}

func TestWorkerPoolNotifyUser(t *testing.T) {
	db := newTestDB(t)
	userID := uuid.New()
	require.NoError(t, db.Create(&model.PushSubscription{
		Endpoint: "https://push.example.com/user",
		P256DH:   "key",
		Auth:     "auth",
		UserID:   userID,
		Role:     "requester",
	}).Error)
	// A subscription for someone else must not be hit.
	require.NoError(t, db.Create(&model.PushSubscription{
		Endpoint: "https://push.example.com/other",
		P256DH:   "key",
		Auth:     "auth",
		UserID:   uuid.New(),
		Role:     "requester",
	}).Error)

	wp := NewWorkerPool(1, db, &webpush.Options{})
	var wg sync.WaitGroup
	wg.Add(1)
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			assert.Equal(t, "https://push.example.com/user", sub.Endpoint)
			assert.Contains(t, string(payload), "your room is ready")
			wg.Done()
			return okResponse(), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.NotifyUser(userID, "your room is ready", map[string]any{"space": "104"})
	wg.Wait()
}

func TestWorkerPoolNotifyRoleFansOut(t *testing.T) {
	db := newTestDB(t)
	for _, endpoint := range []string{"https://push.example.com/a", "https://push.example.com/b"} {
		require.NoError(t, db.Create(&model.PushSubscription{
			Endpoint: endpoint,
			P256DH:   "key",
			Auth:     "auth",
			UserID:   uuid.New(),
			Role:     "admin",
		}).Error)
	}

	wp := NewWorkerPool(1, db, &webpush.Options{})
	var wg sync.WaitGroup
	wg.Add(2)
	var mu sync.Mutex
	seen := map[string]bool{}
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			mu.Lock()
			seen[sub.Endpoint] = true
			mu.Unlock()
			wg.Done()
			return okResponse(), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.NotifyRole("admin", "instructor absence recorded", nil)
	wg.Wait()
	assert.Len(t, seen, 2)
}

func TestWorkerPoolDeletesExpiredSubscription(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&model.PushSubscription{
		Endpoint: "https://push.example.com/expired",
		P256DH:   "key",
		Auth:     "auth",
		UserID:   uuid.New(),
		Role:     "admin",
	}).Error)

	wp := NewWorkerPool(1, db, &webpush.Options{})
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusGone,
				Body:       io.NopCloser(bytes.NewBufferString("")),
			}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.NotifyRole("admin", "stale", nil)

	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&model.PushSubscription{}).Count(&count)
		return count == 0
	}, time.Second, 10*time.Millisecond)
}

// Package notification delivers web push notifications to booking
// participants through a fixed-size worker pool.
package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"room-booking-backend/internal/model"
)

// Sender is the outbound web push transport, mockable in tests.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender sends through the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Notice is one queued notification. Exactly one of UserID and Role is set:
// a user notice goes to that user's subscriptions, a role notice fans out to
// every subscription registered under the role.
type Notice struct {
	UserID  *uuid.UUID
	Role    string
	Message string
	Meta    map[string]any
}

// WorkerPool delivers notices in the background. Dispatch never blocks; when
// the queue is full the notice is dropped with a warning.
type WorkerPool struct {
	size    int
	jobs    chan Notice
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a pool of the given size with a queue of 4x capacity.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Notice, size*4),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Debug().Int("worker", id).Msg("notification worker started")
	for {
		select {
		case notice := <-wp.jobs:
			wp.deliver(ctx, notice)
		case <-ctx.Done():
			log.Debug().Int("worker", id).Msg("notification worker shutting down")
			return
		}
	}
}

// Dispatch queues a notice without blocking the caller.
func (wp *WorkerPool) Dispatch(notice Notice) {
	select {
	case wp.jobs <- notice:
	default:
		log.Warn().Str("message", notice.Message).Msg("notification queue full, dropping notice")
	}
}

// NotifyUser queues a notice for a single user.
func (wp *WorkerPool) NotifyUser(userID uuid.UUID, message string, meta map[string]any) {
	wp.Dispatch(Notice{UserID: &userID, Message: message, Meta: meta})
}

// NotifyRole queues a notice fanned out to every subscription under the role.
func (wp *WorkerPool) NotifyRole(role string, message string, meta map[string]any) {
	wp.Dispatch(Notice{Role: role, Message: message, Meta: meta})
}

// Jobs exposes the queue for tests.
func (wp *WorkerPool) Jobs() chan Notice {
	return wp.jobs
}

func (wp *WorkerPool) deliver(ctx context.Context, notice Notice) {
	q := wp.db.WithContext(ctx)
	switch {
	case notice.UserID != nil:
		q = q.Where("user_id = ?", *notice.UserID)
	case notice.Role != "":
		q = q.Where("role = ?", notice.Role)
	default:
		log.Warn().Msg("notice without a target, dropping")
		return
	}

	var subscriptions []model.PushSubscription
	if err := q.Find(&subscriptions).Error; err != nil {
		log.Error().Err(err).Msg("fetching push subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"message": notice.Message,
		"meta":    notice.Meta,
	})
	if err != nil {
		log.Error().Err(err).Msg("encoding notification payload")
		return
	}

	for _, sub := range subscriptions {
		wp.send(ctx, sub, payload)
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("sending notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired, deleting")
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("deleting expired subscription")
		}
	}
}

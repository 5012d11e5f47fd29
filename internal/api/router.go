package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"room-booking-backend/config"
	"room-booking-backend/internal/booking"
	"room-booking-backend/internal/mw"
	"room-booking-backend/internal/store"
)

// NewRouter creates and configures the Gin router.
func NewRouter(cfg *config.Config, s store.Store, svc *booking.Service, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()
	handler := NewHandler(s, svc, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	caching := mw.Cache(cache.New(cacheTTL, 2*cacheTTL), cacheTTL)
	auth := mw.Auth(cfg.Auth.JWTSecret)

	api := r.Group("/api")
	api.Use(rateLimiter, auth)
	{
		// Space catalog; the reads are public and cacheable.
		api.GET("/spaces", caching, handler.GetSpaces)
		api.GET("/spaces/:id", caching, handler.GetSpace)
		api.GET("/spaces/:id/blocks", caching, handler.GetSpaceBlocks)
		api.POST("/spaces", mw.RequireAuth(), handler.CreateSpace)

		// Reservations and the approval state machine.
		api.POST("/reservations", mw.RequireAuth(), handler.CreateReservation)
		api.GET("/reservations", handler.ListReservations)
		api.GET("/reservations/:id", handler.GetReservation)
		api.DELETE("/reservations/:id", mw.RequireAuth(), handler.DeleteReservation)
		api.GET("/reservations/:id/history", handler.GetReservationHistory)
		api.POST("/reservations/:id/approve", mw.RequireAuth(), handler.ApproveReservation)
		api.POST("/reservations/:id/reject", mw.RequireAuth(), handler.RejectReservation)

		// Per-occurrence opening lifecycle.
		api.GET("/openings", handler.GetOpenings)
		api.POST("/reservations/:id/register-opening", mw.RequireAuth(), handler.RegisterOpening)
		api.POST("/reservations/:id/register-attendance", mw.RequireAuth(), handler.RegisterAttendance)
		api.POST("/reservations/:id/register-closure", mw.RequireAuth(), handler.RegisterClosure)

		// Web push subscriptions.
		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}

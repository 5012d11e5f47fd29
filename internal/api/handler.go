// Package api exposes the booking service over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"room-booking-backend/internal/booking"
	"room-booking-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	svc     *booking.Service
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, svc *booking.Service, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		svc:     svc,
		webpush: webpushOptions,
	}
}

// fail writes an error response with the status the error kind maps to.
// Unclassified errors become an opaque 500.
func fail(c *gin.Context, err error) {
	status := booking.StatusCode(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// pathID parses the :id path parameter, answering 404 on garbage so that
// malformed ids and missing rows are indistinguishable.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return uuid.Nil, false
	}
	return id, true
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

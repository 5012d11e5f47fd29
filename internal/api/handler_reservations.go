package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"room-booking-backend/internal/booking"
	"room-booking-backend/internal/model"
	"room-booking-backend/internal/mw"
	"room-booking-backend/internal/store"
)

type createReservationRequest struct {
	SpaceID       uuid.UUID      `json:"space_id" binding:"required"`
	StartsAt      time.Time      `json:"starts_at" binding:"required"`
	EndsAt        time.Time      `json:"ends_at" binding:"required"`
	Reason        string         `json:"reason"`
	AttendeeCount *int           `json:"attendee_count"`
	RequiresKeys  bool           `json:"requires_keys"`
	Recurring     bool           `json:"recurring"`
	Weeks         int            `json:"weeks"`
	RRule         string         `json:"rrule"`
	Metadata      map[string]any `json:"metadata"`
}

// CreateReservation handles POST /api/reservations. Recurring requests come
// back as the full expanded series.
func (h *Handler) CreateReservation(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.svc.Create(c.Request.Context(), mw.ActorFrom(c), booking.CreateReservation{
		SpaceID:       req.SpaceID,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
		Reason:        req.Reason,
		AttendeeCount: req.AttendeeCount,
		RequiresKeys:  req.RequiresKeys,
		Recurring:     req.Recurring,
		Weeks:         req.Weeks,
		RRule:         req.RRule,
		Metadata:      req.Metadata,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListReservations handles GET /api/reservations with optional space_id,
// state, from and to filters.
func (h *Handler) ListReservations(c *gin.Context) {
	var f store.ReservationFilter
	if raw := c.Query("space_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid space_id"})
			return
		}
		f.SpaceID = &id
	}
	if raw := c.Query("state"); raw != "" {
		state := model.ReservationState(raw)
		f.State = &state
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp"})
			return
		}
		f.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp"})
			return
		}
		f.To = &t
	}

	reservations, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reservations)
}

// GetReservation handles GET /api/reservations/:id.
func (h *Handler) GetReservation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// DeleteReservation handles DELETE /api/reservations/:id.
func (h *Handler) DeleteReservation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), mw.ActorFrom(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetReservationHistory handles GET /api/reservations/:id/history.
func (h *Handler) GetReservationHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entries, err := h.svc.History(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

type decisionRequest struct {
	Comment string `json:"comment"`
}

// ApproveReservation handles POST /api/reservations/:id/approve. The response
// reports how many overlapping pending requests were auto-rejected.
func (h *Handler) ApproveReservation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	approved, autoRejected, err := h.svc.Approve(c.Request.Context(), mw.ActorFrom(c), id, req.Comment)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reservation":   approved,
		"auto_rejected": autoRejected,
	})
}

// RejectReservation handles POST /api/reservations/:id/reject.
func (h *Handler) RejectReservation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rejected, err := h.svc.Reject(c.Request.Context(), mw.ActorFrom(c), id, req.Comment)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rejected)
}

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"room-booking-backend/internal/booking"
	"room-booking-backend/internal/mw"
)

// GetOpenings handles GET /api/openings?date=YYYY-MM-DD. It materializes the
// institutional schedule for the date and returns every approved reservation
// of the day with its opening record.
func (h *Handler) GetOpenings(c *gin.Context) {
	raw := c.Query("date")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	views, err := h.svc.OpeningsForDate(c.Request.Context(), date)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

type registerOpeningRequest struct {
	At       *time.Time     `json:"at"`
	Notes    string         `json:"notes"`
	Metadata map[string]any `json:"metadata"`
}

// RegisterOpening handles POST /api/reservations/:id/register-opening.
func (h *Handler) RegisterOpening(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req registerOpeningRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.svc.RegisterOpening(c.Request.Context(), mw.ActorFrom(c), id, booking.OpeningInput{
		At:       req.At,
		Notes:    req.Notes,
		Metadata: req.Metadata,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

type registerAttendanceRequest struct {
	Status    string     `json:"status" binding:"required"`
	ArrivalAt *time.Time `json:"arrival_at"`
	Notes     string     `json:"notes"`
}

// RegisterAttendance handles POST /api/reservations/:id/register-attendance.
func (h *Handler) RegisterAttendance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req registerAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.svc.RegisterAttendance(c.Request.Context(), mw.ActorFrom(c), id, booking.AttendanceInput{
		Status:    req.Status,
		ArrivalAt: req.ArrivalAt,
		Notes:     req.Notes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

type registerClosureRequest struct {
	Reason string     `json:"reason" binding:"required"`
	Notes  string     `json:"notes"`
	At     *time.Time `json:"at"`
}

// RegisterClosure handles POST /api/reservations/:id/register-closure.
func (h *Handler) RegisterClosure(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req registerClosureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.svc.RegisterClosure(c.Request.Context(), mw.ActorFrom(c), id, booking.ClosureInput{
		Reason: req.Reason,
		Notes:  req.Notes,
		At:     req.At,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

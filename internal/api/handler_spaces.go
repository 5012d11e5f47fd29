package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"room-booking-backend/internal/booking"
	"room-booking-backend/internal/model"
	"room-booking-backend/internal/mw"
	"room-booking-backend/internal/store"
)

// GetSpaces handles GET /api/spaces. Inactive spaces are included only for
// ?include_inactive=true.
func (h *Handler) GetSpaces(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"
	spaces, err := h.store.ListSpaces(c.Request.Context(), includeInactive)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, spaces)
}

// GetSpace handles GET /api/spaces/:id.
func (h *Handler) GetSpace(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	space, err := h.store.Space(c.Request.Context(), id)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "space not found"})
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, space)
}

type createSpaceRequest struct {
	Code        string              `json:"code" binding:"required"`
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	Category    model.SpaceCategory `json:"category"`
	Capacity    *int                `json:"capacity"`
	Location    string              `json:"location"`
	Resources   datatypes.JSON      `json:"resources"`
}

// CreateSpace handles POST /api/spaces. Admin only. The new space comes back
// with its baseline weekly availability already seeded.
func (h *Handler) CreateSpace(c *gin.Context) {
	actor := mw.ActorFrom(c)
	if role, ok := booking.ResolveRole(actor); !ok || role != booking.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "only admins can create spaces"})
		return
	}

	var req createSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Category == "" {
		req.Category = model.SpaceClassroom
	}

	space := model.Space{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Capacity:    req.Capacity,
		Location:    req.Location,
		Resources:   req.Resources,
		Active:      true,
	}
	if err := h.store.CreateSpace(c.Request.Context(), &space); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, space)
}

// GetSpaceBlocks handles GET /api/spaces/:id/blocks.
func (h *Handler) GetSpaceBlocks(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if _, err := h.store.Space(c.Request.Context(), id); err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "space not found"})
			return
		}
		fail(c, err)
		return
	}

	blocks, err := h.store.ListBlocks(c.Request.Context(), store.BlockFilter{SpaceID: &id})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, blocks)
}

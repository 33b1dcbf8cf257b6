package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-authgate/returnguard/internal/models"
	"github.com/go-authgate/returnguard/internal/services"

	"github.com/gin-gonic/gin"
)

// OriginHandler serves the allowlist admin API
type OriginHandler struct {
	originService *services.OriginService
}

func NewOriginHandler(svc *services.OriginService) *OriginHandler {
	return &OriginHandler{originService: svc}
}

type createOriginRequest struct {
	Origin      string `json:"origin"      binding:"required"`
	Description string `json:"description" binding:"max=500"`
}

// ListOrigins returns the static, registered and effective allowlists.
func (h *OriginHandler) ListOrigins(c *gin.Context) {
	registered, err := h.originService.ListRegistered(c)
	if err != nil {
		log.Printf("[Origins] Failed to list registered origins: %v", err)
		respondError(c, http.StatusInternalServerError,
			"server_error", "Failed to retrieve origins")
		return
	}

	// On a cache failure this is the static list, which is what the
	// sanitizer enforces at the moment.
	effective, _ := h.originService.AllowedOrigins(c)

	c.JSON(http.StatusOK, gin.H{
		"static":     h.originService.StaticOrigins(),
		"registered": registered,
		"effective":  effective,
	})
}

// CreateOrigin registers a new allowlisted origin.
func (h *OriginHandler) CreateOrigin(c *gin.Context) {
	var req createOriginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	created, err := h.originService.AddOrigin(
		c, req.Origin, req.Description, models.GetPrincipalFromContext(c),
	)
	switch {
	case errors.Is(err, services.ErrInvalidOrigin):
		respondError(c, http.StatusBadRequest, "invalid_origin", err.Error())
		return
	case errors.Is(err, services.ErrOriginExists):
		respondError(c, http.StatusConflict, "origin_exists", err.Error())
		return
	case err != nil:
		log.Printf("[Origins] Failed to add origin: %v", err)
		respondError(c, http.StatusInternalServerError,
			"server_error", "Failed to add origin")
		return
	}

	log.Printf("[Origins] Added %s", created.Origin)
	c.JSON(http.StatusCreated, created)
}

// DeleteOrigin removes a registered origin by ID.
func (h *OriginHandler) DeleteOrigin(c *gin.Context) {
	removed, err := h.originService.RemoveOrigin(
		c, c.Param("id"), models.GetPrincipalFromContext(c),
	)
	switch {
	case errors.Is(err, services.ErrOriginNotFound):
		respondError(c, http.StatusNotFound, "not_found", "Origin not found")
		return
	case err != nil:
		log.Printf("[Origins] Failed to remove origin: %v", err)
		respondError(c, http.StatusInternalServerError,
			"server_error", "Failed to remove origin")
		return
	}

	log.Printf("[Origins] Removed %s", removed.Origin)
	c.Status(http.StatusNoContent)
}

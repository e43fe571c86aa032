package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anaschota07-svg/newwebsite-sub001/internal/domain"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/registry"
	"github.com/anaschota07-svg/newwebsite-sub001/pkg/logger"
)

// LinkHandler handles HTTP requests for link management operations
type LinkHandler struct {
	registry registry.Registry
	logger   *logger.Logger
}

// NewLinkHandler creates a new link handler with dependencies
func NewLinkHandler(reg registry.Registry, logger *logger.Logger) *LinkHandler {
	return &LinkHandler{
		registry: reg,
		logger:   logger,
	}
}

// CreateLink handles POST /api/v1/links
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req domain.CreateLinkRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	clientIP := c.ClientIP()

	resp, err := h.registry.CreateLink(c.Request.Context(), &req, clientIP)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetLinkInfo handles GET /api/v1/links/:shortCode
func (h *LinkHandler) GetLinkInfo(c *gin.Context) {
	shortCode := c.Param("shortCode")

	if shortCode == "" {
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_short_code",
			Message: "Short code is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	link, err := h.registry.GetLinkInfo(c.Request.Context(), shortCode)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, link)
}

// DeactivateLink handles DELETE /api/v1/links/:shortCode
func (h *LinkHandler) DeactivateLink(c *gin.Context) {
	shortCode := c.Param("shortCode")

	if shortCode == "" {
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_short_code",
			Message: "Short code is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	if err := h.registry.DeactivateLink(c.Request.Context(), shortCode); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Link deactivated",
		"code":    shortCode,
	})
}

// GetStats handles GET /api/v1/links/:shortCode/stats
func (h *LinkHandler) GetStats(c *gin.Context) {
	shortCode := c.Param("shortCode")

	if shortCode == "" {
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_short_code",
			Message: "Short code is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	stats, err := h.registry.GetStats(c.Request.Context(), shortCode)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// handleError delegates to the shared error mapping
func (h *LinkHandler) handleError(c *gin.Context, err error) {
	respondError(c, h.logger, err)
}

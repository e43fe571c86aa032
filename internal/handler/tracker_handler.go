package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anaschota07-svg/newwebsite-sub001/internal/domain"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/registry"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/session"
	"github.com/anaschota07-svg/newwebsite-sub001/pkg/logger"
)

// TrackerHandler handles HTTP requests for visit resolution and session tracking
type TrackerHandler struct {
	registry registry.Registry
	sessions session.Engine
	logger   *logger.Logger
}

// NewTrackerHandler creates a new tracker handler with dependencies
func NewTrackerHandler(reg registry.Registry, sessions session.Engine, logger *logger.Logger) *TrackerHandler {
	return &TrackerHandler{
		registry: reg,
		sessions: sessions,
		logger:   logger,
	}
}

// Resolve handles GET /api/v1/resolve?code=<shortCode>
// Returns public link metadata; the target URL only for direct-mode links
func (h *TrackerHandler) Resolve(c *gin.Context) {
	shortCode := c.Query("code")

	if shortCode == "" {
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_short_code",
			Message: "Query parameter 'code' is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	link, err := h.registry.Resolve(c.Request.Context(), shortCode)
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp := domain.ResolveResponse{
		ShortCode:       link.ShortCode,
		DirectMode:      link.DirectMode,
		StepCount:       link.StepCount,
		PreviewDuration: link.PreviewDuration,
	}

	if link.DirectMode {
		resp.TargetURL = link.TargetURL

		// Direct links earn nothing and open no session; the click is
		// still counted here since no open call will follow.
		if err := h.registry.RecordClick(c.Request.Context(), link.ID); err != nil {
			h.logger.Warn("Click not recorded for direct link", "error", err, "short_code", shortCode)
		}
	}

	c.JSON(http.StatusOK, resp)
}

// OpenSession handles POST /api/v1/session/open
func (h *TrackerHandler) OpenSession(c *gin.Context) {
	var req domain.OpenSessionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	// Server-observed IP, never the client's claim
	clientIP := c.ClientIP()

	if req.UserAgent == "" {
		req.UserAgent = c.Request.UserAgent()
	}

	resp, err := h.sessions.Open(c.Request.Context(), &req, clientIP)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// AdvanceStep handles POST /api/v1/session/step
func (h *TrackerHandler) AdvanceStep(c *gin.Context) {
	var req domain.AdvanceStepRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	resp, err := h.sessions.AdvanceStep(c.Request.Context(), req.SessionToken, *req.StepIndex)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Heartbeat handles POST /api/v1/session/heartbeat
func (h *TrackerHandler) Heartbeat(c *gin.Context) {
	var req domain.HeartbeatRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	if err := h.sessions.Heartbeat(c.Request.Context(), req.SessionToken); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accepted": true})
}

// CompleteSession handles POST /api/v1/session/complete
func (h *TrackerHandler) CompleteSession(c *gin.Context) {
	var req domain.CompleteSessionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	resp, err := h.sessions.Complete(c.Request.Context(), req.SessionToken)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleError processes domain errors and returns appropriate HTTP responses
func (h *TrackerHandler) handleError(c *gin.Context, err error) {
	respondError(c, h.logger, err)
}

// respondError maps domain errors onto the HTTP error taxonomy shared by all
// handlers: client input errors and state conflicts are definitive rejections.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	var appErr *domain.AppError

	switch {
	case errors.As(err, &appErr):
		// Log internal errors but don't expose details to users
		if appErr.Internal {
			log.Error("Internal server error", "error", appErr.Err)
			c.JSON(appErr.StatusCode, domain.ErrorResponse{
				Error:   "internal_error",
				Message: "An internal error occurred",
				Code:    appErr.StatusCode,
			})
		} else {
			c.JSON(appErr.StatusCode, domain.ErrorResponse{
				Error:   "client_error",
				Message: appErr.Message,
				Code:    appErr.StatusCode,
			})
		}

	case errors.Is(err, domain.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, domain.ErrorResponse{
			Error:   "not_found",
			Message: "The requested link was not found",
			Code:    http.StatusNotFound,
		})

	case errors.Is(err, domain.ErrLinkExpired):
		c.JSON(http.StatusGone, domain.ErrorResponse{
			Error:   "expired",
			Message: "This link has expired and is no longer available",
			Code:    http.StatusGone,
		})

	case errors.Is(err, domain.ErrLinkInactive):
		c.JSON(http.StatusGone, domain.ErrorResponse{
			Error:   "inactive",
			Message: "This link has been deactivated",
			Code:    http.StatusGone,
		})

	case errors.Is(err, domain.ErrLinkUnavailable):
		c.JSON(http.StatusGone, domain.ErrorResponse{
			Error:   "link_unavailable",
			Message: "This link cannot accept sessions",
			Code:    http.StatusGone,
		})

	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, domain.ErrorResponse{
			Error:   "session_not_found",
			Message: "Unknown session token",
			Code:    http.StatusNotFound,
		})

	case errors.Is(err, domain.ErrSessionExpired):
		c.JSON(http.StatusGone, domain.ErrorResponse{
			Error:   "session_expired",
			Message: "This session has expired",
			Code:    http.StatusGone,
		})

	case errors.Is(err, domain.ErrSessionTerminal):
		c.JSON(http.StatusConflict, domain.ErrorResponse{
			Error:   "session_closed",
			Message: "This session no longer accepts changes",
			Code:    http.StatusConflict,
		})

	case errors.Is(err, domain.ErrStepOutOfOrder):
		c.JSON(http.StatusConflict, domain.ErrorResponse{
			Error:   "step_out_of_order",
			Message: "Steps must be completed in order without skipping",
			Code:    http.StatusConflict,
		})

	case errors.Is(err, domain.ErrDwellNotSatisfied):
		c.JSON(http.StatusTooEarly, domain.ErrorResponse{
			Error:   "dwell_not_satisfied",
			Message: "Minimum viewing time has not elapsed for this step",
			Code:    http.StatusTooEarly,
		})

	case errors.Is(err, domain.ErrSessionNotComplete):
		c.JSON(http.StatusConflict, domain.ErrorResponse{
			Error:   "session_not_complete",
			Message: "Not all required steps have been completed",
			Code:    http.StatusConflict,
		})

	case errors.Is(err, domain.ErrAlreadyCredited):
		c.JSON(http.StatusConflict, domain.ErrorResponse{
			Error:   "already_credited",
			Message: "Earnings were already credited for this device",
			Code:    http.StatusConflict,
		})

	case errors.Is(err, domain.ErrRateLimitExceeded):
		c.JSON(http.StatusTooManyRequests, domain.ErrorResponse{
			Error:   "rate_limit_exceeded",
			Message: "Too many requests, please try again later",
			Code:    http.StatusTooManyRequests,
		})

	default:
		log.Error("Unexpected error", "error", err)
		c.JSON(http.StatusInternalServerError, domain.ErrorResponse{
			Error:   "internal_error",
			Message: "An unexpected error occurred",
			Code:    http.StatusInternalServerError,
		})
	}
}

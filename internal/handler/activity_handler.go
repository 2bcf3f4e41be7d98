package handler

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"adeptify/internal/errors"
	"adeptify/internal/middleware"
	"adeptify/internal/model"
	"adeptify/internal/repository"
	"adeptify/internal/service"
)

// ActivityHandler exposes the audit trail to superadmins.
type ActivityHandler struct {
	recorder service.ActivityRecorder
}

// NewActivityHandler creates an activity handler.
func NewActivityHandler(recorder service.ActivityRecorder) *ActivityHandler {
	return &ActivityHandler{recorder: recorder}
}

// CleanupRequest represents a retention cleanup request.
type CleanupRequest struct {
	RetentionDays int `json:"retentionDays" validate:"required,min=1"`
}

// CleanupResponse reports how many entries a cleanup removed.
type CleanupResponse struct {
	Removed int64 `json:"removed"`
}

// ListLogs godoc
// @Summary List activity logs
// @Tags logs
// @Produce json
// @Security BearerAuth
// @Param userId query string false "Filter by user"
// @Param table query string false "Filter by table"
// @Param action query string false "Filter by action"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} Response{data=[]model.ActivityLog}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /logs [get]
func (h *ActivityHandler) ListLogs(c echo.Context) error {
	filter := repository.ActivityFilter{
		Table:  c.QueryParam("table"),
		Action: model.ActivityAction(c.QueryParam("action")),
	}
	if raw := c.QueryParam("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: invalid userId", errors.ErrValidation)
		}
		filter.UserID = &id
	}

	logs, err := h.recorder.ListRecent(c.Request().Context(), filter, queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Activity logs retrieved", logs)
}

// Cleanup godoc
// @Summary Delete activity logs past retention
// @Tags logs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CleanupRequest true "Retention in days"
// @Success 200 {object} Response{data=CleanupResponse}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /logs/cleanup [post]
func (h *ActivityHandler) Cleanup(c echo.Context) error {
	var req CleanupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	removed, err := h.recorder.Cleanup(c.Request().Context(), req.RetentionDays)
	if err != nil {
		return err
	}

	middleware.TagActivity(c, "activity_logs", "")
	return respond(c, http.StatusOK, "Activity logs cleaned up", CleanupResponse{Removed: removed})
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"adeptify/internal/errors"
	"adeptify/internal/middleware"
	"adeptify/internal/model"
	"adeptify/internal/repository"
	"adeptify/internal/service"
)

// UserHandler serves the tenant-scoped user routes.
type UserHandler struct {
	svc      service.UserService
	recorder service.ActivityRecorder
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService, recorder service.ActivityRecorder) *UserHandler {
	return &UserHandler{svc: svc, recorder: recorder}
}

// UpdateStatusRequest represents an account status change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE PENDING SUSPENDED"`
}

// GetUser godoc
// @Summary Get user by id
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} Response{data=UserData}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{userId} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := uuidParam(c, "userId")
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "User retrieved", UserData{User: user})
}

// GetUserActivity godoc
// @Summary Activity history of a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} Response{data=[]model.ActivityLog}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /users/{userId}/activity [get]
func (h *UserHandler) GetUserActivity(c echo.Context) error {
	id, err := uuidParam(c, "userId")
	if err != nil {
		return err
	}
	logs, err := h.recorder.ListRecent(c.Request().Context(), repository.ActivityFilter{UserID: &id},
		queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Activity retrieved", logs)
}

// ListCentreUsers godoc
// @Summary List users of a centre
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param centreId path string true "Centre ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} Response{data=service.UserPage}
// @Failure 403 {object} errors.ErrorResponse
// @Router /centres/{centreId}/users [get]
func (h *UserHandler) ListCentreUsers(c echo.Context) error {
	page, err := h.svc.ListByCentre(c.Request().Context(), c.Param("centreId"),
		queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Users retrieved", page)
}

// ListCursUsers godoc
// @Summary List users of a course
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param cursId path string true "Course ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} Response{data=service.UserPage}
// @Failure 403 {object} errors.ErrorResponse
// @Router /cursos/{cursId}/users [get]
func (h *UserHandler) ListCursUsers(c echo.Context) error {
	page, err := h.svc.ListByCurs(c.Request().Context(), c.Param("cursId"),
		queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Users retrieved", page)
}

// UpdateStatus godoc
// @Summary Change account status
// @Description Any status other than ACTIVE ends every session of the user.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Param request body UpdateStatusRequest true "New status"
// @Success 200 {object} Response{data=UserData}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{userId}/status [patch]
func (h *UserHandler) UpdateStatus(c echo.Context) error {
	actor, ok := middleware.IdentityFrom(c)
	if !ok {
		return errors.ErrUnauthenticated
	}
	id, err := uuidParam(c, "userId")
	if err != nil {
		return err
	}

	var req UpdateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.svc.UpdateStatus(c.Request().Context(), actor, id, model.UserStatus(req.Status))
	if err != nil {
		return err
	}

	middleware.TagActivity(c, "users", id.String())
	return respond(c, http.StatusOK, "Status updated", UserData{User: user})
}

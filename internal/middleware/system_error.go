package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "adeptify/internal/errors"
	"adeptify/internal/model"
	"adeptify/internal/service"
)

// SystemErrorRecorder returns an error handler hook that stores a SYSTEM_ERROR
// entry for every 5xx response. Anonymous requests are recorded without a user.
func SystemErrorRecorder(recorder service.ActivityRecorder, apiPrefix string) apperrors.ServerErrorHook {
	return func(c echo.Context, status int, err error) {
		req := c.Request()
		table, recordID := targetFromPath(req.URL.Path, apiPrefix)

		var userID *uuid.UUID
		centreID := ""
		if id, ok := IdentityFrom(c); ok {
			uid := id.ID
			userID = &uid
			centreID = id.CentreID
		}

		recorder.Record(service.NewActivity(model.ActionSystemError, table, recordID, userID, Meta(c),
			map[string]interface{}{
				"message":    err.Error(),
				"method":     req.Method,
				"path":       req.URL.Path,
				"statusCode": status,
				"requestId":  c.Response().Header().Get(echo.HeaderXRequestID),
			}).InCentre(centreID))
	}
}

package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"adeptify/internal/model"
	"adeptify/internal/service"
)

const redacted = "[REDACTED]"

// ActivityLogger records every successful mutating request made by an
// authenticated caller. Auth routes are skipped; their service records
// LOGIN, LOGOUT and similar entries itself.
func ActivityLogger(recorder service.ActivityRecorder, apiPrefix string) echo.MiddlewareFunc {
	authPrefix := strings.TrimRight(apiPrefix, "/") + "/auth/"

	return echomw.BodyDumpWithConfig(echomw.BodyDumpConfig{
		Skipper: func(c echo.Context) bool {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return true
			}
			return strings.HasPrefix(c.Request().URL.Path, authPrefix)
		},
		Handler: func(c echo.Context, reqBody, _ []byte) {
			id, ok := IdentityFrom(c)
			if !ok {
				return
			}
			status := c.Response().Status
			if status >= http.StatusBadRequest {
				return
			}

			req := c.Request()
			table, recordID := targetFromPath(req.URL.Path, apiPrefix)
			if tag, ok := c.Get(activityTagKey).(activityTag); ok {
				table, recordID = tag.table, tag.recordID
			}

			details := map[string]interface{}{
				"path":       req.URL.Path,
				"method":     req.Method,
				"statusCode": status,
			}
			if body := sanitizeBody(reqBody); body != nil {
				details["body"] = body
			}

			userID := id.ID
			recorder.Record(service.NewActivity(actionForMethod(req.Method), table, recordID, &userID, Meta(c), details).
				InCentre(id.CentreID))
		},
	})
}

// actionForMethod maps an HTTP method to the audit action it represents.
func actionForMethod(method string) model.ActivityAction {
	switch method {
	case http.MethodPost:
		return model.ActionCreate
	case http.MethodPut, http.MethodPatch:
		return model.ActionUpdate
	case http.MethodDelete:
		return model.ActionDelete
	default:
		return model.ActionUnknown
	}
}

// targetFromPath derives table and record id positionally from
// <prefix>/<table>/<id>. Listing suffixes are not record ids.
func targetFromPath(path, apiPrefix string) (table, recordID string) {
	rest := strings.TrimPrefix(path, strings.TrimRight(apiPrefix, "/"))
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	table = "unknown"
	if len(parts) > 0 && parts[0] != "" {
		table = parts[0]
	}
	if len(parts) > 1 && parts[1] != "search" && parts[1] != "stats" {
		recordID = parts[1]
	}
	return table, recordID
}

// sanitizeBody decodes a JSON body and masks credential fields.
// Non-JSON bodies are dropped.
func sanitizeBody(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return mask(v)
}

func mask(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			lk := strings.ToLower(k)
			if strings.Contains(lk, "password") || strings.Contains(lk, "token") {
				t[k] = redacted
				continue
			}
			t[k] = mask(val)
		}
		return t
	case []interface{}:
		for i := range t {
			t[i] = mask(t[i])
		}
		return t
	default:
		return v
	}
}

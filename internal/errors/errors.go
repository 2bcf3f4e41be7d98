package errors

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var (
	// ErrValidation is returned when a request is malformed or incomplete.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountNotActive is returned when the account exists but is not ACTIVE.
	ErrAccountNotActive = errors.New("account is not active")
	// ErrInvalidToken is returned when a token is malformed or its signature does not verify.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token verifies but its lifetime has lapsed.
	ErrExpiredToken = errors.New("token has expired")
	// ErrSessionExpired is returned when no live session backs the presented token.
	ErrSessionExpired = errors.New("session expired")
	// ErrUnauthenticated is returned when no usable credentials accompany the request.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the caller lacks the role or tenant scope.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict is returned when a unique attribute is already taken.
	ErrConflict = errors.New("resource already exists")
	// ErrWrongPassword is returned when the current password does not match on change.
	ErrWrongPassword = errors.New("current password is incorrect")
	// ErrTooManyAttempts is returned when login attempts for an email are throttled.
	ErrTooManyAttempts = errors.New("too many login attempts, try again later")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Error   string `json:"error,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Message: e.Message,
		Code:    e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return NewHTTPError(http.StatusBadRequest, verrs.Error(), "VALIDATION_ERROR")
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, ErrWrongPassword):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "WRONG_PASSWORD")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrAccountNotActive):
		return NewHTTPError(http.StatusUnauthorized, ErrAccountNotActive.Error(), "ACCOUNT_NOT_ACTIVE")
	case errors.Is(err, ErrInvalidToken):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidToken.Error(), "INVALID_TOKEN")
	case errors.Is(err, ErrExpiredToken):
		return NewHTTPError(http.StatusUnauthorized, ErrExpiredToken.Error(), "TOKEN_EXPIRED")
	case errors.Is(err, ErrSessionExpired):
		return NewHTTPError(http.StatusUnauthorized, ErrSessionExpired.Error(), "SESSION_EXPIRED")
	case errors.Is(err, ErrUnauthenticated):
		return NewHTTPError(http.StatusUnauthorized, ErrUnauthenticated.Error(), "UNAUTHENTICATED")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, ErrForbidden.Error(), "FORBIDDEN")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, ErrNotFound.Error(), "NOT_FOUND")
	case errors.Is(err, ErrConflict):
		return NewHTTPError(http.StatusConflict, err.Error(), "CONFLICT")
	case errors.Is(err, ErrTooManyAttempts):
		return NewHTTPError(http.StatusTooManyRequests, ErrTooManyAttempts.Error(), "TOO_MANY_ATTEMPTS")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

// ServerErrorHook observes failures answered with a 5xx status.
type ServerErrorHook func(c echo.Context, status int, err error)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler rendering every failure
// as an ErrorResponse. Outside production the underlying error text of
// server errors is included in the body. Hooks run for 5xx responses only.
func NewHTTPErrorHandler(logger *zap.Logger, production bool, hooks ...ServerErrorHook) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var resp ErrorResponse
		status := http.StatusInternalServerError

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			resp.Code = http.StatusText(he.Code)
			switch m := he.Message.(type) {
			case ErrorResponse:
				resp = m
			case string:
				resp.Message = m
			case error:
				resp.Message = m.Error()
			default:
				resp.Message = http.StatusText(he.Code)
			}
		} else {
			mapped := MapErrorToHTTP(err)
			status = mapped.StatusCode
			resp = mapped.ToErrorResponse()
		}
		resp.Success = false

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.Error(err),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			if !production {
				resp.Error = err.Error()
			}
			for _, hook := range hooks {
				hook(c, status, err)
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, resp)
		}
		if err != nil {
			logger.Warn("write error response", zap.Error(err))
		}
	}
}

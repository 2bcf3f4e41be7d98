package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports process and database health.
type HealthHandler struct {
	ping        func(ctx context.Context) error
	version     string
	environment string
}

// NewHealthHandler creates a health handler. ping checks the database.
func NewHealthHandler(ping func(ctx context.Context) error, version, environment string) *HealthHandler {
	return &HealthHandler{ping: ping, version: version, environment: environment}
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Version     string    `json:"version"`
	Environment string    `json:"environment"`
	Database    string    `json:"database"`
}

// Health godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	res := HealthResponse{
		Status:      "OK",
		Timestamp:   time.Now().UTC(),
		Version:     h.version,
		Environment: h.environment,
		Database:    "connected",
	}
	if err := h.ping(c.Request().Context()); err != nil {
		res.Status = "DEGRADED"
		res.Database = "disconnected"
		return c.JSON(http.StatusServiceUnavailable, res)
	}
	return c.JSON(http.StatusOK, res)
}

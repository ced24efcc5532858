// Package v1 provides the HTTP API for the workshop service.
package v1

import (
	"log/slog"
	"net/http"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/service"
	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	log     *slog.Logger
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{service: svc, log: log}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/runs", h.StartRun)
	e.GET("/v1/runs", h.ListRuns)
	e.GET("/v1/runs/:run_id", h.GetRun)
	e.POST("/v1/runs/:run_id/cancel", h.CancelRun)
	e.GET("/v1/runs/:run_id/messages", h.GetRunMessages)
	e.GET("/v1/runs/:run_id/events", h.GetRunEvents)
	e.GET("/v1/runs/:run_id/tools", h.GetRunToolCalls)

	e.GET("/v1/teams", h.ListTeams)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// ListTeams returns the team catalog.
// GET /v1/teams
func (h *Handler) ListTeams(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"teams": h.service.ListTeams(),
	})
}

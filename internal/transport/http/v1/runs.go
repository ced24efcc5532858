package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/domain"
	"github.com/domjanbaric/agnetic-finance-workshop/internal/service"
	"github.com/labstack/echo/v4"
)

// StartRun launches a team run and acknowledges it before any model call.
// POST /v1/runs
func (h *Handler) StartRun(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.StartRunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	resp, err := h.service.StartRun(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrTeamNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "team not found"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, resp)
}

// ListRuns returns recent runs, newest first.
// GET /v1/runs
func (h *Handler) ListRuns(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	runs, err := h.service.ListRuns(ctx, limit)
	if err != nil {
		h.log.Error("failed to list runs", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list runs"})
	}
	if runs == nil {
		runs = []domain.Run{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"runs": runs})
}

// GetRun returns one run.
// GET /v1/runs/:run_id
func (h *Handler) GetRun(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("run_id")

	run, err := h.service.GetRun(ctx, runID)
	if err != nil {
		h.log.Error("failed to get run", "run_id", runID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get run"})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	return c.JSON(http.StatusOK, run)
}

// CancelRun requests cancellation of a live run.
// POST /v1/runs/:run_id/cancel
func (h *Handler) CancelRun(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("run_id")

	if err := h.service.CancelRun(ctx, runID); err != nil {
		if errors.Is(err, service.ErrRunNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
		}
		h.log.Error("failed to cancel run", "run_id", runID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to cancel run"})
	}
	return c.JSON(http.StatusOK, map[string]string{"run_id": runID, "status": "cancelling"})
}

// GetRunMessages returns the persisted transcript of a run in seq order.
// GET /v1/runs/:run_id/messages
func (h *Handler) GetRunMessages(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("run_id")

	run, err := h.service.GetRun(ctx, runID)
	if err != nil {
		h.log.Error("failed to get run", "run_id", runID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get run"})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}

	messages, err := h.service.GetRunMessages(ctx, runID)
	if err != nil {
		h.log.Error("failed to get messages", "run_id", runID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get messages"})
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return c.JSON(http.StatusOK, domain.RunMessagesResponse{RunID: runID, Messages: messages})
}

// GetRunEvents returns trace events for a run.
// GET /v1/runs/:run_id/events
func (h *Handler) GetRunEvents(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("run_id")

	afterTs, _ := strconv.ParseInt(c.QueryParam("after_ts"), 10, 64)
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	run, err := h.service.GetRun(ctx, runID)
	if err != nil {
		h.log.Error("failed to get run", "run_id", runID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get run"})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}

	events, err := h.service.GetRunEvents(ctx, runID, afterTs, limit)
	if err != nil {
		h.log.Error("failed to get events", "run_id", runID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get events"})
	}
	if events == nil {
		events = []domain.Event{}
	}
	return c.JSON(http.StatusOK, domain.RunEventsResponse{RunID: runID, Events: events})
}

// GetRunToolCalls returns the tool calls made during a run.
// GET /v1/runs/:run_id/tools
func (h *Handler) GetRunToolCalls(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("run_id")

	run, err := h.service.GetRun(ctx, runID)
	if err != nil {
		h.log.Error("failed to get run", "run_id", runID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get run"})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}

	calls, err := h.service.GetRunToolCalls(ctx, runID)
	if err != nil {
		h.log.Error("failed to get tool calls", "run_id", runID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get tool calls"})
	}
	if calls == nil {
		calls = []domain.ToolCall{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"run_id": runID, "tool_calls": calls})
}

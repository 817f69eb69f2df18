package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

// DashboardHandler serves the per-user aggregates. Every response is
// wrapped as {"success": true, "data": ...}.
type DashboardHandler struct {
	dashboardService ports.DashboardService
	logger           *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService ports.DashboardService, logger *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

func ok[T any](c echo.Context, data T) error {
	return c.JSON(http.StatusOK, ports.DataResponse[T]{Success: true, Data: data})
}

// Stats godoc
// @Summary Headline task counters
// @Tags dashboard
// @Produce json
// @Success 200 {object} ports.DataResponse[ports.DashboardStats]
// @Security CookieAuth
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c echo.Context) error {
	stats, err := h.dashboardService.Stats(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return err
	}
	return ok(c, stats)
}

// TasksByStatus godoc
// @Summary Task counts per status with chart colors
// @Tags dashboard
// @Produce json
// @Success 200 {object} ports.DataResponse[[]ports.StatusBucket]
// @Security CookieAuth
// @Router /dashboard/tasks-by-status [get]
func (h *DashboardHandler) TasksByStatus(c echo.Context) error {
	buckets, err := h.dashboardService.TasksByStatus(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return err
	}
	return ok(c, buckets)
}

// TasksByMonth godoc
// @Summary Tasks created per month
// @Tags dashboard
// @Produce json
// @Param months query int false "1 to 12, default 6"
// @Success 200 {object} ports.DataResponse[[]ports.MonthBucket]
// @Security CookieAuth
// @Router /dashboard/tasks-by-month [get]
func (h *DashboardHandler) TasksByMonth(c echo.Context) error {
	months, err := queryInt(c, "months")
	if err != nil {
		return err
	}
	if months < 0 || months > 12 {
		return echo.NewHTTPError(http.StatusBadRequest, "months must be between 1 and 12")
	}

	buckets, err := h.dashboardService.TasksByMonth(c.Request().Context(), getUserIDFromContext(c), months)
	if err != nil {
		return err
	}
	return ok(c, buckets)
}

// RecentTasks godoc
// @Summary Most recently created tasks
// @Tags dashboard
// @Produce json
// @Param limit query int false "1 to 50, default 10"
// @Success 200 {object} ports.DataResponse[[]ports.TaskSummary]
// @Security CookieAuth
// @Router /dashboard/recent-tasks [get]
func (h *DashboardHandler) RecentTasks(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	if limit < 0 || limit > 50 {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 50")
	}

	tasks, err := h.dashboardService.RecentTasks(c.Request().Context(), getUserIDFromContext(c), limit)
	if err != nil {
		return err
	}
	return ok(c, tasks)
}

// TodayTasks godoc
// @Summary Tasks scheduled for today
// @Tags dashboard
// @Produce json
// @Success 200 {object} ports.DataResponse[[]ports.TaskSummary]
// @Security CookieAuth
// @Router /dashboard/today-tasks [get]
func (h *DashboardHandler) TodayTasks(c echo.Context) error {
	tasks, err := h.dashboardService.TodayTasks(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return err
	}
	return ok(c, tasks)
}

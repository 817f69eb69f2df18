package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService ports.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService ports.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// ListTasks godoc
// @Summary List active tasks
// @Description Ordered by scheduled datetime; the total is returned in X-Total-Count
// @Tags tasks
// @Produce json
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Param status query string false "Task status"
// @Param is_sent query bool false "Sent flag"
// @Param tags query string false "Comma-separated tags, all must match"
// @Param date_from query string false "Scheduled on or after"
// @Param date_to query string false "Scheduled on or before"
// @Success 200 {array} entities.Task
// @Security CookieAuth
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c echo.Context) error {
	filter, err := h.filter(c)
	if err != nil {
		return err
	}
	return h.list(c, filter)
}

// SearchTasks godoc
// @Summary Search tasks by title or description
// @Tags tasks
// @Produce json
// @Param q query string true "Search text"
// @Success 200 {array} entities.Task
// @Security CookieAuth
// @Router /tasks/search [get]
func (h *TaskHandler) SearchTasks(c echo.Context) error {
	q := queryString(c, "q")
	if q == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing q parameter")
	}

	filter, err := h.filter(c)
	if err != nil {
		return err
	}
	filter.Search = q
	return h.list(c, filter)
}

func (h *TaskHandler) filter(c echo.Context) (ports.TaskFilter, error) {
	var filter ports.TaskFilter

	limit, offset, err := pagination(c)
	if err != nil {
		return filter, err
	}

	filter.UserID = getUserIDFromContext(c)
	filter.Limit = limit
	filter.Offset = offset
	filter.Tags = queryString(c, "tags")

	if s := c.QueryParam("status"); s != "" {
		status := entities.TaskStatus(s)
		if !status.IsValid() {
			return filter, mapError(entities.ErrInvalidStatus)
		}
		filter.Status = &status
	}

	if filter.IsSent, err = queryBool(c, "is_sent"); err != nil {
		return filter, err
	}
	if filter.DateFrom, err = queryTime(c, "date_from"); err != nil {
		return filter, err
	}
	if filter.DateTo, err = queryTime(c, "date_to"); err != nil {
		return filter, err
	}

	return filter, nil
}

func (h *TaskHandler) list(c echo.Context, filter ports.TaskFilter) error {
	tasks, total, err := h.taskService.ListTasks(c.Request().Context(), filter)
	if err != nil {
		h.logger.Errorw("List tasks failed", "error", err, "user_id", filter.UserID)
		return err
	}

	setTotal(c, total)
	return c.JSON(http.StatusOK, tasks)
}

// CreateTask godoc
// @Summary Schedule a task
// @Description At least one active contact owned by the caller is required
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body ports.CreateTaskRequest true "Task data"
// @Success 201 {object} entities.Task
// @Failure 400 {object} ports.ErrorResponse
// @Failure 422 {object} ports.ErrorResponse
// @Security CookieAuth
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, task)
}

// GetTask godoc
// @Summary Get a task with its contacts
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} entities.Task
// @Failure 404 {object} ports.ErrorResponse
// @Security CookieAuth
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	task, err := h.taskService.GetTask(c.Request().Context(), getUserIDFromContext(c), id)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// UpdateTask godoc
// @Summary Update a task
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body ports.UpdateTaskRequest true "Changes"
// @Success 200 {object} entities.Task
// @Security CookieAuth
// @Router /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), getUserIDFromContext(c), id, req)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// UpdateTaskStatus godoc
// @Summary Change a task's status
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body ports.UpdateTaskStatusRequest true "New status"
// @Success 200 {object} entities.Task
// @Security CookieAuth
// @Router /tasks/{id}/status [put]
func (h *TaskHandler) UpdateTaskStatus(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateTaskStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTaskStatus(c.Request().Context(), getUserIDFromContext(c), id, req.Status)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask godoc
// @Summary Cancel a task
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 204
// @Security CookieAuth
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), getUserIDFromContext(c), id); err != nil {
		return mapError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// GetHistory godoc
// @Summary Task audit trail, newest first
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {array} entities.TaskHistory
// @Security CookieAuth
// @Router /tasks/{id}/history [get]
func (h *TaskHandler) GetHistory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "skip")
	if err != nil {
		return err
	}

	entries, err := h.taskService.GetHistory(c.Request().Context(), getUserIDFromContext(c), id, limit, offset)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, entries)
}

// AddContacts godoc
// @Summary Link contacts to a task
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body ports.TaskContactsRequest true "Contact IDs"
// @Success 200 {object} entities.Task
// @Security CookieAuth
// @Router /tasks/{id}/contacts [post]
func (h *TaskHandler) AddContacts(c echo.Context) error {
	return h.changeContacts(c, h.taskService.AddContacts)
}

// RemoveContacts godoc
// @Summary Unlink contacts from a task
// @Description Fails if no contact would remain
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body ports.TaskContactsRequest true "Contact IDs"
// @Success 200 {object} entities.Task
// @Security CookieAuth
// @Router /tasks/{id}/contacts [delete]
func (h *TaskHandler) RemoveContacts(c echo.Context) error {
	return h.changeContacts(c, h.taskService.RemoveContacts)
}

type contactsChange func(ctx context.Context, userID uuid.UUID, id int64, contactIDs []int64) (*entities.Task, error)

func (h *TaskHandler) changeContacts(c echo.Context, change contactsChange) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req ports.TaskContactsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := change(c.Request().Context(), getUserIDFromContext(c), id, req.ContactIDs)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, task)
}

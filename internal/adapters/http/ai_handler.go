package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

// AIHandler handles text interpretation requests
type AIHandler struct {
	aiService ports.AIService
	logger    *logger.Logger
}

// NewAIHandler creates a new AI request handler
func NewAIHandler(aiService ports.AIService, logger *logger.Logger) *AIHandler {
	return &AIHandler{
		aiService: aiService,
		logger:    logger,
	}
}

// Interpret godoc
// @Summary Interpret text or an audio transcript into draft tasks
// @Description The drafts are stored on the request; nothing is created until the client confirms
// @Tags ai
// @Accept json
// @Produce json
// @Param request body ports.InterpretRequest true "Input"
// @Success 201 {object} entities.AIRequest
// @Failure 422 {object} ports.ErrorResponse
// @Security CookieAuth
// @Router /ai/interpret [post]
func (h *AIHandler) Interpret(c echo.Context) error {
	var req ports.InterpretRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.aiService.Interpret(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, result)
}

// Confirm godoc
// @Summary Confirm a request with the ids of the tasks created from it
// @Tags ai
// @Accept json
// @Produce json
// @Param request_id path int true "Request ID"
// @Param request body ports.ConfirmAIRequest true "Created tasks"
// @Success 200 {object} entities.AIRequest
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security CookieAuth
// @Router /ai/confirm/{request_id} [post]
func (h *AIHandler) Confirm(c echo.Context) error {
	id, err := parseID(c, "request_id")
	if err != nil {
		return err
	}

	var req ports.ConfirmAIRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.aiService.Confirm(c.Request().Context(), getUserIDFromContext(c), id, req.TaskIDs)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, result)
}

// ListRequests godoc
// @Summary List AI requests, newest first
// @Tags ai
// @Produce json
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Param was_confirmed query bool false "Confirmation flag"
// @Success 200 {array} entities.AIRequest
// @Security CookieAuth
// @Router /ai/requests [get]
func (h *AIHandler) ListRequests(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	confirmed, err := queryBool(c, "was_confirmed")
	if err != nil {
		return err
	}

	filter := ports.AIRequestFilter{
		UserID:       getUserIDFromContext(c),
		WasConfirmed: confirmed,
		Limit:        limit,
		Offset:       offset,
	}

	requests, total, err := h.aiService.ListRequests(c.Request().Context(), filter)
	if err != nil {
		h.logger.Errorw("List ai requests failed", "error", err, "user_id", filter.UserID)
		return err
	}

	setTotal(c, total)
	return c.JSON(http.StatusOK, requests)
}

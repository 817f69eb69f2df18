package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

// UserHandler handles user-related requests
type UserHandler struct {
	userService ports.UserService
	logger      *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService ports.UserService, logger *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// CreateUser godoc
// @Summary Create a user with an explicit role
// @Tags users
// @Accept json
// @Produce json
// @Param request body ports.CreateUserRequest true "User data"
// @Success 201 {object} entities.User
// @Failure 409 {object} ports.ErrorResponse
// @Security CookieAuth
// @Router /users [post]
func (h *UserHandler) CreateUser(c echo.Context) error {
	var req ports.CreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userService.CreateUser(c.Request().Context(), req)
	if err != nil {
		h.logger.Warnw("Create user failed", "error", err)
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, user)
}

// GetCurrentUser godoc
// @Summary Current user profile
// @Tags users
// @Produce json
// @Success 200 {object} entities.User
// @Security CookieAuth
// @Router /users/me [get]
func (h *UserHandler) GetCurrentUser(c echo.Context) error {
	user, err := h.userService.GetUser(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, user)
}

// UpdateCurrentUser godoc
// @Summary Update the current user profile
// @Tags users
// @Accept json
// @Produce json
// @Param request body ports.UpdateUserRequest true "Profile changes"
// @Success 200 {object} entities.User
// @Failure 409 {object} ports.ErrorResponse
// @Security CookieAuth
// @Router /users/me [put]
func (h *UserHandler) UpdateCurrentUser(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userService.UpdateUser(c.Request().Context(), userID, req)
	if err != nil {
		h.logger.Warnw("Update user failed", "error", err, "user_id", userID)
		return mapError(err)
	}

	return c.JSON(http.StatusOK, user)
}

// GetUser godoc
// @Summary Get a user by ID
// @Description Users may read themselves; admins may read anyone
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} entities.User
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security CookieAuth
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	self := getUserIDFromContext(c)
	if userID != self && getUserRoleFromContext(c) != entities.UserRoleAdmin {
		return mapError(entities.ErrForbidden)
	}

	user, err := h.userService.GetUser(c.Request().Context(), userID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, user)
}

// DeleteUser godoc
// @Summary Deactivate a user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} ports.MessageResponse
// @Security CookieAuth
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	if err := h.userService.DeleteUser(c.Request().Context(), userID); err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "User deactivated"})
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Param is_active query bool false "Active flag"
// @Param q query string false "Search email or username"
// @Success 200 {object} ports.PaginatedResponse[entities.User]
// @Security CookieAuth
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}

	isActive, err := queryBool(c, "is_active")
	if err != nil {
		return err
	}

	filter := ports.UserFilter{
		IsActive: isActive,
		Search:   queryString(c, "q"),
		Limit:    limit,
		Offset:   offset,
	}

	users, total, err := h.userService.ListUsers(c.Request().Context(), filter)
	if err != nil {
		h.logger.Errorw("List users failed", "error", err)
		return err
	}

	return c.JSON(http.StatusOK, ports.PaginatedResponse[*entities.User]{
		Data:   users,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

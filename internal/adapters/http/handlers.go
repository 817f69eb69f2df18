package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/autotasks/internal/domain/entities"
)

// Context keys set by the auth middleware
const (
	ContextKeyUser      = "user"
	ContextKeyUserRole  = "user_role"
	ContextKeyUserEmail = "user_email"
)

// Cookie names carrying the session
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

const (
	// HeaderTotalCount carries the unpaginated match count on list responses
	HeaderTotalCount = "X-Total-Count"

	defaultPageLimit = 100
	maxPageLimit     = 1000
)

func getUserIDFromContext(c echo.Context) uuid.UUID {
	userIDStr, ok := c.Get(ContextKeyUser).(string)
	if !ok {
		return uuid.Nil
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil
	}

	return userID
}

func getUserRoleFromContext(c echo.Context) entities.UserRole {
	role, ok := c.Get(ContextKeyUserRole).(entities.UserRole)
	if !ok {
		return entities.UserRoleUser
	}
	return role
}

// pagination reads skip/limit query parameters
func pagination(c echo.Context) (limit, offset int, err error) {
	limit = defaultPageLimit

	if s := c.QueryParam("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 1 || limit > maxPageLimit {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid limit parameter")
		}
	}

	if s := c.QueryParam("skip"); s != "" {
		offset, err = strconv.Atoi(s)
		if err != nil || offset < 0 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid skip parameter")
		}
	}

	return limit, offset, nil
}

func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+strings.ReplaceAll(name, "_", " "))
	}
	return id, nil
}

func queryBool(c echo.Context, name string) (*bool, error) {
	s := c.QueryParam(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" parameter")
	}
	return &v, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	s := c.QueryParam(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" parameter")
	}
	return v, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates
func queryTime(c echo.Context, name string) (*time.Time, error) {
	s := c.QueryParam(name)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" parameter")
}

func queryString(c echo.Context, name string) *string {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return nil
	}
	return &s
}

func setTotal(c echo.Context, total int) {
	c.Response().Header().Set(HeaderTotalCount, strconv.Itoa(total))
}

// mapError converts domain errors to HTTP errors. Anything unrecognised is
// returned unchanged and rendered as a 500 by the server's error handler.
func mapError(err error) error {
	switch {
	case errors.Is(err, entities.ErrTaskNotFound),
		errors.Is(err, entities.ErrContactNotFound),
		errors.Is(err, entities.ErrUserNotFound),
		errors.Is(err, entities.ErrAIRequestNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)

	case errors.Is(err, entities.ErrEmailTaken),
		errors.Is(err, entities.ErrUsernameTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error()).SetInternal(err)

	case errors.Is(err, entities.ErrInvalidCredential),
		errors.Is(err, entities.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error()).SetInternal(err)

	case errors.Is(err, entities.ErrInactiveUser),
		errors.Is(err, entities.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error()).SetInternal(err)

	case errors.Is(err, entities.ErrNoContacts),
		errors.Is(err, entities.ErrInvalidContacts),
		errors.Is(err, entities.ErrScheduleInPast),
		errors.Is(err, entities.ErrInvalidTags),
		errors.Is(err, entities.ErrInvalidStatus),
		errors.Is(err, entities.ErrInvalidChannel),
		errors.Is(err, entities.ErrInvalidChannelVal),
		errors.Is(err, entities.ErrInvalidTasks),
		errors.Is(err, entities.ErrInvalidInputType),
		errors.Is(err, entities.ErrAlreadyConfirmed):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}

	return err
}

// bindAndValidate binds the request body into req and runs struct validation.
// Validation errors are returned as is so the error handler can list fields.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format").SetInternal(err)
	}
	return c.Validate(req)
}

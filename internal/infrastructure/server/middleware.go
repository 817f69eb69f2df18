package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	httpHandlers "github.com/taskmaster/autotasks/internal/adapters/http"
	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

// tokenFromRequest reads the access token from the session cookie, falling
// back to an Authorization: Bearer header.
func tokenFromRequest(c echo.Context) (string, error) {
	if cookie, err := c.Cookie(httpHandlers.AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader || tokenString == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
	}

	return tokenString, nil
}

// authMiddleware validates the session token
func (s *Server) authMiddleware(authService ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := tokenFromRequest(c)
			if err != nil {
				return err
			}

			claims, err := authService.ValidateToken(tokenString)
			if err != nil {
				s.metrics.authEvent("invalid_token")
				s.logger.LogSecurityEvent("invalid_token", "", c.RealIP(), map[string]interface{}{
					"error": err.Error(),
				})
				return echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
			}

			c.Set(httpHandlers.ContextKeyUser, claims.UserID)
			c.Set(httpHandlers.ContextKeyUserRole, claims.Role)
			c.Set(httpHandlers.ContextKeyUserEmail, claims.Email)

			return next(c)
		}
	}
}

// requireRole checks if user has required role
func (s *Server) requireRole(roles ...entities.UserRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRole, ok := c.Get(httpHandlers.ContextKeyUserRole).(entities.UserRole)
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, "Role information not found")
			}

			for _, requiredRole := range roles {
				if userRole == requiredRole {
					return next(c)
				}
			}

			userID, _ := c.Get(httpHandlers.ContextKeyUser).(string)
			s.metrics.authEvent("forbidden")
			s.logger.LogSecurityEvent("insufficient_permissions",
				userID,
				c.RealIP(),
				map[string]interface{}{
					"required_roles": roles,
					"user_role":      userRole,
					"endpoint":       c.Request().URL.Path,
				})

			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}
}

// customErrorHandler renders every error as
// {"success": false, "message": ..., "detail": ..., "details": ...}
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code, body := errorBody(err)

		if code >= http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		if c.Response().Committed {
			return
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			logger.Errorw("Error sending response", "error", err)
		}
	}
}

func errorBody(err error) (int, ports.ErrorResponse) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make([]ports.FieldError, 0, len(validationErrs))
		for _, fe := range validationErrs {
			fields = append(fields, ports.FieldError{
				Field:   fe.Field(),
				Message: fieldErrorMessage(fe),
				Type:    fe.Tag(),
			})
		}
		return http.StatusUnprocessableEntity, ports.ErrorResponse{
			Message: "Validation error",
			Detail:  fields,
			Details: map[string]interface{}{"errors": fields},
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := fmt.Sprint(he.Message)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		return he.Code, ports.ErrorResponse{Message: msg, Detail: msg}
	}

	return http.StatusInternalServerError, ports.ErrorResponse{
		Message: http.StatusText(http.StatusInternalServerError),
	}
}

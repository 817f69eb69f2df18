package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/autotasks/internal/infrastructure/config"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService ports.AuthService
	userService ports.UserService
	jwtConfig   config.JWTConfig
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService ports.AuthService, userService ports.UserService, jwtConfig config.JWTConfig, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		jwtConfig:   jwtConfig,
		logger:      logger,
	}
}

// RefreshTokenRequest is accepted when the refresh cookie is absent
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.RegisterRequest true "Registration data"
// @Success 201 {object} entities.User
// @Failure 409 {object} ports.ErrorResponse
// @Failure 422 {object} ports.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		h.logger.Warnw("Registration failed", "error", err, "username", req.Username)
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, user)
}

// Login godoc
// @Summary Log in with username or email
// @Description Sets http-only access_token and refresh_token cookies
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.LoginRequest true "Credentials"
// @Success 200 {object} ports.AuthResponse
// @Failure 401 {object} ports.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.LogSecurityEvent("login_failed", "", c.RealIP(), map[string]interface{}{
			"identifier": req.UsernameOrEmail,
			"error":      err.Error(),
		})
		return mapError(err)
	}

	h.setSessionCookies(c, response)
	return c.JSON(http.StatusOK, response)
}

// RefreshToken godoc
// @Summary Rotate the session tokens
// @Description Reads the refresh_token cookie, or the request body when the cookie is absent
// @Tags auth
// @Produce json
// @Success 200 {object} ports.AuthResponse
// @Failure 401 {object} ports.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	token := ""
	if cookie, err := c.Cookie(RefreshTokenCookie); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req RefreshTokenRequest
		if err := c.Bind(&req); err == nil {
			token = req.RefreshToken
		}
	}

	response, err := h.authService.RefreshToken(c.Request().Context(), token)
	if err != nil {
		h.logger.LogSecurityEvent("refresh_failed", "", c.RealIP(), map[string]interface{}{"error": err.Error()})
		h.clearSessionCookies(c)
		return mapError(err)
	}

	h.setSessionCookies(c, response)
	return c.JSON(http.StatusOK, response)
}

// Logout godoc
// @Summary Log out and revoke refresh tokens
// @Tags auth
// @Produce json
// @Success 200 {object} ports.MessageResponse
// @Security CookieAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	userID := getUserIDFromContext(c)

	if err := h.authService.Logout(c.Request().Context(), userID); err != nil {
		h.logger.Errorw("Logout failed", "error", err, "user_id", userID)
		return err
	}

	h.clearSessionCookies(c)
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Logged out successfully"})
}

// Me godoc
// @Summary Current session user
// @Tags auth
// @Produce json
// @Success 200 {object} entities.User
// @Failure 401 {object} ports.ErrorResponse
// @Security CookieAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.userService.GetUser(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) setSessionCookies(c echo.Context, resp *ports.AuthResponse) {
	c.SetCookie(h.cookie(AccessTokenCookie, resp.AccessToken, h.jwtConfig.ExpiresIn))
	c.SetCookie(h.cookie(RefreshTokenCookie, resp.RefreshToken, h.jwtConfig.RefreshExpiresIn))
}

func (h *AuthHandler) clearSessionCookies(c echo.Context) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		cookie := h.cookie(name, "", 0)
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		c.SetCookie(cookie)
	}
}

func (h *AuthHandler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.jwtConfig.CookieDomain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.jwtConfig.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}

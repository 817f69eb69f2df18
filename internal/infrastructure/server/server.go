package server

import (
	"context"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	httpHandlers "github.com/taskmaster/autotasks/internal/adapters/http"
	"github.com/taskmaster/autotasks/internal/adapters/repository"
	"github.com/taskmaster/autotasks/internal/application/services"
	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/config"
	"github.com/taskmaster/autotasks/internal/infrastructure/database"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

// Server represents the HTTP server
type Server struct {
	echo    *echo.Echo
	config  *config.Config
	logger  *logger.Logger
	db      *database.DB
	cache   ports.CacheRepository
	metrics *Metrics
}

type handlers struct {
	auth      *httpHandlers.AuthHandler
	user      *httpHandlers.UserHandler
	contact   *httpHandlers.ContactHandler
	task      *httpHandlers.TaskHandler
	dashboard *httpHandlers.DashboardHandler
	ai        *httpHandlers.AIHandler
}

// New creates a new server instance
func New(cfg *config.Config, db *database.DB, cache ports.CacheRepository, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	e.Validator = NewValidator()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB)
	authRepo := repository.NewAuthRepository(db.DB)
	contactRepo := repository.NewContactRepository(db.DB)
	taskRepo := repository.NewTaskRepository(db)
	historyRepo := repository.NewTaskHistoryRepository(db.DB)
	dashboardRepo := repository.NewDashboardRepository(db.DB)
	aiRepo := repository.NewAIRequestRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, authRepo, cfg.JWT, appLogger)
	userService := services.NewUserService(userRepo, appLogger)
	contactService := services.NewContactService(contactRepo, appLogger)
	taskService := services.NewTaskService(taskRepo, contactRepo, historyRepo, cache, appLogger)
	dashboardService := services.NewDashboardService(dashboardRepo, cache, cfg.Redis.DashboardTTL, appLogger)
	aiService := services.NewAIService(aiRepo, services.NewKeywordInterpreter(), cache, appLogger)

	h := handlers{
		auth:      httpHandlers.NewAuthHandler(authService, userService, cfg.JWT, appLogger),
		user:      httpHandlers.NewUserHandler(userService, appLogger),
		contact:   httpHandlers.NewContactHandler(contactService, appLogger),
		task:      httpHandlers.NewTaskHandler(taskService, appLogger),
		dashboard: httpHandlers.NewDashboardHandler(dashboardService, appLogger),
		ai:        httpHandlers.NewAIHandler(aiService, appLogger),
	}

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger.WithComponent("server"),
		db:     db,
		cache:  cache,
	}

	if cfg.Metrics.Enabled {
		server.metrics = NewMetrics()
	}

	server.setupMiddleware()
	server.setupRoutes(h, authService)

	if server.metrics != nil {
		server.setupMetrics()
	}

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
				"request_id", values.RequestID,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	// session cookies need AllowCredentials
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     s.config.Security.AllowedOrigins(),
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods:     []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		ExposeHeaders:    []string{httpHandlers.HeaderTotalCount},
		AllowCredentials: true,
	}))

	window := s.config.Security.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/ready"
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(float64(s.config.Security.RateLimitRequests) / window.Seconds()),
				Burst:     s.config.Security.RateLimitRequests,
				ExpiresIn: window,
			},
		),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "Rate limit identifier unavailable")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			s.metrics.blocked(c.Path())
			s.logger.LogSecurityEvent("rate_limited", "", identifier, map[string]interface{}{
				"path": c.Path(),
			})
			return echo.NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded")
		},
	}))

	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		Skipper: func(c echo.Context) bool {
			// swagger UI loads inline scripts
			return strings.HasPrefix(c.Path(), "/swagger")
		},
	}))

	s.echo.Use(middleware.RequestID())

	timeout := s.config.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout:      timeout,
		ErrorMessage: "Request timed out",
	}))

	if s.metrics != nil {
		s.echo.Use(s.metrics.Middleware())
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(h handlers, authService ports.AuthService) {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	auth := s.authMiddleware(authService)
	v1 := s.echo.Group("/api/v1")

	// Auth routes
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", h.auth.Register)
	authGroup.POST("/login", h.auth.Login)
	authGroup.POST("/refresh", h.auth.RefreshToken)
	authGroup.POST("/logout", h.auth.Logout, auth)
	authGroup.GET("/me", h.auth.Me, auth)

	// User routes
	userGroup := v1.Group("/users", auth)
	userGroup.GET("/me", h.user.GetCurrentUser)
	userGroup.PUT("/me", h.user.UpdateCurrentUser)
	userGroup.GET("", h.user.ListUsers, s.requireRole(entities.UserRoleAdmin))
	userGroup.POST("", h.user.CreateUser, s.requireRole(entities.UserRoleAdmin))
	userGroup.GET("/:id", h.user.GetUser)
	userGroup.DELETE("/:id", h.user.DeleteUser, s.requireRole(entities.UserRoleAdmin))

	// Task routes
	taskGroup := v1.Group("/tasks", auth)
	taskGroup.GET("", h.task.ListTasks)
	taskGroup.POST("", h.task.CreateTask)
	taskGroup.GET("/search", h.task.SearchTasks)
	taskGroup.GET("/:id", h.task.GetTask)
	taskGroup.PUT("/:id", h.task.UpdateTask)
	taskGroup.DELETE("/:id", h.task.DeleteTask)
	taskGroup.PUT("/:id/status", h.task.UpdateTaskStatus)
	taskGroup.GET("/:id/history", h.task.GetHistory)
	taskGroup.POST("/:id/contacts", h.task.AddContacts)
	taskGroup.DELETE("/:id/contacts", h.task.RemoveContacts)

	// Contact routes
	contactGroup := v1.Group("/contacts", auth)
	contactGroup.GET("", h.contact.ListContacts)
	contactGroup.POST("", h.contact.CreateContact)
	contactGroup.GET("/search", h.contact.SearchContacts)
	contactGroup.GET("/stats/count", h.contact.ContactStats)
	contactGroup.GET("/:id", h.contact.GetContact)
	contactGroup.PUT("/:id", h.contact.UpdateContact)
	contactGroup.DELETE("/:id", h.contact.DeleteContact)
	contactGroup.DELETE("/:id/permanent", h.contact.DeleteContactPermanent)

	// Dashboard routes
	dashboardGroup := v1.Group("/dashboard", auth)
	dashboardGroup.GET("/stats", h.dashboard.Stats)
	dashboardGroup.GET("/tasks-by-status", h.dashboard.TasksByStatus)
	dashboardGroup.GET("/tasks-by-month", h.dashboard.TasksByMonth)
	dashboardGroup.GET("/recent-tasks", h.dashboard.RecentTasks)
	dashboardGroup.GET("/today-tasks", h.dashboard.TodayTasks)

	// AI request routes
	aiGroup := v1.Group("/ai", auth)
	aiGroup.POST("/interpret", h.ai.Interpret)
	aiGroup.POST("/confirm/:request_id", h.ai.Confirm)
	aiGroup.GET("/requests", h.ai.ListRequests)
}

// setupMetrics exposes the Prometheus registry
func (s *Server) setupMetrics() {
	path := s.config.Metrics.Path
	if path == "" {
		path = "/metrics"
	}
	s.echo.GET(path, echo.WrapHandler(s.metrics.Handler()))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	ctx := c.Request().Context()
	status := "ok"
	checks := make(map[string]interface{})

	if err := s.db.HealthCheck(ctx); err != nil {
		status = "error"
		checks["database"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["database"] = map[string]interface{}{
			"status": "ok",
			"stats":  s.db.GetConnectionInfo(),
		}
	}

	if !s.config.Redis.Enabled {
		checks["cache"] = map[string]interface{}{"status": "disabled"}
	} else if err := s.cache.Ping(ctx); err != nil {
		// dashboard reads fall through to postgres
		if status == "ok" {
			status = "degraded"
		}
		checks["cache"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["cache"] = map[string]interface{}{"status": "ok"}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
			"go":  runtime.Version(),
		},
	}

	if status == "error" {
		return c.JSON(http.StatusServiceUnavailable, response)
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.db.HealthCheck(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "database_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)

	srv := &http.Server{
		Addr:         address,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}
	return s.echo.StartServer(srv)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	return s.echo.Shutdown(ctx)
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmaster/autotasks/internal/adapters/cache"
	"github.com/taskmaster/autotasks/internal/adapters/repository"
	"github.com/taskmaster/autotasks/internal/application/services"
	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/config"
	"github.com/taskmaster/autotasks/internal/infrastructure/database"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/infrastructure/server"
	"github.com/taskmaster/autotasks/internal/ports"
)

// Build information, set with -ldflags at release time
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

const shutdownTimeout = 15 * time.Second

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the AutoTasks API server",
		Long:  "Start the AutoTasks API server with all configured routes and middleware",
		Run: func(cmd *cobra.Command, args []string) {
			migrate, _ := cmd.Flags().GetBool("migrate")
			runServer(migrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		Run: func(cmd *cobra.Command, args []string) {
			withMigrator(func(m *database.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				fmt.Println("Migrations applied")
				return nil
			})
		},
	})

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Run: func(cmd *cobra.Command, args []string) {
			steps, _ := cmd.Flags().GetInt("steps")
			if steps < 1 {
				log.Fatal("--steps must be at least 1")
			}
			withMigrator(func(m *database.Migrator) error {
				if err := m.Down(steps); err != nil {
					return err
				}
				fmt.Printf("Rolled back %d migration(s)\n", steps)
				return nil
			})
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to roll back")
	migrateCmd.AddCommand(downCmd)

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			withMigrator(func(m *database.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Printf("Current migration version: %d\n", version)
				fmt.Printf("Dirty: %t\n", dirty)
				return nil
			})
		},
	})

	return migrateCmd
}

// NewUserCommand creates the user management command
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long:  "Create and manage users in the system",
	}

	createUserCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		Run: func(cmd *cobra.Command, args []string) {
			email, _ := cmd.Flags().GetString("email")
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")
			fullName, _ := cmd.Flags().GetString("full-name")

			if email == "" || password == "" {
				log.Fatal("Email and password are required")
			}
			if username == "" {
				username = strings.SplitN(email, "@", 2)[0]
			}

			req := ports.CreateUserRequest{
				Email:    email,
				Username: username,
				Password: password,
				Role:     entities.UserRole(role),
				IsActive: true,
			}
			if fullName != "" {
				req.FullName = &fullName
			}

			createUser(req)
		},
	}

	createUserCmd.Flags().String("email", "", "User email (required)")
	createUserCmd.Flags().String("username", "", "Username (defaults to the email local part)")
	createUserCmd.Flags().String("password", "", "User password (required)")
	createUserCmd.Flags().String("role", string(entities.UserRoleUser), "User role (admin, user)")
	createUserCmd.Flags().String("full-name", "", "User full name")

	userCmd.AddCommand(createUserCmd)
	return userCmd
}

// NewTokensCommand creates the refresh token maintenance command
func NewTokensCommand() *cobra.Command {
	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Refresh token maintenance",
	}

	tokensCmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired and revoked refresh tokens",
		Run: func(cmd *cobra.Command, args []string) {
			_, db := mustConnect()
			defer db.Close()

			removed, err := repository.NewAuthRepository(db.DB).CleanupExpiredTokens(context.Background())
			if err != nil {
				log.Fatalf("Cleanup failed: %v", err)
			}
			fmt.Printf("Removed %d refresh token(s)\n", removed)
		},
	})

	return tokensCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print AutoTasks version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("AutoTasks API %s\n", Version)
			fmt.Printf("Build Date: %s\n", BuildDate)
			fmt.Printf("Git Commit: %s\n", GitCommit)
		},
	}
}

func mustConnect() (*config.Config, *database.DB) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	return cfg, db
}

func withMigrator(fn func(m *database.Migrator) error) {
	cfg, db := mustConnect()

	m, err := database.NewMigrator(db, cfg.Database.MigrationsPath)
	if err != nil {
		db.Close()
		log.Fatalf("Failed to create migrator: %v", err)
	}
	defer m.Close()

	if err := fn(m); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}

func runServer(migrateFirst bool) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	db, err := database.New(cfg.Database)
	if err != nil {
		appLogger.Fatalw("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if migrateFirst {
		// the migrator owns its own connection so closing it leaves db open
		migrationDB, err := database.New(cfg.Database)
		if err != nil {
			appLogger.Fatalw("Failed to connect for migrations", "error", err)
		}
		m, err := database.NewMigrator(migrationDB, cfg.Database.MigrationsPath)
		if err != nil {
			appLogger.Fatalw("Failed to create migrator", "error", err)
		}
		if err := m.Up(); err != nil {
			appLogger.Fatalw("Migrations failed", "error", err)
		}
		_ = m.Close()
		appLogger.Infow("Migrations applied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dashboardCache := newCache(ctx, cfg, appLogger)

	srv, err := server.New(cfg, db, dashboardCache, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err)
	}

	appLogger.Infow("Starting AutoTasks API server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"version", Version,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalw("Server failed", "error", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Errorw("Graceful shutdown failed", "error", err)
		}
	}
}

// newCache connects to Redis when enabled; the dashboard runs uncached otherwise
func newCache(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) ports.CacheRepository {
	if !cfg.Redis.Enabled {
		return cache.Noop{}
	}

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		appLogger.Warnw("Redis unavailable, dashboard cache disabled", "error", err, "addr", cfg.Redis.GetAddr())
		return cache.Noop{}
	}
	return cache.NewRedisCache(client, "autotasks:")
}

func createUser(req ports.CreateUserRequest) {
	if err := server.NewValidator().Validate(&req); err != nil {
		log.Fatalf("Invalid user: %v", err)
	}

	_, db := mustConnect()
	defer db.Close()

	userService := services.NewUserService(repository.NewUserRepository(db.DB), logger.NewNop())

	user, err := userService.CreateUser(context.Background(), req)
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("User created successfully:\n")
	fmt.Printf("  ID: %s\n", user.ID)
	fmt.Printf("  Email: %s\n", user.Email)
	fmt.Printf("  Username: %s\n", user.Username)
	fmt.Printf("  Role: %s\n", user.Role)
}

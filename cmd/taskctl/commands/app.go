package commands

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/taskmaster/autotasks/internal/client/api"
	"github.com/taskmaster/autotasks/internal/client/config"
	"github.com/taskmaster/autotasks/internal/client/session"
	"github.com/taskmaster/autotasks/internal/client/store"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
)

var errNotLoggedIn = errors.New("not logged in, run `taskctl login` first")

// App wires the client, the stores and the persisted session for one run
type App struct {
	Config *config.Config
	Logger *logger.Logger
	Client *api.Client

	Auth      *store.AuthStore
	Tasks     *store.TaskStore
	Contacts  *store.ContactStore
	Dashboard *store.DashboardStore
	AI        *store.AIStore

	Out    io.Writer
	ErrOut io.Writer
}

// NewApp builds the stores around one API client and restores the session
func NewApp(cfg *config.Config, out, errOut io.Writer) (*App, error) {
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app := &App{Config: cfg, Logger: appLogger, Out: out, ErrOut: errOut}

	client, err := api.New(cfg.APIURL,
		api.WithTimeout(cfg.Timeout),
		api.WithRedirectCooldown(cfg.RedirectCooldown),
		api.WithLogger(appLogger),
		api.WithCookieObserver(app.saveCookies),
	)
	if err != nil {
		return nil, err
	}

	app.Client = client
	app.Auth = store.NewAuthStore(client, session.NewFileStore(cfg.SessionFile), appLogger)
	app.Tasks = store.NewTaskStore(client, appLogger)
	app.Contacts = store.NewContactStore(client, appLogger)
	app.Dashboard = store.NewDashboardStore(client, appLogger)
	app.AI = store.NewAIStore(client, appLogger)

	client.SetOnUnauthorized(app.redirectToLogin)

	if err := app.Auth.Restore(); err != nil {
		appLogger.Warnw("Ignoring unreadable session", "file", cfg.SessionFile, "error", err)
	}

	return app, nil
}

// Close flushes the logger
func (a *App) Close() {
	_ = a.Logger.Close()
}

func (a *App) requireAuth() error {
	if !a.Auth.IsAuthenticated() {
		return errNotLoggedIn
	}
	return nil
}

func (a *App) redirectToLogin() {
	a.Auth.Expire()
	fmt.Fprintln(a.ErrOut, "Session expired. Run `taskctl login` to sign in again.")
}

func (a *App) saveCookies(cookies []*http.Cookie) {
	if a.Auth != nil {
		a.Auth.SaveCookies(cookies)
	}
}

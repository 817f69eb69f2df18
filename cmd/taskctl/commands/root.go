package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmaster/autotasks/internal/client/config"
)

// cli carries the App from the root's pre-run hook to the subcommands
type cli struct {
	app        *App
	configFile string
	apiURL     string
}

// NewRootCommand builds the taskctl command tree
func NewRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Command line client for the AutoTasks API",
		Long:          `taskctl manages contacts and scheduled tasks on an AutoTasks server and shows the dashboard, kanban board and calendar in the terminal. It can also turn free text into draft tasks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "version", "help", "completion":
				return nil
			}
			return c.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				c.app.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default ~/.taskctl/config.yaml)")
	root.PersistentFlags().StringVar(&c.apiURL, "api-url", "", "API base URL, overrides TASKCTL_API_URL")

	root.AddCommand(c.loginCommand())
	root.AddCommand(c.registerCommand())
	root.AddCommand(c.logoutCommand())
	root.AddCommand(c.whoamiCommand())
	root.AddCommand(c.tasksCommand())
	root.AddCommand(c.contactsCommand())
	root.AddCommand(c.dashboardCommand())
	root.AddCommand(c.aiCommand())
	root.AddCommand(versionCommand())

	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if c.configFile != "" {
		cfg, err = config.LoadFile(c.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if c.apiURL != "" {
		cfg.APIURL = c.apiURL
	}

	c.app, err = NewApp(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return err
}

// authed wraps a RunE that needs a signed-in user
func (c *cli) authed(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := c.app.requireAuth(); err != nil {
			return err
		}
		return run(cmd, args)
	}
}

// Build information, set with -ldflags at release time
var (
	Version   = "dev"
	GitCommit = "none"
)

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskctl %s (%s)\n", Version, GitCommit)
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseWhen accepts RFC 3339 or local "YYYY-MM-DD HH:MM"
func parseWhen(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q, use YYYY-MM-DD HH:MM or RFC 3339", s)
}

func readSecret(flagValue, envKey, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(envKey); v != "" {
		return v, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("failed to read %s", strings.ToLower(strings.TrimSuffix(prompt, ": ")))
	}
	return line, nil
}

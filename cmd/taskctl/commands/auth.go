package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskmaster/autotasks/internal/ports"
)

func (c *cli) loginCommand() *cobra.Command {
	var identifier, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a username or email",
		RunE: func(cmd *cobra.Command, args []string) error {
			if identifier == "" {
				return fmt.Errorf("--user is required")
			}
			pw, err := readSecret(password, "TASKCTL_PASSWORD", "Password: ")
			if err != nil {
				return err
			}

			if err := c.app.Auth.Login(cmd.Context(), identifier, pw); err != nil {
				return fmt.Errorf("login failed: %s", c.app.Auth.Error())
			}
			user := c.app.Auth.User()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s>\n", user.Username, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&identifier, "user", "u", "", "username or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (or TASKCTL_PASSWORD)")
	return cmd
}

func (c *cli) registerCommand() *cobra.Command {
	var (
		req      ports.RegisterRequest
		fullName string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Email == "" || req.Username == "" {
				return fmt.Errorf("--email and --username are required")
			}
			pw, err := readSecret(req.Password, "TASKCTL_PASSWORD", "Password: ")
			if err != nil {
				return err
			}
			req.Password = pw
			if fullName != "" {
				req.FullName = &fullName
			}

			if err := c.app.Auth.Register(cmd.Context(), req); err != nil {
				return fmt.Errorf("registration failed: %s", c.app.Auth.Error())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s\n", c.app.Auth.User().Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Username, "username", "", "username, 3 to 50 characters")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "password, at least 8 characters (or TASKCTL_PASSWORD)")
	cmd.Flags().StringVar(&fullName, "full-name", "", "display name")
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Auth.Logout(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Server logout failed (%s), local session cleared\n", c.app.Auth.Error())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (c *cli) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user as the server sees it",
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			if err := c.app.Auth.CheckAuth(cmd.Context()); err != nil {
				return fmt.Errorf("%s", c.app.Auth.Error())
			}
			u := c.app.Auth.User()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", u.Username, u.Email)
			if u.FullName != nil {
				fmt.Fprintf(out, "Name: %s\n", *u.FullName)
			}
			fmt.Fprintf(out, "Role: %s\n", u.Role)
			return nil
		}),
	}
}

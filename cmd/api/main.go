package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskmaster/autotasks/cmd/api/commands"
	_ "github.com/taskmaster/autotasks/docs"
)

// @title AutoTasks API
// @version 1.0
// @description Scheduled contact tasks with WhatsApp, email and Telegram channels, plus dashboard aggregates.

// @contact.name AutoTasks Support
// @contact.url https://github.com/taskmaster/autotasks

// @license.name MIT

// @host localhost:8000
// @BasePath /api/v1

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name access_token

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	rootCmd := &cobra.Command{
		Use:   "autotasks",
		Short: "AutoTasks API Server",
		Long:  `AutoTasks schedules messages to contacts over WhatsApp, email and Telegram and tracks them on a dashboard, kanban board and calendar.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewTokensCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}

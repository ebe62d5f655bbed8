package main

import (
	"fmt"
	"os"

	"github.com/benvon/todomvc-api/cmd/configure/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "todomvc-configure",
		Short: "Configuration tool for the TodoMVC API",
		Long:  "CLI tool for migrating the database, managing CORS and rate limit settings, and inspecting todos",
	}

	rootCmd.AddCommand(commands.NewMigrateCmd())
	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewTodosCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

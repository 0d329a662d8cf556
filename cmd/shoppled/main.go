package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/shopple/internal/cli"
	"github.com/cloo-solutions/shopple/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "shoppled",
		Short:        "Shopple backend daemon",
		Long:         "Shopple backend for running the API server and its maintenance tasks",
		SilenceUsage: true,
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.PresenceCmd())
	rootCmd.AddCommand(admin.PricesCmd())
	rootCmd.AddCommand(admin.TokenCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package admin

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/shopple/internal/service"
)

func PresenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presence",
		Short: "Manage user presence",
		Long:  "Run presence maintenance against the document store",
	}

	cmd.AddCommand(PresenceCleanupCmd())

	return cmd
}

func PresenceCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Mark stale online users offline",
		Long:  "Run one stale presence sweep, the same sweep the server worker runs on its interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			outputFormat, _ := cmd.Flags().GetString("output")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := openRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			return runPresenceCleanup(ctx, cmd.OutOrStdout(), service.NewPresenceService(rt.store), outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runPresenceCleanup(ctx context.Context, out io.Writer, svc *service.PresenceService, outputFormat string) error {
	result, err := svc.Cleanup(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean up presence: %w", err)
	}

	if outputFormat == "json" {
		return writeJSON(out, result)
	}
	fmt.Fprintf(out, "Presence cleanup: %d online users checked, %d marked offline\n", result.Processed, result.Stale)
	return nil
}

package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/shopple/internal/service"
)

func PricesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Manage list item prices",
		Long:  "Fill missing list item prices from current supermarket prices",
	}

	cmd.AddCommand(PricesBackfillCmd())

	return cmd
}

func PricesBackfillCmd() *cobra.Command {
	var (
		listID string
		apply  bool
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Backfill missing item prices on a list",
		Long:  "Report, and with --apply write, the cheapest current price for list items that reference a product but have no price",
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

			return runPriceBackfill(ctx, cmd.OutOrStdout(), service.NewListService(rt.store), listID, apply, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&listID, "list", "l", "", "Shopping list ID")
	cmd.Flags().BoolVar(&apply, "apply", false, "Write the prices instead of reporting them")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("list")

	return cmd
}

// runPriceBackfill runs as an operator, so list membership is not checked.
func runPriceBackfill(ctx context.Context, out io.Writer, svc *service.ListService, listID string, apply bool, outputFormat string) error {
	result, err := svc.BackfillPrices(ctx, listID, "", apply)
	if err != nil {
		return fmt.Errorf("failed to backfill prices: %w", err)
	}

	if outputFormat == "json" {
		return writeJSON(out, result)
	}

	fmt.Fprintln(out, result.Message)
	for _, u := range result.Updates {
		fmt.Fprintf(out, "  %s: %s -> %.2f", u.ItemID, u.ProductID, u.Price)
		if u.SupermarketID != "" {
			fmt.Fprintf(out, " (%s)", u.SupermarketID)
		}
		fmt.Fprintln(out)
	}
	if result.DryRun && len(result.Updates) > 0 {
		fmt.Fprintln(out, "\nRe-run with --apply to write these prices.")
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

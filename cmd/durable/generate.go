package main

import (
	"github.com/spf13/cobra"
	"github.com/viant/durable/service/sales"
)

func (c *cli) generateCommand() *cobra.Command {
	defaults := sales.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write demo sales data to <url>/sales/<date>.csv",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			options := sales.Options{}
			baseURL, _ := cmd.Flags().GetString("url")
			if baseURL == "" {
				baseURL = c.config.Emulator.DataURL
			}
			options.Date, _ = cmd.Flags().GetString("date")
			options.Records, _ = cmd.Flags().GetInt("records")
			options.HighValue, _ = cmd.Flags().GetInt("high-value")
			options.Seed, _ = cmd.Flags().GetInt64("seed")
			records, err := sales.Generate(options)
			if err != nil {
				return err
			}
			location, err := sales.NewStore(baseURL, nil).PutSales(ctx, options.Date, records)
			if err != nil {
				return err
			}
			total, highValue := 0, 0
			for _, record := range records {
				total += record.Amount
				if record.Amount >= sales.HighValueThreshold {
					highValue++
				}
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"url":         location,
				"records":     len(records),
				"total_sales": total,
				"high_value":  highValue,
			})
		},
	}
	cmd.Flags().String("url", "", "base URL, defaults to the emulator data URL")
	cmd.Flags().String("date", defaults.Date, "sales date")
	cmd.Flags().Int("records", defaults.Records, "record count")
	cmd.Flags().Int("high-value", defaults.HighValue, "high value record count")
	cmd.Flags().Int64("seed", 0, "random seed, time based when zero")
	return cmd
}

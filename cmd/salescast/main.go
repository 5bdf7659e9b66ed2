// Command salescast runs the per-category sales forecasting pipeline:
// load monthly history from a warehouse table, fit a seasonal ARIMA model
// per category, and write the prediction table back.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/sartorproj/salescast/forecast"
	"github.com/sartorproj/salescast/logging"
	"github.com/sartorproj/salescast/warehouse"
)

var (
	dsn         string
	driver      string
	origin      string
	destination string
	horizon     int
	workers     int
	skipFailed  bool
	logLevel    string
	devLog      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "salescast",
		Short: "Per-category seasonal sales forecasting over a SQL warehouse",
	}

	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Warehouse connection string (falls back to SALESCAST_DSN)")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "postgres", "database/sql driver name")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&devLog, "dev-log", false, "Console log output instead of JSON")

	rootCmd.AddCommand(runCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load history, forecast every category, write predictions back",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = os.Getenv("SALESCAST_DSN")
			}
			if dsn == "" {
				return fmt.Errorf("no DSN: pass --dsn or set SALESCAST_DSN")
			}

			log, err := logging.New(logLevel, devLog)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := warehouse.Open(warehouse.Config{
				Driver:      driver,
				DSN:         dsn,
				Origin:      origin,
				Destination: destination,
			})
			if err != nil {
				return err
			}
			defer store.Close()

			points, err := store.LoadSales(ctx)
			if err != nil {
				return err
			}
			log.Infow("history loaded", "table", origin, "rows", len(points))

			cfg := forecast.DefaultConfig()
			cfg.Horizon = horizon
			cfg.Workers = workers
			cfg.SkipFailed = skipFailed

			table, err := forecast.NewRunner(cfg, log).Run(ctx, points)
			if err != nil {
				return err
			}
			for _, skip := range table.Skipped {
				log.Warnw("category skipped", "category", skip.Category, "reason", skip.Reason)
			}

			if err := store.WriteResults(ctx, table.Rows); err != nil {
				return err
			}
			log.Infow("predictions written",
				"table", destination,
				"rows", len(table.Rows),
				"skipped", len(table.Skipped),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&origin, "origin", "sales", "Origin table holding (sale_month, category, sales)")
	cmd.Flags().StringVar(&destination, "destination", "sales_predictions", "Destination table for prediction rows")
	cmd.Flags().IntVar(&horizon, "horizon", 24, "Held-out test window length in months")
	cmd.Flags().IntVar(&workers, "workers", 1, "Concurrent per-category fits")
	cmd.Flags().BoolVar(&skipFailed, "skip-failed", false, "Skip categories that are too short or fail to fit instead of aborting")

	return cmd
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dtek-shutdowns-monitor/internal/metrics"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Запустити фоновий монітор відключень",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		a, cfg, err := newApp(logger)
		if err != nil {
			return err
		}

		if cfg.MetricsAddr != "" {
			go func() {
				logger.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
				if err := metrics.Serve(cfg.MetricsAddr); err != nil {
					logger.Error().Err(err).Msg("metrics server stopped")
				}
			}()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info().Str("address", cfg.Address().String()).Msg("starting outage monitor")
		a.Run(ctx)
		logger.Info().Msg("monitor stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

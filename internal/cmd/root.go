package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"dtek-shutdowns-monitor/internal/app"
	"dtek-shutdowns-monitor/internal/config"
	"dtek-shutdowns-monitor/internal/models"
	"dtek-shutdowns-monitor/internal/notifier"
	"dtek-shutdowns-monitor/internal/scraper"
	"dtek-shutdowns-monitor/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "dtek-monitor",
	Short: "Монітор планових відключень електроенергії ДТЕК",
	Long:  `Відстежує графік планових відключень електроенергії для налаштованої адреси та сповіщає про наближення відключення і зміни графіка.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()
}

// newApp wires the pipeline from environment config. Shared by every
// subcommand that touches the cache.
func newApp(logger zerolog.Logger) (*app.App, config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, cfg, fmt.Errorf("configuration error: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, cfg, err
	}

	store, err := storage.NewStore(cfg.DataDir)
	if err != nil {
		return nil, cfg, err
	}
	settings, err := storage.NewSettingsStore(cfg.DataDir)
	if err != nil {
		return nil, cfg, err
	}

	eventLog, err := notifier.NewEventLog(cfg.EventLogPath)
	if err != nil {
		return nil, cfg, err
	}
	sinks := []notifier.Notifier{eventLog}
	if cfg.TelegramBotToken != "" {
		tg, err := notifier.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.Address())
		if err != nil {
			return nil, cfg, err
		}
		sinks = append(sinks, tg)
	}

	renderer := scraper.NewRenderer(cfg.SiteURL, cfg.Headless, logger)
	a := app.New(cfg, renderer, store, settings, notifier.Multi(sinks...), loc, logger)
	return a, cfg, nil
}

func kindLabel(kind models.OutageKind) string {
	switch kind {
	case models.OutageDefinite:
		return "✗"
	case models.OutageFirstHalf:
		return "⚡"
	case models.OutageSecondHalfPossible:
		return "⚡*"
	case models.OutagePossible:
		return "~"
	}
	return "?"
}

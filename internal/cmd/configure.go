package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"dtek-shutdowns-monitor/internal/config"
	"dtek-shutdowns-monitor/internal/storage"
)

var (
	configureEnabled  bool
	configureLead     int
	configureInterval int
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Налаштувати сповіщення про відключення",
	Long: `Зберігає налаштування моніторингу. Запущений монітор перечитує їх на
кожній ітерації, тому зміни діють без перезапуску.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		settings, err := storage.NewSettingsStore(cfg.DataDir)
		if err != nil {
			return err
		}

		current, err := settings.Load()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("enabled") {
			current.Enabled = configureEnabled
		}
		if cmd.Flags().Changed("lead") {
			current.NotificationLeadMinutes = configureLead
		}
		if cmd.Flags().Changed("interval") {
			current.CheckIntervalMinutes = configureInterval
		}

		if err := settings.Save(current); err != nil {
			return err
		}

		state := "вимкнено"
		if current.Enabled {
			state = "увімкнено"
		}
		fmt.Printf("Моніторинг: %s\n", state)
		fmt.Printf("Сповіщати за: %d хв до відключення\n", current.NotificationLeadMinutes)
		fmt.Printf("Інтервал перевірки: %d хв\n", current.CheckIntervalMinutes)
		return nil
	},
}

func init() {
	configureCmd.Flags().BoolVar(&configureEnabled, "enabled", false, "Увімкнути або вимкнути сповіщення")
	configureCmd.Flags().IntVar(&configureLead, "lead", 60, "За скільки хвилин до відключення сповіщати")
	configureCmd.Flags().IntVar(&configureInterval, "interval", 60, "Інтервал перевірки графіка в хвилинах")
	rootCmd.AddCommand(configureCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"dtek-shutdowns-monitor/internal/models"
)

var dayPossible bool

var dayCmd = &cobra.Command{
	Use:   "day <день тижня>",
	Short: "Показати відключення для дня тижня (Понеділок … Неділя)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dayOfWeek := args[0]
		if !models.IsDayLabel(dayOfWeek) {
			return fmt.Errorf("невідомий день тижня %q", dayOfWeek)
		}

		logger := newLogger()
		a, _, err := newApp(logger)
		if err != nil {
			return err
		}

		kind := models.ScheduleActual
		if dayPossible {
			kind = models.SchedulePossibleWeek
		}

		outages := a.OutagesOn(dayOfWeek, kind)
		if len(outages) == 0 {
			fmt.Printf("Відключень не знайдено: %s (%s)\n", dayOfWeek, kind)
			return nil
		}

		fmt.Printf("%s (%s):\n", dayOfWeek, kind)
		for _, iv := range outages {
			date := ""
			if iv.Date != "" {
				date = iv.Date + " "
			}
			fmt.Printf("  %s %s%02d:00-%02d:00\n", kindLabel(iv.OutageKind), date, iv.StartHour, iv.EndHour)
		}
		return nil
	},
}

func init() {
	dayCmd.Flags().BoolVarP(&dayPossible, "possible", "p", false, "Тижневий прогноз замість точного графіка")
	rootCmd.AddCommand(dayCmd)
}

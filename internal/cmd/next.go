package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Показати найближче наступне відключення",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		a, cfg, err := newApp(logger)
		if err != nil {
			return err
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		now := time.Now().In(loc)
		outage, ok := a.NextOutage(now)
		if !ok {
			fmt.Println("Наступних відключень у точному графіку не знайдено.")
			return nil
		}

		start, err := outage.StartTime(loc)
		if err != nil {
			return err
		}
		fmt.Printf("Наступне відключення: %s %s, %02d:00 (%s)\n",
			outage.Date, outage.DayOfWeek, outage.StartHour, kindLabel(outage.OutageKind))
		fmt.Printf("Початок через: %s\n", start.Sub(now).Round(time.Minute))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nextCmd)
}

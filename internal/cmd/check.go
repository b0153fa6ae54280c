package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dtek-shutdowns-monitor/internal/models"
)

var (
	checkForce    bool
	checkPossible bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Перевірити графік відключень для налаштованої адреси",
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

		result := a.CheckSchedule(context.Background(), time.Now().In(loc), checkForce)

		fmt.Printf("Адреса: %s\n", cfg.Address())
		fmt.Printf("Стан даних: %s\n", result.Status)
		if result.Warning != "" {
			fmt.Printf("Попередження: %s\n", result.Warning)
		}
		if result.Cache == nil {
			fmt.Println("Даних про відключення немає.")
			return nil
		}
		fmt.Printf("Оновлено: %s\n\n", result.Cache.LastUpdated.In(loc).Format("02.01.2006 15:04"))

		printActual(result.Cache)
		if checkPossible {
			printPossible(result.Cache)
		}
		return nil
	},
}

func printActual(cache *models.ScheduleCache) {
	fmt.Println("Точний графік (сьогодні/завтра):")
	episodes := models.Episodes(cache.ActualSchedules)
	if len(episodes) == 0 {
		fmt.Println("  відключень не заплановано")
		return
	}
	for _, ep := range episodes {
		ivs := models.EpisodeIntervals(cache.ActualSchedules, ep)
		marks := ""
		for _, iv := range ivs {
			marks += kindLabel(iv.OutageKind)
		}
		fmt.Printf("  %s  %02d:00-%02d:00  %s\n", ep.Date, ep.StartHour, ep.EndHour, marks)
	}
}

func printPossible(cache *models.ScheduleCache) {
	fmt.Println("\nПрогноз можливих відключень на тиждень:")
	byDay := make(map[string]int)
	for _, iv := range cache.PossibleSchedules {
		byDay[iv.DayOfWeek] += iv.EndHour - iv.StartHour
	}
	for _, day := range models.DaysOfWeek {
		if hours, ok := byDay[day]; ok {
			fmt.Printf("  %s: %d год\n", day, hours)
		}
	}
	if len(byDay) == 0 {
		fmt.Println("  прогнозу немає")
	}
}

func init() {
	checkCmd.Flags().BoolVarP(&checkForce, "force", "f", false, "Примусово оновити дані з сайту, ігноруючи кеш")
	checkCmd.Flags().BoolVarP(&checkPossible, "possible", "p", false, "Показати також тижневий прогноз")
	rootCmd.AddCommand(checkCmd)
}

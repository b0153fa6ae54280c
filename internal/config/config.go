package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"dtek-shutdowns-monitor/internal/models"
)

type Config struct {
	City             string
	Street           string
	House            string
	SiteURL          string
	DataDir          string
	EventLogPath     string
	TelegramBotToken string
	TelegramChatID   int64
	MetricsAddr      string
	TimeLocation     string
	Headless         bool
	RenderTimeout    time.Duration
}

func Load() Config {
	v := viper.New()

	v.SetDefault("SITE_URL", "https://www.dtek-dnem.com.ua/ua/shutdowns")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("EVENT_LOG_PATH", "data/outage_events.log")
	v.SetDefault("TIME_LOCATION", "Europe/Kyiv")
	v.SetDefault("HEADLESS", true)
	v.SetDefault("RENDER_TIMEOUT_SECONDS", 90)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return Config{
		City:             v.GetString("CITY"),
		Street:           v.GetString("STREET"),
		House:            v.GetString("HOUSE"),
		SiteURL:          v.GetString("SITE_URL"),
		DataDir:          v.GetString("DATA_DIR"),
		EventLogPath:     v.GetString("EVENT_LOG_PATH"),
		TelegramBotToken: v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   v.GetInt64("TELEGRAM_CHAT_ID"),
		MetricsAddr:      v.GetString("METRICS_ADDR"),
		TimeLocation:     v.GetString("TIME_LOCATION"),
		Headless:         v.GetBool("HEADLESS"),
		RenderTimeout:    time.Duration(v.GetInt("RENDER_TIMEOUT_SECONDS")) * time.Second,
	}
}

func (c Config) Validate() error {
	if c.City == "" {
		return fmt.Errorf("CITY is not set")
	}
	if c.Street == "" {
		return fmt.Errorf("STREET is not set")
	}
	if c.House == "" {
		return fmt.Errorf("HOUSE is not set")
	}
	if c.TelegramBotToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is not set")
	}
	return nil
}

func (c Config) Address() models.Address {
	return models.Address{City: c.City, Street: c.Street, HouseNumber: c.House}
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeLocation)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", c.TimeLocation, err)
	}
	return loc, nil
}

package app

import (
	"fmt"
	"quizstats/internal/configutil"
	"quizstats/internal/scrapers/quizplease"
	"quizstats/internal/secrets"
	"quizstats/internal/sheet"
	"quizstats/internal/telemetry"

	"dario.cat/mergo"
)

const (
	SheetGoogle = "google"
	SheetSql    = "sql"

	WatermarkFile  = "file"
	WatermarkSheet = "sheet"
)

type SheetConfig struct {
	// Backend is either "google" or "sql".
	Backend string             `json:"backend"`
	Google  sheet.GoogleConfig `json:"google"`
	DB      sheet.DBConfig     `json:"db"`
	// Table is the name of the sheet inside the sql database.
	Table string `json:"table"`
}

type WatermarkConfig struct {
	// Backend is either "file" or "sheet".
	Backend string `json:"backend"`
	File    string `json:"file"`
}

type Config struct {
	Site      quizplease.Options   `json:"site"`
	Sheet     SheetConfig          `json:"sheet"`
	Watermark WatermarkConfig      `json:"watermark"`
	Secrets   secrets.Config       `json:"secrets"`
	Schedule  string               `json:"schedule"`
	Otlp      telemetry.OtlpConfig `json:"otlp"`
	Verbose   bool                 `json:"verbose"`
}

func DefaultConfig() Config {
	return Config{
		Site: quizplease.DefaultOptions(),
		Sheet: SheetConfig{
			Backend: SheetSql,
			DB:      sheet.DBConfig{File: "quizstats.db"},
			Table:   "results",
		},
		Watermark: WatermarkConfig{
			Backend: WatermarkFile,
			File:    "last_game_id.json",
		},
		Secrets: secrets.Config{
			Parameter: secrets.DefaultParameter,
		},
		// every day at noon, yerevan time
		Schedule: "0 12 * * *",
	}
}

// LoadConfig reads the config file (and its .local. override) and fills
// everything left unset with DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return WithDefaults(cfg)
}

func WithDefaults(cfg Config) (Config, error) {
	err := mergo.Merge(&cfg, DefaultConfig())
	if err != nil {
		return Config{}, fmt.Errorf("apply defaults: %w", err)
	}
	return cfg, nil
}

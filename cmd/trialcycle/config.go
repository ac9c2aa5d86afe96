package main

import (
	"log/slog"

	"github.com/dmitrymomot/trialcycle/pkg/config"
	"github.com/dmitrymomot/trialcycle/pkg/logger"
)

type appConfig struct {
	Name     string `env:"APP_NAME" envDefault:"trialcycle"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL"`
}

// load parses env vars into a fresh T.
func load[T any]() (T, error) {
	var cfg T
	err := config.Load(&cfg)
	return cfg, err
}

func newLogger(cfg appConfig) *slog.Logger {
	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithLevelName(cfg.LogLevel),
	)
	logger.SetAsDefault(log)
	return log
}

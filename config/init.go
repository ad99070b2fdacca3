package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/mkasajim/realtime-gmail-monitor/internal/logger"
	"github.com/mkasajim/realtime-gmail-monitor/internal/tracing"
)

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:  &AppConfig{},
		Reconciler: &ReconcilerConfig{},
		Display:    &DisplayConfig{},
		Logger:     &logger.Config{},
		Tracing:    &tracing.JaegerConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading monitor config: %v", err)
	}

	return config, nil
}

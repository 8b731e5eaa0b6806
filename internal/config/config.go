// Package config содержит логику чтения конфигурации магазина и пакетных задач.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации HTTP-сервиса магазина.
type Config struct {
	RunAddress        string   `env:"RUN_ADDRESS"`
	DatabaseURI       string   `env:"DATABASE_URI"`
	SessionsSecret    string   `env:"SESSIONS_SECRET"`
	AdminKey          string   `env:"ADMIN_KEY"`
	SlackClientID     string   `env:"SLACK_CLIENT_ID"`
	SlackClientSecret string   `env:"SLACK_CLIENT_SECRET"`
	SlackWorkspace    string   `env:"SLACK_WORKSPACE" envDefault:"hackclub"`
	SlackAPIURL       string   `env:"SLACK_API_URL" envDefault:"https://slack.com/api"`
	AllowedOrigins    []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"https://*,http://*"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envSessionsSecret := cfg.SessionsSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.SessionsSecret, "s", "", "secret used to sign session cookies")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envSessionsSecret != "" {
		cfg.SessionsSecret = envSessionsSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI is required (DATABASE_URI or -d)")
	}

	return cfg, nil
}

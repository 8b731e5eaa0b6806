package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Database описывает подключение к базе данных для пакетных задач.
type Database struct {
	URI string `env:"DATABASE_URI,required,notEmpty"`
}

// Airtable описывает доступ к таблице заявок в Airtable.
type Airtable struct {
	APIKey  string `env:"AIRTABLE_API_KEY,required,notEmpty"`
	BaseID  string `env:"AIRTABLE_BASE_ID" envDefault:"app1sLnxuQNDBZNju"`
	Table   string `env:"AIRTABLE_TABLE_NAME" envDefault:"tblsbrzyPghuKgMyz"`
	BaseURL string `env:"AIRTABLE_API_URL" envDefault:"https://api.airtable.com/v0"`
}

// Hackatime описывает доступ к API учёта времени.
type Hackatime struct {
	BaseURL          string `env:"HACKATIME_BASE_URL" envDefault:"https://hackatime.hackclub.com/api/v1/users"`
	RackAttackBypass string `env:"RACK_ATTACK_BYPASS"`
}

// Classifier описывает сервис, определяющий упомянутые чат-платформы.
type Classifier struct {
	URL string `env:"HC_AI_URL" envDefault:"https://ai.hackclub.com/chat/completions"`
}

// Loops описывает доступ к API контактов Loops.
type Loops struct {
	APIKey  string `env:"LOOPS_API_KEY,required,notEmpty"`
	BaseURL string `env:"LOOPS_API_URL" envDefault:"https://app.loops.so/api/v1"`
}

// PayoutJob объединяет параметры задачи пересчёта начислений.
type PayoutJob struct {
	Database   Database
	Airtable   Airtable
	Hackatime  Hackatime
	Classifier Classifier
}

// PaymentReport объединяет параметры отчёта о выплатах.
type PaymentReport struct {
	Airtable  Airtable
	Hackatime Hackatime
}

// BackfillJob объединяет параметры задачи дозаполнения пользователей.
type BackfillJob struct {
	Database Database
	Airtable Airtable
}

// LoopsSyncJob объединяет параметры синхронизации адресов из Loops.
type LoopsSyncJob struct {
	Airtable Airtable
	Loops    Loops
}

// FilloutSyncJob объединяет параметры импорта выгрузки Fillout.
type FilloutSyncJob struct {
	Airtable Airtable
}

// Load читает конфигурацию задачи из переменных окружения.
// Отсутствие обязательной переменной возвращает ошибку до любых сетевых вызовов.
func Load[T any]() (*T, error) {
	cfg, err := env.ParseAs[T]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

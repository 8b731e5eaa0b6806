// Package payout пересчитывает начисления токенов за учтённое время и сверяет балансы.
package payout

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/converge-shop/internal/airtable"
)

// Rounding задаёт способ перевода часов в токены.
type Rounding string

const (
	// RoundingThreshold округляет вниз до целых часов и добавляет токен,
	// если остаток не меньше ThresholdMinutes.
	RoundingThreshold Rounding = "threshold"
	// RoundingMultiplier умножает время на Multiplier и округляет до ближайшего целого.
	RoundingMultiplier Rounding = "multiplier"
)

// Policy описывает правила начисления. Значение версионируется, чтобы в отчётах
// было видно, по каким правилам посчитан журнал.
type Policy struct {
	Version           string          `toml:"version"`
	Rounding          Rounding        `toml:"rounding"`
	ThresholdMinutes  float64         `toml:"threshold_minutes"`
	Multiplier        float64         `toml:"multiplier"`
	MaxTokens         int64           `toml:"max_tokens"`
	ProtectedMarkers  []string        `toml:"protected_markers"`
	StartDate         string          `toml:"start_date"`
	EndDate           string          `toml:"end_date"`
	BonusMinPlatforms int             `toml:"bonus_min_platforms"`
	OverrideHours     bool            `toml:"override_hours"`
	Concurrency       int             `toml:"concurrency"`
	HourlyRate        decimal.Decimal `toml:"hourly_rate"`
	Filter            string          `toml:"filter"`
}

// DefaultPolicy возвращает правила, по которым считается журнал токенов.
func DefaultPolicy() Policy {
	return Policy{
		Version:           "converge-2025.1",
		Rounding:          RoundingThreshold,
		ThresholdMinutes:  40,
		Multiplier:        0.7,
		MaxTokens:         10,
		ProtectedMarkers:  []string{"Thunder", "MANUAL"},
		StartDate:         "2025-6-24",
		EndDate:           "2025-7-17T23:59Z",
		BonusMinPlatforms: 2,
		Concurrency:       8,
		HourlyRate:        decimal.NewFromInt(5),
		Filter:            airtable.ApprovedFormula,
	}
}

// PaymentPolicy возвращает правила денежного отчёта: множитель без верхней границы
// и с учётом ручной корректировки часов.
func PaymentPolicy() Policy {
	p := DefaultPolicy()
	p.Version = "converge-2025.1-payment"
	p.Rounding = RoundingMultiplier
	p.MaxTokens = 0
	p.OverrideHours = true
	return p
}

// LoadPolicy читает TOML-файл поверх base. Незаданные в файле поля сохраняют значения base.
func LoadPolicy(path string, base Policy) (Policy, error) {
	p := base
	p.ProtectedMarkers = append([]string(nil), base.ProtectedMarkers...)

	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return Policy{}, fmt.Errorf("decode policy %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Policy{}, fmt.Errorf("policy %s: unknown keys %v", path, undecoded)
	}

	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// Validate проверяет согласованность правил.
func (p Policy) Validate() error {
	var errs []error

	switch p.Rounding {
	case RoundingThreshold:
		if p.ThresholdMinutes < 0 || p.ThresholdMinutes >= 60 {
			errs = append(errs, fmt.Errorf("threshold_minutes must be in [0, 60), got %v", p.ThresholdMinutes))
		}
	case RoundingMultiplier:
		if p.Multiplier <= 0 {
			errs = append(errs, fmt.Errorf("multiplier must be positive, got %v", p.Multiplier))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown rounding %q", p.Rounding))
	}

	if p.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max_tokens must not be negative, got %d", p.MaxTokens))
	}
	if p.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", p.Concurrency))
	}
	if p.BonusMinPlatforms < 1 {
		errs = append(errs, fmt.Errorf("bonus_min_platforms must be at least 1, got %d", p.BonusMinPlatforms))
	}
	if p.StartDate == "" || p.EndDate == "" {
		errs = append(errs, errors.New("start_date and end_date are required"))
	}
	if p.HourlyRate.IsNegative() {
		errs = append(errs, fmt.Errorf("hourly_rate must not be negative, got %s", p.HourlyRate))
	}

	return errors.Join(errs...)
}

// Tokens переводит секунды в токены по правилам политики.
// Результат не убывает с ростом секунд и не превышает MaxTokens, если он задан.
func (p Policy) Tokens(seconds float64) int64 {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}

	var tokens int64
	switch p.Rounding {
	case RoundingMultiplier:
		tokens = int64(math.Floor(seconds*p.Multiplier/3600 + 0.5))
	default:
		whole := math.Floor(seconds / 3600)
		// Остаток считаем в секундах: ровно 40 минут в часах не представимы точно.
		remainder := seconds - whole*3600
		tokens = int64(whole)
		if remainder >= p.ThresholdMinutes*60 {
			tokens++
		}
	}

	if p.MaxTokens > 0 && tokens > p.MaxTokens {
		tokens = p.MaxTokens
	}
	return tokens
}

// IsProtected сообщает, переживёт ли начисление с таким memo пересчёт.
// Начисления без memo тоже не удаляются.
func (p Policy) IsProtected(memo *string) bool {
	if memo == nil {
		return true
	}
	lower := strings.ToLower(*memo)
	for _, m := range p.ProtectedMarkers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// Period возвращает отчётный период для memo: дата окончания без времени.
func (p Policy) Period() string {
	end, _, _ := strings.Cut(p.EndDate, "T")
	return p.StartDate + " to " + end
}

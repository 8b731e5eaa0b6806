package payout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_Threshold(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name    string
		seconds float64
		want    int64
	}{
		{"zero", 0, 0},
		{"negative", -100, 0},
		{"39 minutes", 39 * 60, 0},
		{"40 minutes", 40 * 60, 1},
		{"2h39m", 2*3600 + 39*60, 2},
		{"2h40m", 2*3600 + 40*60, 3},
		{"2h59m59s", 3*3600 - 1, 3},
		{"cap", 25 * 3600, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Tokens(tt.seconds))
		})
	}
}

func TestTokens_Multiplier(t *testing.T) {
	p := PaymentPolicy()

	assert.Equal(t, int64(0), p.Tokens(0))
	// 1h * 0.7 = 0.7 -> 1
	assert.Equal(t, int64(1), p.Tokens(3600))
	// 5h * 0.7 = 3.5 -> 4
	assert.Equal(t, int64(4), p.Tokens(5*3600))
	// без ограничения сверху
	assert.Equal(t, int64(70), p.Tokens(100*3600))

	p.MaxTokens = 10
	assert.Equal(t, int64(10), p.Tokens(100*3600))
}

func TestTokens_MonotoneAndCapped(t *testing.T) {
	for _, p := range []Policy{DefaultPolicy(), PaymentPolicy()} {
		p.MaxTokens = 10
		var prev int64
		for s := 0.0; s <= 30*3600; s += 37 {
			got := p.Tokens(s)
			require.GreaterOrEqual(t, got, prev, "rounding %s at %v seconds", p.Rounding, s)
			require.LessOrEqual(t, got, p.MaxTokens)
			prev = got
		}
	}
}

func TestIsProtected(t *testing.T) {
	p := DefaultPolicy()
	memo := func(s string) *string { return &s }

	assert.True(t, p.IsProtected(nil))
	assert.True(t, p.IsProtected(memo("thunder giveaway")))
	assert.True(t, p.IsProtected(memo("Manual adjustment")))
	assert.False(t, p.IsProtected(memo("Converge payout: 3.00 hours worked")))
}

func TestPeriod(t *testing.T) {
	assert.Equal(t, "2025-6-24 to 2025-7-17", DefaultPolicy().Period())
}

func TestLoadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.toml")
	content := `
version = "converge-test"
rounding = "multiplier"
multiplier = 0.5
max_tokens = 0
protected_markers = ["Thunder", "MANUAL", "Grant"]
hourly_rate = "7.5"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	p, err := LoadPolicy(path, DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, "converge-test", p.Version)
	assert.Equal(t, RoundingMultiplier, p.Rounding)
	assert.Equal(t, 0.5, p.Multiplier)
	assert.Equal(t, int64(0), p.MaxTokens)
	assert.Equal(t, []string{"Thunder", "MANUAL", "Grant"}, p.ProtectedMarkers)
	assert.True(t, decimal.RequireFromString("7.5").Equal(p.HourlyRate))
	// поля, которых нет в файле, берутся из базовой политики
	assert.Equal(t, 8, p.Concurrency)
	assert.Equal(t, "2025-6-24", p.StartDate)
}

func TestLoadPolicy_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown rounding", `rounding = "ceil"`},
		{"unknown key", `max_token = 3`},
		{"bad concurrency", `concurrency = 0`},
		{"bad threshold", `threshold_minutes = 75`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := LoadPolicy(path, DefaultPolicy())
			assert.Error(t, err)
		})
	}
}

func TestBonusTokens(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name      string
		platforms int
		base      int64
		want      int64
	}{
		{"single platform", 1, 3, 0},
		{"two platforms", 2, 3, 2},
		{"clipped by cap", 4, 8, 2},
		{"already capped", 3, 10, 0},
		{"no hours", 3, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.BonusTokens(tt.platforms, tt.base)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, int64(0))
			assert.LessOrEqual(t, tt.base+got, max(p.MaxTokens, tt.base))
		})
	}
}

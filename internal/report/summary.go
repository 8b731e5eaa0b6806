package report

import (
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/converge-shop/internal/payout"
)

// Row описывает строку сводки.
type Row struct {
	Key   string
	Value any
}

// Summary выводит сводку задачи и, при наличии, список предупреждений.
func Summary(w io.Writer, title string, rows []Row, warnings []string) error {
	p := &printer{w: w}

	p.section(title)
	for _, r := range rows {
		p.kv(r.Key, r.Value)
	}

	if len(warnings) > 0 {
		p.section("WARNINGS")
		for _, msg := range warnings {
			p.line("%s %s", warningPrefix, msg)
		}
	}

	return p.err
}

// Payments выводит денежный отчёт.
func Payments(w io.Writer, payments []payout.Payment, summary payout.PaymentSummary, hourlyRate decimal.Decimal) error {
	p := &printer{w: w}

	p.section("PAYMENTS")
	for _, pm := range payments {
		p.line("%s %s (%s): %d hours → $%s", arrowPrefix, pm.SlackID, pm.Email, pm.Hours, pm.Amount.StringFixed(2))
		if len(pm.Projects) > 0 {
			p.line("   %s", dim.Render("Projects: "+strings.Join(pm.Projects, ", ")))
		}
	}

	p.section("SUMMARY")
	p.kv("Hourly rate", "$"+hourlyRate.StringFixed(2))
	p.kv("Total users", summary.Users)
	p.kv("Total hours (rounded)", summary.TotalHours)
	p.kv("Total budget", "$"+summary.Budget.StringFixed(2))
	p.kv("Average payment", "$"+summary.Average.StringFixed(2))

	return p.err
}

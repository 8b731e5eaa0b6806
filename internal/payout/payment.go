package payout

import (
	"github.com/shopspring/decimal"
)

// Payment описывает денежную выплату одному пользователю.
type Payment struct {
	SlackID  string          `json:"slackId"`
	Email    string          `json:"email"`
	Hours    int64           `json:"totalHours"`
	Amount   decimal.Decimal `json:"payment"`
	Projects []string        `json:"projects"`
}

// PaymentSummary содержит итоги денежного отчёта.
type PaymentSummary struct {
	Users      int             `json:"totalUsers"`
	TotalHours int64           `json:"totalHours"`
	Budget     decimal.Decimal `json:"totalBudget"`
	Average    decimal.Decimal `json:"averagePayment"`
}

// ComputePayments переводит учтённое время в деньги по часовой ставке политики.
// Пользователи с красным уровнем доверия и с нулём округлённых часов не попадают в отчёт.
func ComputePayments(users []*UserWork, p Policy) ([]Payment, PaymentSummary) {
	var (
		payments []Payment
		summary  = PaymentSummary{Budget: decimal.Zero, Average: decimal.Zero}
	)

	for _, u := range users {
		if u.Excluded() {
			continue
		}
		hours := p.Tokens(u.Seconds)
		if hours <= 0 {
			continue
		}

		amount := p.HourlyRate.Mul(decimal.NewFromInt(hours))
		payments = append(payments, Payment{
			SlackID:  u.SlackID,
			Email:    u.Email,
			Hours:    hours,
			Amount:   amount,
			Projects: u.Projects,
		})

		summary.TotalHours += hours
		summary.Budget = summary.Budget.Add(amount)
	}

	summary.Users = len(payments)
	if summary.Users > 0 {
		summary.Average = summary.Budget.Div(decimal.NewFromInt(int64(summary.Users))).Round(2)
	}

	return payments, summary
}

package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mmeshcher/converge-shop/internal/model"
	"github.com/mmeshcher/converge-shop/internal/payout"
	"github.com/mmeshcher/converge-shop/internal/repository"
)

func TestPayout(t *testing.T) {
	res := &payout.Result{
		PolicyVersion: "converge-test",
		Records:       3,
		Users: []payout.UserResult{
			{SlackID: "U1", Email: "a@example.com", Hours: 2, Tokens: 4, BonusTokens: 2, Platforms: []string{"Slack", "Discord"}},
		},
		Review:   []payout.Review{{SlackID: "U2", Email: "b@example.com", Hours: 1.5, Tokens: 2}},
		Warnings: []payout.Warning{{SlackID: "U3", Email: "c@example.com", OldBalance: 7, NewBalance: 0, Difference: 7}},
		Excluded: []string{"U4"},

		PlatformBonusUsers: 1,
		Ledger:             repository.ReplaceResult{Deleted: 5, Inserted: 2},
	}

	var buf bytes.Buffer
	require.NoError(t, Payout(&buf, res))

	out := buf.String()
	assert.Contains(t, out, `"slackId": "U1"`)
	assert.Contains(t, out, "Total tokens distributed: 4")
	assert.Contains(t, out, "+2 for Slack, Discord")
	assert.Contains(t, out, "MANUAL REVIEW")
	assert.Contains(t, out, "U2 (b@example.com)")
	assert.Contains(t, out, "Reduction: 7 tokens")
	assert.Contains(t, out, "U4")
}

func TestPayout_NoWarnings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Payout(&buf, &payout.Result{DryRun: true}))

	out := buf.String()
	assert.Contains(t, out, "[]")
	assert.Contains(t, out, "Dry run")
	assert.Contains(t, out, "No users have reduced balances")
}

func TestPayments(t *testing.T) {
	payments := []payout.Payment{
		{SlackID: "U1", Email: "a@example.com", Hours: 7, Amount: decimal.NewFromInt(35), Projects: []string{"foo", "bar"}},
	}
	summary := payout.PaymentSummary{Users: 1, TotalHours: 7, Budget: decimal.NewFromInt(35), Average: decimal.NewFromInt(35)}

	var buf bytes.Buffer
	require.NoError(t, Payments(&buf, payments, summary, decimal.NewFromInt(5)))

	out := buf.String()
	assert.Contains(t, out, "7 hours → $35.00")
	assert.Contains(t, out, "Projects: foo, bar")
	assert.Contains(t, out, "Total budget: $35.00")
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, "BACKFILL SUMMARY", []Row{{"Users processed", 3}}, []string{"no address for x@example.com"}))

	out := buf.String()
	assert.Contains(t, out, "Users processed: 3")
	assert.Contains(t, out, "no address for x@example.com")
}

func TestOrdersXLSX(t *testing.T) {
	memo := "shipped"
	orders := []model.OrderDetails{{
		ShopOrder: model.ShopOrder{
			ID: "o1", PriceAtOrder: 5, Status: model.OrderStatusFulfilled, Memo: &memo,
			CreatedAt: time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC), UserID: "U1",
		},
		ItemName: "Sticker pack",
	}}

	var buf bytes.Buffer
	require.NoError(t, OrdersXLSX(&buf, orders))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Orders"}, f.GetSheetList())

	header, err := f.GetCellValue("Orders", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Order ID", header)

	item, err := f.GetCellValue("Orders", "D2")
	require.NoError(t, err)
	assert.Equal(t, "Sticker pack", item)

	gotMemo, err := f.GetCellValue("Orders", "H2")
	require.NoError(t, err)
	assert.Equal(t, "shipped", gotMemo)
}

func TestPaymentsXLSX(t *testing.T) {
	payments := []payout.Payment{{SlackID: "U1", Hours: 2, Amount: decimal.NewFromInt(10)}}
	summary := payout.PaymentSummary{Users: 1, TotalHours: 2, Budget: decimal.NewFromInt(10)}

	var buf bytes.Buffer
	require.NoError(t, PaymentsXLSX(&buf, payments, summary))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	total, err := f.GetCellValue("Payments", "A4")
	require.NoError(t, err)
	assert.Equal(t, "Total", total)
}

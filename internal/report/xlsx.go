package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mmeshcher/converge-shop/internal/model"
	"github.com/mmeshcher/converge-shop/internal/payout"
)

// PaymentsXLSX записывает денежный отчёт в формате XLSX.
func PaymentsXLSX(w io.Writer, payments []payout.Payment, summary payout.PaymentSummary) error {
	rows := make([][]any, 0, len(payments)+2)
	for _, pm := range payments {
		amount, _ := pm.Amount.Float64()
		rows = append(rows, []any{pm.SlackID, pm.Email, pm.Hours, amount, strings.Join(pm.Projects, ", ")})
	}

	budget, _ := summary.Budget.Float64()
	rows = append(rows, []any{}, []any{"Total", summary.Users, summary.TotalHours, budget})

	return writeSheet(w, "Payments", []string{"Slack ID", "Email", "Hours", "Payment (USD)", "Projects"}, rows)
}

// OrdersXLSX записывает список заказов магазина в формате XLSX.
func OrdersXLSX(w io.Writer, orders []model.OrderDetails) error {
	rows := make([][]any, 0, len(orders))
	for _, o := range orders {
		memo := ""
		if o.Memo != nil {
			memo = *o.Memo
		}
		rows = append(rows, []any{
			o.ID,
			o.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			o.UserID,
			o.ItemName,
			string(o.ItemType),
			o.PriceAtOrder,
			string(o.Status),
			memo,
		})
	}

	return writeSheet(w, "Orders", []string{"Order ID", "Created (UTC)", "Customer", "Item", "Type", "Price", "Status", "Memo"}, rows)
}

func writeSheet(w io.Writer, sheetName string, headers []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("set header: %w", err)
		}
	}

	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

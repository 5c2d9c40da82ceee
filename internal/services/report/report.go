// Package report exports settlements and withdrawals to an Excel workbook
// for finance reconciliation.
package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"mealpay/internal/models"
	"mealpay/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SettlementsSheet = "Settlements"
	WithdrawalsSheet = "Withdrawals"
	dateLayout       = "2006-01-02"
	timeLayout       = "2006-01-02 15:04"
)

var (
	settlementHeaders = []string{"Delivery Order", "Order", "Provider", "Customer", "Delivery Date", "Meal Amount", "Settled Amount", "Type", "Status", "Transfer"}
	withdrawalHeaders = []string{"Request", "User", "Role", "Amount", "Balance At Request", "Status", "Requested At", "Reviewed By", "Reviewed At", "Notes"}
)

type Exporter struct {
	repo repositories.LedgerRepository
}

func NewExporter(repo repositories.LedgerRepository) *Exporter {
	return &Exporter{repo: repo}
}

// Build writes every settlement delivered and every withdrawal requested in
// [from, to) to a two-sheet workbook.
func (e *Exporter) Build(ctx context.Context, from, to time.Time) (*bytes.Buffer, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("report range is empty: %s to %s", from.Format(dateLayout), to.Format(dateLayout))
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SettlementsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(WithdrawalsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := e.writeSettlements(ctx, f, from, to); err != nil {
		return nil, err
	}
	if err := e.writeWithdrawals(ctx, f, from, to); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

func (e *Exporter) writeSettlements(ctx context.Context, f *excelize.File, from, to time.Time) error {
	settlements, _, err := e.repo.ListSettlements(ctx, repositories.SettlementQuery{From: &from, To: &to})
	if err != nil {
		return fmt.Errorf("failed to load settlements: %w", err)
	}
	if err := writeHeader(f, SettlementsSheet, settlementHeaders); err != nil {
		return err
	}

	total := decimal.Zero
	row := 2
	for _, s := range settlements {
		values := []interface{}{
			s.DeliveryOrderID,
			s.OrderID,
			s.ProviderID,
			s.CustomerID,
			s.DeliveryDate.Format(dateLayout),
			s.MealAmount.InexactFloat64(),
			s.SettlementAmount.InexactFloat64(),
			string(s.SettlementType),
			string(s.Status),
			s.TransferID,
		}
		if err := writeRow(f, SettlementsSheet, row, values); err != nil {
			return err
		}
		total = total.Add(s.SettlementAmount)
		row++
	}
	return writeTotal(f, SettlementsSheet, row, 7, total)
}

func (e *Exporter) writeWithdrawals(ctx context.Context, f *excelize.File, from, to time.Time) error {
	requests, _, err := e.repo.ListWithdrawals(ctx, repositories.WithdrawalQuery{From: &from, To: &to})
	if err != nil {
		return fmt.Errorf("failed to load withdrawals: %w", err)
	}
	if err := writeHeader(f, WithdrawalsSheet, withdrawalHeaders); err != nil {
		return err
	}

	total := decimal.Zero
	row := 2
	for _, r := range requests {
		reviewedAt := ""
		if r.ReviewedAt != nil {
			reviewedAt = r.ReviewedAt.Format(timeLayout)
		}
		notes := r.ReviewNotes
		if r.RejectionReason != "" {
			notes = r.RejectionReason
		}
		values := []interface{}{
			r.ID,
			r.UserID,
			string(r.Role),
			r.Amount.InexactFloat64(),
			r.AvailableBalanceAtRequest.InexactFloat64(),
			string(r.Status),
			r.CreatedAt.Format(timeLayout),
			r.ReviewedBy,
			reviewedAt,
			notes,
		}
		if err := writeRow(f, WithdrawalsSheet, row, values); err != nil {
			return err
		}
		if r.Status == models.WithdrawalApproved {
			total = total.Add(r.Amount)
		}
		row++
	}
	return writeTotal(f, WithdrawalsSheet, row, 4, total)
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	return writeRow(f, sheet, 1, values)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// writeTotal puts a label in column A and the sum in column col.
func writeTotal(f *excelize.File, sheet string, row, col int, total decimal.Decimal) error {
	values := make([]interface{}, col)
	for i := range values {
		values[i] = ""
	}
	values[0] = "Total"
	values[col-1] = total.InexactFloat64()
	return writeRow(f, sheet, row, values)
}

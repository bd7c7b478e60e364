package payment

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Названия листов выгрузки.
const (
	MonthlySheet = "月別支出"
	HistorySheet = "支払い履歴"
)

// exportLimit верхняя граница строк истории в выгрузке.
const exportLimit = 10000

// ExportXLSX пишет в w книгу с помесячными суммами и историей платежей.
func (s *PaymentService) ExportXLSX(ctx context.Context, userUID string, w io.Writer) error {
	const op = "payment.ExportXLSX"
	months, err := s.Monthly(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	records, err := s.List(ctx, userUID, exportLimit, 0)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), MonthlySheet); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := writeMonthly(f, months); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := f.NewSheet(HistorySheet); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := writeHistory(f, records); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func writeMonthly(f *excelize.File, months []models.MonthlySpending) error {
	seen := map[string]bool{}
	var categories []string
	for _, m := range months {
		for c := range m.ByCategory {
			if !seen[c] {
				seen[c] = true
				categories = append(categories, c)
			}
		}
	}
	sort.Strings(categories)

	header := []any{"月", "合計"}
	for _, c := range categories {
		header = append(header, c)
	}
	if err := f.SetSheetRow(MonthlySheet, "A1", &header); err != nil {
		return err
	}

	for i, m := range months {
		row := []any{m.Month, m.Total}
		for _, c := range categories {
			row = append(row, m.ByCategory[c])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(MonthlySheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeHistory(f *excelize.File, records []*models.PaymentRecord) error {
	header := []any{"支払日", "サービス", "カテゴリ", "金額"}
	if err := f.SetSheetRow(HistorySheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range records {
		row := []any{r.PaymentDate.String(), r.SubscriptionName, r.Category, r.Amount}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(HistorySheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// Package report renders admin summaries as spreadsheets.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"content-entitlement/internal/domain/model"
)

const (
	sheetBands         = "bands"
	sheetPurchases     = "purchases"
	sheetSubscriptions = "subscriptions"
)

// Summary is everything the export workbook shows.
type Summary struct {
	GeneratedAt   time.Time
	Bands         []model.BandCount
	Purchases     map[model.PaymentMethod]int
	Subscriptions map[model.SubscriptionStatus]int
}

// WriteXLSX writes one sheet per section of s.
func WriteXLSX(w io.Writer, s Summary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheetBands); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bandRows := make([][]interface{}, 0, len(s.Bands))
	for _, b := range s.Bands {
		bandRows = append(bandRows, []interface{}{b.QuizSlug, b.Label, b.Count})
	}
	if err := writeSheet(f, sheetBands, []interface{}{"quiz_slug", "band", "runs"}, bandRows); err != nil {
		return err
	}

	methods := make([]string, 0, len(s.Purchases))
	for m := range s.Purchases {
		methods = append(methods, string(m))
	}
	sort.Strings(methods)
	purchaseRows := make([][]interface{}, 0, len(methods))
	for _, m := range methods {
		purchaseRows = append(purchaseRows, []interface{}{m, s.Purchases[model.PaymentMethod(m)]})
	}
	if _, err := f.NewSheet(sheetPurchases); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	if err := writeSheet(f, sheetPurchases, []interface{}{"payment_method", "purchases"}, purchaseRows); err != nil {
		return err
	}

	statuses := make([]string, 0, len(s.Subscriptions))
	for st := range s.Subscriptions {
		statuses = append(statuses, string(st))
	}
	sort.Strings(statuses)
	subRows := make([][]interface{}, 0, len(statuses)+1)
	for _, st := range statuses {
		subRows = append(subRows, []interface{}{st, s.Subscriptions[model.SubscriptionStatus(st)]})
	}
	subRows = append(subRows, []interface{}{"generated_at", s.GeneratedAt.UTC().Format(time.RFC3339)})
	if _, err := f.NewSheet(sheetSubscriptions); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	if err := writeSheet(f, sheetSubscriptions, []interface{}{"status", "subscriptions"}, subRows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%s cell: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

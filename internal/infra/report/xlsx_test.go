//go:build !integration

package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"content-entitlement/internal/domain/model"
)

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf, Summary{
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Bands: []model.BandCount{
			{QuizSlug: "burnout", Label: "high", Count: 4},
			{QuizSlug: "burnout", Label: "low", Count: 1},
		},
		Purchases: map[model.PaymentMethod]int{
			model.PaymentMethodSubscription: 2,
			model.PaymentMethodDirect:       5,
		},
		Subscriptions: map[model.SubscriptionStatus]int{model.SubscriptionStatusActive: 3},
	})
	if err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer func() { _ = f.Close() }()

	t.Run("should write band counts under a header", func(t *testing.T) {
		rows, err := f.GetRows(sheetBands)
		if err != nil {
			t.Fatalf("GetRows failed: %v", err)
		}
		if len(rows) != 3 || rows[0][0] != "quiz_slug" || rows[1][1] != "high" || rows[1][2] != "4" {
			t.Errorf("unexpected bands sheet: %v", rows)
		}
	})

	t.Run("should sort purchases by method", func(t *testing.T) {
		rows, _ := f.GetRows(sheetPurchases)
		if len(rows) != 3 || rows[1][0] != "direct" || rows[2][0] != "subscription" || rows[1][1] != "5" {
			t.Errorf("unexpected purchases sheet: %v", rows)
		}
	})

	t.Run("should stamp the generation time", func(t *testing.T) {
		rows, _ := f.GetRows(sheetSubscriptions)
		last := rows[len(rows)-1]
		if last[0] != "generated_at" || last[1] != "2026-03-01T12:00:00Z" {
			t.Errorf("unexpected trailer row: %v", last)
		}
	})
}

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/castlemilk/shorted.com.au-sub001/internal/domain"
)

func pricePoint(symbol string, date string, close float64) domain.PricePoint {
	day, _ := time.Parse("2006-01-02", date)
	return domain.PricePoint{
		Symbol:   symbol,
		Date:     day,
		Open:     close - 0.5,
		High:     close + 1,
		Low:      close - 1,
		Close:    close,
		AdjClose: close,
		Volume:   100000,
		Source:   "yahoo",
	}
}

// TestUpsertBatchIdempotent verifies that re-syncing an overlapping window
// updates rows in place instead of duplicating or erroring.
func TestUpsertBatchIdempotent(t *testing.T) {
	repo := NewPriceRepository(newTestDB(t))
	ctx := context.Background()

	first := []domain.PricePoint{
		pricePoint("BHP", "2025-06-02", 45.10),
		pricePoint("BHP", "2025-06-03", 45.80),
		pricePoint("CBA", "2025-06-02", 128.00),
	}
	if err := repo.UpsertBatch(ctx, first); err != nil {
		t.Fatalf("initial UpsertBatch failed: %v", err)
	}

	// Overlap on (BHP, 2025-06-03) with a revised close.
	second := []domain.PricePoint{
		pricePoint("BHP", "2025-06-03", 46.20),
		pricePoint("BHP", "2025-06-04", 46.50),
	}
	if err := repo.UpsertBatch(ctx, second); err != nil {
		t.Fatalf("overlapping UpsertBatch failed: %v", err)
	}

	count, err := repo.CountForSymbol(ctx, "BHP")
	if err != nil {
		t.Fatalf("CountForSymbol failed: %v", err)
	}
	if count != 3 {
		t.Errorf("BHP row count = %d, want 3", count)
	}

	points, err := repo.Series(ctx, "BHP", time.Time{}, time.Time{}, 0)
	if err != nil {
		t.Fatalf("Series failed: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("series length = %d, want 3", len(points))
	}
	if points[1].Close != 46.20 {
		t.Errorf("revised close = %v, want 46.20", points[1].Close)
	}
}

// TestUpsertBatchEmpty verifies an empty batch is a no-op.
func TestUpsertBatchEmpty(t *testing.T) {
	repo := NewPriceRepository(newTestDB(t))
	if err := repo.UpsertBatch(context.Background(), nil); err != nil {
		t.Errorf("UpsertBatch(nil) = %v, want nil", err)
	}
}

// TestLastDate verifies the ErrNoData sentinel and the max-date lookup used
// to compute incremental fetch windows.
func TestLastDate(t *testing.T) {
	repo := NewPriceRepository(newTestDB(t))
	ctx := context.Background()

	if _, err := repo.LastDate(ctx, "BHP"); !errors.Is(err, ErrNoData) {
		t.Errorf("LastDate on empty table = %v, want ErrNoData", err)
	}

	points := []domain.PricePoint{
		pricePoint("BHP", "2025-06-02", 45.10),
		pricePoint("BHP", "2025-06-04", 46.50),
		pricePoint("BHP", "2025-06-03", 45.80),
		pricePoint("CBA", "2025-06-05", 128.00),
	}
	if err := repo.UpsertBatch(ctx, points); err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}

	last, err := repo.LastDate(ctx, "BHP")
	if err != nil {
		t.Fatalf("LastDate failed: %v", err)
	}
	if got := last.Format("2006-01-02"); got != "2025-06-04" {
		t.Errorf("LastDate = %s, want 2025-06-04 (other symbols must not leak in)", got)
	}
}

// TestSeriesWindow verifies date-window filtering and ascending order.
func TestSeriesWindow(t *testing.T) {
	repo := NewPriceRepository(newTestDB(t))
	ctx := context.Background()

	var batch []domain.PricePoint
	for _, d := range []string{"2025-06-02", "2025-06-03", "2025-06-04", "2025-06-05"} {
		batch = append(batch, pricePoint("WES", d, 70))
	}
	if err := repo.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}

	from, _ := time.Parse("2006-01-02", "2025-06-03")
	to, _ := time.Parse("2006-01-02", "2025-06-04")
	points, err := repo.Series(ctx, "WES", from, to, 0)
	if err != nil {
		t.Fatalf("Series failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("series length = %d, want 2", len(points))
	}
	if !points[0].Date.Before(points[1].Date) {
		t.Error("series not in ascending date order")
	}
}

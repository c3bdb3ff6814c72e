package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/castlemilk/shorted.com.au-sub001/internal/domain"
	"github.com/castlemilk/shorted.com.au-sub001/internal/repository"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func newSymbolRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewSymbolHandler(repository.NewSymbolRepository(db), repository.NewPriceRepository(db))
	r := gin.New()
	r.GET("/api/v1/symbols", h.ListSymbols)
	r.GET("/api/v1/symbols/:code/prices", h.GetPrices)
	return r
}

func seedPrices(t *testing.T, db *gorm.DB, symbol string, days ...string) {
	t.Helper()
	for _, day := range days {
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			t.Fatalf("bad seed date %q: %v", day, err)
		}
		point := domain.PricePoint{
			Symbol: symbol, Date: date,
			Open: 10, High: 11, Low: 9, Close: 10.5, AdjClose: 10.5, Volume: 1000,
			Source: "test",
		}
		if err := db.Create(&point).Error; err != nil {
			t.Fatalf("seed price %s %s: %v", symbol, day, err)
		}
	}
}

// TestListSymbols verifies pagination over the catalog view.
func TestListSymbols(t *testing.T) {
	db := newTestDB(t)
	for _, code := range []string{"ANZ", "BHP", "CBA"} {
		if err := db.Create(&domain.Symbol{Code: code, Name: code + " Ltd", Active: true}).Error; err != nil {
			t.Fatalf("seed symbol %s: %v", code, err)
		}
	}
	router := newSymbolRouter(t, db)

	w := get(t, router, "/api/v1/symbols?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	var body struct {
		Symbols []domain.Symbol `json:"symbols"`
		Count   int             `json:"count"`
		Total   int64           `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if body.Count != 2 || body.Total != 3 {
		t.Errorf("count = %d, total = %d, want 2 and 3", body.Count, body.Total)
	}

	if w := get(t, router, "/api/v1/symbols?limit=-1"); w.Code != http.StatusBadRequest {
		t.Errorf("negative limit: status = %d, want 400", w.Code)
	}
}

// TestGetPrices verifies the series endpoint with window filters and the
// unknown-symbol case.
func TestGetPrices(t *testing.T) {
	db := newTestDB(t)
	seedPrices(t, db, "BHP", "2025-06-02", "2025-06-03", "2025-06-04")
	router := newSymbolRouter(t, db)

	w := get(t, router, "/api/v1/symbols/BHP/prices?from=2025-06-03&to=2025-06-04")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	var body struct {
		Symbol string              `json:"symbol"`
		Count  int                 `json:"count"`
		Points []domain.PricePoint `json:"points"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if body.Symbol != "BHP" || body.Count != 2 {
		t.Errorf("symbol = %s count = %d, want BHP with 2 points", body.Symbol, body.Count)
	}

	// Lower-case code resolves to the same symbol.
	if w := get(t, router, "/api/v1/symbols/bhp/prices"); w.Code != http.StatusOK {
		t.Errorf("lower-case code: status = %d, want 200", w.Code)
	}

	if w := get(t, router, "/api/v1/symbols/NOPE/prices"); w.Code != http.StatusNotFound {
		t.Errorf("unknown symbol: status = %d, want 404", w.Code)
	}

	if w := get(t, router, "/api/v1/symbols/BHP/prices?from=tuesday"); w.Code != http.StatusBadRequest {
		t.Errorf("bad from date: status = %d, want 400", w.Code)
	}
}

package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/castlemilk/shorted.com.au-sub001/internal/repository"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultSymbolsLimit = 50
	defaultPricesLimit  = 90
	maxPricesLimit      = 2000
)

// SymbolHandler serves catalog and price series endpoints.
type SymbolHandler struct {
	symbols *repository.SymbolRepository
	prices  *repository.PriceRepository
}

// NewSymbolHandler creates a new symbol handler.
// Parameters:
//   - symbols: symbol repository.
//   - prices: price repository.
// Returns:
//   - *SymbolHandler: initialized handler.
func NewSymbolHandler(symbols *repository.SymbolRepository, prices *repository.PriceRepository) *SymbolHandler {
	return &SymbolHandler{symbols: symbols, prices: prices}
}

// ListSymbols handles GET /api/v1/symbols.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SymbolHandler) ListSymbols(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultSymbolsLimit)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return
	}

	symbols, err := h.symbols.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list symbols: " + err.Error()})
		return
	}
	total, err := h.symbols.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count symbols: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbols": symbols,
		"count":   len(symbols),
		"total":   total,
	})
}

// GetPrices handles GET /api/v1/symbols/:code/prices.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SymbolHandler) GetPrices(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Symbol code is required"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPricesLimit)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	if limit > maxPricesLimit {
		limit = maxPricesLimit
	}

	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		from, err = time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		to, err = time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
			return
		}
	}

	points, err := h.prices.Series(c.Request.Context(), code, from, to, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load series: " + err.Error()})
		return
	}
	if len(points) == 0 {
		// Distinguish an unknown symbol from a known one with no rows in range.
		if _, err := h.prices.LastDate(c.Request.Context(), code); errors.Is(err, repository.ErrNoData) || errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No price data for symbol " + code})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol": code,
		"count":  len(points),
		"points": points,
	})
}

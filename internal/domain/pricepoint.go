package domain

import "time"

// PricePoint represents one day of trading data for one symbol. Rows are
// keyed by (symbol, date) and written as idempotent upserts, so re-ingesting
// a day replaces the earlier values instead of duplicating them.
type PricePoint struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Symbol    string    `gorm:"type:text;not null;uniqueIndex:idx_price_points_symbol_date" json:"symbol"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:idx_price_points_symbol_date" json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	AdjClose  float64   `json:"adj_close"`
	Volume    int64     `json:"volume"`
	Source    string    `gorm:"type:text" json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for PricePoint.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (PricePoint) TableName() string {
	return "price_points"
}

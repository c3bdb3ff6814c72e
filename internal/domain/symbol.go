package domain

import "time"

// Symbol represents one catalog entry: a listed company the sync engine keeps
// time-series data for. The catalog itself is maintained by the surrounding
// product; the engine only reads it.
type Symbol struct {
	Code      string    `gorm:"type:text;primaryKey" json:"code"`
	Name      string    `gorm:"type:text" json:"name"`
	Exchange  string    `gorm:"type:text;default:ASX" json:"exchange"`
	Active    bool      `gorm:"default:true;index:idx_symbols_active" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Symbol.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Symbol) TableName() string {
	return "symbols"
}

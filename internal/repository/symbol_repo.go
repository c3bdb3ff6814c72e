package repository

import (
	"context"

	"github.com/castlemilk/shorted.com.au-sub001/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SymbolRepository handles the instrument catalog.
type SymbolRepository struct {
	db *gorm.DB
}

// NewSymbolRepository creates a new SymbolRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *SymbolRepository: repository instance bound to db.
func NewSymbolRepository(db *gorm.DB) *SymbolRepository {
	return &SymbolRepository{db: db}
}

// ListActiveCodes returns the codes of all active symbols in a stable order.
// The sync engine snapshots this list into a run's checkpoint, so ordering
// must be deterministic.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []string: active symbol codes sorted ascending.
//   - error: non-nil if the query fails.
func (r *SymbolRepository) ListActiveCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).Model(&domain.Symbol{}).
		Where("active = ?", true).
		Order("code ASC").
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// List retrieves symbols with pagination, ordered by code.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.Symbol: matching symbols.
//   - error: non-nil if the query fails.
func (r *SymbolRepository) List(ctx context.Context, limit, offset int) ([]domain.Symbol, error) {
	var symbols []domain.Symbol
	if err := r.db.WithContext(ctx).
		Order("code ASC").
		Limit(limit).
		Offset(offset).
		Find(&symbols).Error; err != nil {
		return nil, err
	}
	return symbols, nil
}

// GetByCode retrieves a symbol by its code.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - code: symbol code.
// Returns:
//   - *domain.Symbol: symbol record if found.
//   - error: non-nil if lookup fails.
func (r *SymbolRepository) GetByCode(ctx context.Context, code string) (*domain.Symbol, error) {
	var symbol domain.Symbol
	if err := r.db.WithContext(ctx).First(&symbol, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &symbol, nil
}

// Upsert creates or updates a symbol record keyed by code.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - symbol: symbol record to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *SymbolRepository) Upsert(ctx context.Context, symbol *domain.Symbol) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		UpdateAll: true,
	}).Create(symbol).Error
}

// Count counts all symbols.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - int64: number of symbols.
//   - error: non-nil if the query fails.
func (r *SymbolRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Symbol{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

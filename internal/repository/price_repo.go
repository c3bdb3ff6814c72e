package repository

import (
	"context"
	"errors"
	"time"

	"github.com/castlemilk/shorted.com.au-sub001/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoData indicates that no price history exists for a symbol.
var ErrNoData = errors.New("no price data for symbol")

// upsertChunkSize bounds the number of rows per INSERT so a multi-year
// backfill stays under driver parameter limits.
const upsertChunkSize = 200

// PriceRepository handles daily price series persistence.
type PriceRepository struct {
	db *gorm.DB
}

// NewPriceRepository creates a new PriceRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *PriceRepository: repository instance bound to db.
func NewPriceRepository(db *gorm.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// UpsertBatch inserts price points, updating rows that already exist for the
// same (symbol, date). Re-running a sync over an overlapping window is
// therefore idempotent.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - points: price points to persist.
// Returns:
//   - error: non-nil if the write fails.
func (r *PriceRepository) UpsertBatch(ctx context.Context, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"open", "high", "low", "close", "adj_close", "volume", "source", "updated_at",
		}),
	}).CreateInBatches(points, upsertChunkSize).Error
}

// LastDate returns the most recent date for which a symbol has a stored
// price point.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - symbol: instrument symbol.
// Returns:
//   - time.Time: date of the newest stored point.
//   - error: ErrNoData when the symbol has no history; other errors from the query.
func (r *PriceRepository) LastDate(ctx context.Context, symbol string) (time.Time, error) {
	var point domain.PricePoint
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("date DESC").
		First(&point).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, ErrNoData
	}
	if err != nil {
		return time.Time{}, err
	}
	return point.Date, nil
}

// Series retrieves a symbol's price points within [from, to], oldest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - symbol: instrument symbol.
//   - from: inclusive start date; zero means unbounded.
//   - to: inclusive end date; zero means unbounded.
//   - limit: maximum number of points to return; 0 means no limit.
// Returns:
//   - []domain.PricePoint: matching points ordered by date ascending.
//   - error: non-nil if the query fails.
func (r *PriceRepository) Series(ctx context.Context, symbol string, from, to time.Time, limit int) ([]domain.PricePoint, error) {
	query := r.db.WithContext(ctx).Where("symbol = ?", symbol)
	if !from.IsZero() {
		query = query.Where("date >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("date <= ?", to)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var points []domain.PricePoint
	if err := query.Order("date ASC").Find(&points).Error; err != nil {
		return nil, err
	}
	return points, nil
}

// CountForSymbol counts stored price points for a symbol.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - symbol: instrument symbol.
// Returns:
//   - int64: number of stored points.
//   - error: non-nil if the query fails.
func (r *PriceRepository) CountForSymbol(ctx context.Context, symbol string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.PricePoint{}).
		Where("symbol = ?", symbol).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

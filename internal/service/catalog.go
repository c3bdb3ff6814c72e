package service

import (
	"context"
	"sort"
	"strings"

	"github.com/castlemilk/shorted.com.au-sub001/internal/repository"
)

// Catalog supplies the ordered list of entity symbols a run should cover.
// The orchestrator snapshots the list into the run's checkpoint at creation,
// so additions mid-run only take effect on the next day's run.
type Catalog interface {
	Symbols(ctx context.Context) ([]string, error)
}

// DBCatalog serves the active symbols stored in the database.
type DBCatalog struct {
	symbols *repository.SymbolRepository
}

// NewDBCatalog creates a catalog backed by the symbols table.
func NewDBCatalog(symbols *repository.SymbolRepository) *DBCatalog {
	return &DBCatalog{symbols: symbols}
}

// Symbols returns active symbol codes in ascending order.
func (c *DBCatalog) Symbols(ctx context.Context) ([]string, error) {
	return c.symbols.ListActiveCodes(ctx)
}

// StaticCatalog serves a fixed symbol list from configuration. Useful for
// small deployments and for seeding before the symbols table is populated.
type StaticCatalog struct {
	symbols []string
}

// NewStaticCatalog creates a catalog from a literal symbol list. Symbols are
// upper-cased, de-duplicated and sorted so runs see a deterministic order.
// Parameters:
//   - symbols: raw symbol codes, any case, duplicates allowed.
// Returns:
//   - *StaticCatalog: normalized catalog.
func NewStaticCatalog(symbols []string) *StaticCatalog {
	seen := make(map[string]bool, len(symbols))
	normalized := make([]string, 0, len(symbols))
	for _, s := range symbols {
		code := strings.ToUpper(strings.TrimSpace(s))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		normalized = append(normalized, code)
	}
	sort.Strings(normalized)
	return &StaticCatalog{symbols: normalized}
}

// Symbols returns a copy of the configured list.
func (c *StaticCatalog) Symbols(ctx context.Context) ([]string, error) {
	out := make([]string, len(c.symbols))
	copy(out, c.symbols)
	return out, nil
}

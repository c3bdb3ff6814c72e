package service

import (
	"context"
	"reflect"
	"testing"
)

// TestStaticCatalogNormalizes verifies the configured list is upper-cased,
// de-duplicated and sorted so checkpoint snapshots are deterministic.
func TestStaticCatalogNormalizes(t *testing.T) {
	catalog := NewStaticCatalog([]string{" cba", "BHP", "bhp", "", "WES", "Cba"})

	got, err := catalog.Symbols(context.Background())
	if err != nil {
		t.Fatalf("Symbols failed: %v", err)
	}
	want := []string{"BHP", "CBA", "WES"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("symbols = %v, want %v", got, want)
	}
}

// TestStaticCatalogReturnsCopy verifies callers cannot mutate the catalog
// through the returned slice.
func TestStaticCatalogReturnsCopy(t *testing.T) {
	catalog := NewStaticCatalog([]string{"BHP", "CBA"})

	first, _ := catalog.Symbols(context.Background())
	first[0] = "MUTATED"

	second, _ := catalog.Symbols(context.Background())
	if second[0] != "BHP" {
		t.Errorf("catalog mutated through returned slice: %v", second)
	}
}

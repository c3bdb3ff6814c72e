package service

import (
	"testing"

	"github.com/castlemilk/shorted.com.au-sub001/internal/domain"
)

func runWithCheckpoint(id string, cp domain.Checkpoint) domain.SyncRun {
	return domain.SyncRun{ID: id, JobType: "price_sync", Checkpoint: cp}
}

// TestRetryPolicyThreshold verifies the permanent-failure boundary.
func TestRetryPolicyThreshold(t *testing.T) {
	policy := NewRetryPolicy(3)

	for i := 1; i <= 2; i++ {
		if got := policy.RecordFailure("XYZ"); got != i {
			t.Fatalf("failure %d recorded as %d", i, got)
		}
		if policy.PermanentlyFailed("XYZ") {
			t.Fatalf("permanently failed after %d failures, threshold is 3", i)
		}
	}

	if got := policy.RecordFailure("XYZ"); got != 3 {
		t.Fatalf("third failure recorded as %d", got)
	}
	if !policy.PermanentlyFailed("XYZ") {
		t.Error("expected permanent failure at threshold")
	}
}

// TestRetryPolicySuccessResets verifies one success clears any failure history.
func TestRetryPolicySuccessResets(t *testing.T) {
	policy := NewRetryPolicy(3)

	policy.RecordFailure("BHP")
	policy.RecordFailure("BHP")
	policy.RecordSuccess("BHP")

	if got := policy.Count("BHP"); got != 0 {
		t.Errorf("count after success = %d, want 0", got)
	}
	if policy.PermanentlyFailed("BHP") {
		t.Error("entity must not stay permanently failed after a success")
	}
}

// TestRehydrateNewestVerdictWins verifies rehydration walks runs newest first
// and only the most recent verdict per entity counts.
func TestRehydrateNewestVerdictWins(t *testing.T) {
	older := domain.NewCheckpoint([]string{"ANZ", "BHP"}, 500)
	older.MarkFailed("ANZ", 2)
	older.MarkFailed("BHP", 1)

	newer := domain.NewCheckpoint([]string{"ANZ", "BHP"}, 500)
	newer.MarkSuccessful("ANZ")
	newer.MarkFailed("BHP", 2)

	policy := NewRetryPolicy(3)
	policy.Rehydrate([]domain.SyncRun{
		runWithCheckpoint("newer", newer),
		runWithCheckpoint("older", older),
	})

	if got := policy.Count("ANZ"); got != 0 {
		t.Errorf("ANZ count = %d, want 0 (newest verdict is a success)", got)
	}
	if got := policy.Count("BHP"); got != 2 {
		t.Errorf("BHP count = %d, want 2 (newest failed verdict)", got)
	}
}

// TestRehydrateCleanProcessingClearsOldFailures verifies an entity whose most
// recent run processed it without a failure entry, e.g. skipped as up to
// date, does not inherit counts from older runs.
func TestRehydrateCleanProcessingClearsOldFailures(t *testing.T) {
	older := domain.NewCheckpoint([]string{"WOW"}, 500)
	older.MarkFailed("WOW", 2)

	newer := domain.NewCheckpoint([]string{"WOW"}, 500)
	newer.MarkProcessed("WOW")

	policy := NewRetryPolicy(3)
	policy.Rehydrate([]domain.SyncRun{
		runWithCheckpoint("newer", newer),
		runWithCheckpoint("older", older),
	})

	if got := policy.Count("WOW"); got != 0 {
		t.Errorf("WOW count = %d, want 0 after a clean processing verdict", got)
	}
}

// TestRehydrateCarriesPermanentCounts verifies terminal counts re-recorded by
// skip confirmations survive rehydration.
func TestRehydrateCarriesPermanentCounts(t *testing.T) {
	cp := domain.NewCheckpoint([]string{"XYZ"}, 500)
	cp.MarkFailed("XYZ", 3)

	policy := NewRetryPolicy(3)
	policy.Rehydrate([]domain.SyncRun{runWithCheckpoint("run-1", cp)})

	if !policy.PermanentlyFailed("XYZ") {
		t.Error("expected XYZ to stay permanently failed after rehydration")
	}
}

// TestRehydrateResetsPriorState verifies rehydration replaces, not merges,
// any counts tracked before the call.
func TestRehydrateResetsPriorState(t *testing.T) {
	policy := NewRetryPolicy(3)
	policy.RecordFailure("STALE")

	policy.Rehydrate(nil)

	if got := policy.Count("STALE"); got != 0 {
		t.Errorf("count = %d after rehydrating from no runs, want 0", got)
	}
}

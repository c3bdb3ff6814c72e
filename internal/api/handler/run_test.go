package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/castlemilk/shorted.com.au-sub001/internal/domain"
	"github.com/castlemilk/shorted.com.au-sub001/internal/repository"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&domain.Symbol{}, &domain.PricePoint{}, &domain.SyncRun{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newRunRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewRunHandler(repository.NewRunRepository(db))
	r := gin.New()
	r.GET("/api/v1/runs", h.ListRuns)
	r.GET("/api/v1/runs/latest", h.LatestRun)
	r.GET("/api/v1/runs/:id", h.GetRun)
	return r
}

func seedRun(t *testing.T, db *gorm.DB, id, jobType string, status domain.RunStatus, startedAt time.Time, cp domain.Checkpoint) {
	t.Helper()
	run := domain.SyncRun{
		ID:         id,
		JobType:    jobType,
		RunDate:    time.Date(startedAt.Year(), startedAt.Month(), startedAt.Day(), 0, 0, 0, 0, time.UTC),
		Status:     status,
		Checkpoint: cp,
		StartedAt:  startedAt,
	}
	if err := db.Create(&run).Error; err != nil {
		t.Fatalf("seed run %s: %v", id, err)
	}
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestListRunsFilters verifies listing, job type and status filters, and
// input validation.
func TestListRunsFilters(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	cp := domain.NewCheckpoint([]string{"BHP"}, 500)
	seedRun(t, db, "run-1", "price_sync", domain.RunStatusCompleted, base, cp)
	seedRun(t, db, "run-2", "price_sync", domain.RunStatusFailed, base.Add(time.Hour), cp)
	seedRun(t, db, "run-3", "shorts_sync", domain.RunStatusCompleted, base.Add(2*time.Hour), cp)
	router := newRunRouter(t, db)

	tests := []struct {
		name      string
		path      string
		wantCode  int
		wantCount int
	}{
		{"all runs", "/api/v1/runs", http.StatusOK, 3},
		{"job type filter", "/api/v1/runs?job_type=price_sync", http.StatusOK, 2},
		{"status filter", "/api/v1/runs?status=failed", http.StatusOK, 1},
		{"combined filters", "/api/v1/runs?job_type=shorts_sync&status=completed", http.StatusOK, 1},
		{"limit", "/api/v1/runs?limit=1", http.StatusOK, 1},
		{"bad status", "/api/v1/runs?status=exploded", http.StatusBadRequest, 0},
		{"bad limit", "/api/v1/runs?limit=zero", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, router, tt.path)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var body struct {
				Runs  []RunSummary `json:"runs"`
				Count int          `json:"count"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("bad response body: %v", err)
			}
			if body.Count != tt.wantCount || len(body.Runs) != tt.wantCount {
				t.Errorf("count = %d (%d runs), want %d", body.Count, len(body.Runs), tt.wantCount)
			}
		})
	}
}

// TestListRunsOrder verifies runs come back newest first.
func TestListRunsOrder(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	cp := domain.NewCheckpoint(nil, 500)
	seedRun(t, db, "run-old", "price_sync", domain.RunStatusCompleted, base, cp)
	seedRun(t, db, "run-new", "price_sync", domain.RunStatusCompleted, base.Add(time.Hour), cp)
	router := newRunRouter(t, db)

	w := get(t, router, "/api/v1/runs")
	var body struct {
		Runs []RunSummary `json:"runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(body.Runs) != 2 || body.Runs[0].ID != "run-new" {
		t.Errorf("unexpected order: %+v", body.Runs)
	}
}

// TestLatestRun verifies the latest endpoint and its not-found case.
func TestLatestRun(t *testing.T) {
	db := newTestDB(t)
	router := newRunRouter(t, db)

	if w := get(t, router, "/api/v1/runs/latest"); w.Code != http.StatusNotFound {
		t.Errorf("empty store: status = %d, want 404", w.Code)
	}

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	cp := domain.NewCheckpoint([]string{"BHP", "CBA"}, 500)
	cp.MarkSuccessful("BHP")
	cp.MarkFailed("CBA", 2)
	cp.ResumeIndex = 2
	seedRun(t, db, "run-1", "price_sync", domain.RunStatusPartial, base, cp)

	w := get(t, router, "/api/v1/runs/latest?job_type=price_sync")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	var body RunDetail
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if body.ID != "run-1" || body.Status != string(domain.RunStatusPartial) {
		t.Errorf("unexpected run: %+v", body)
	}
	if body.Successful != 1 || body.Failed != 1 || body.ResumeIndex != 2 {
		t.Errorf("checkpoint counts wrong: %+v", body)
	}
	if body.FailedEntities["CBA"] != 2 {
		t.Errorf("failed_entities = %v, want CBA:2", body.FailedEntities)
	}
}

// TestGetRun verifies run detail lookup by ID.
func TestGetRun(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	cp := domain.NewCheckpoint([]string{"BHP"}, 500)
	cp.MarkFailed("BHP", 3)
	seedRun(t, db, "run-1", "price_sync", domain.RunStatusFailed, base, cp)
	router := newRunRouter(t, db)

	w := get(t, router, "/api/v1/runs/run-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body RunDetail
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if body.ID != "run-1" || body.FailedEntities["BHP"] != 3 {
		t.Errorf("unexpected detail: %+v", body)
	}

	if w := get(t, router, "/api/v1/runs/missing"); w.Code != http.StatusNotFound {
		t.Errorf("missing run: status = %d, want 404", w.Code)
	}
}

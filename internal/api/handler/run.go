package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/castlemilk/shorted.com.au-sub001/internal/domain"
	"github.com/castlemilk/shorted.com.au-sub001/internal/repository"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// RunHandler serves sync run status endpoints.
type RunHandler struct {
	runs *repository.RunRepository
}

// NewRunHandler creates a new run handler.
// Parameters:
//   - runs: run repository.
// Returns:
//   - *RunHandler: initialized handler.
func NewRunHandler(runs *repository.RunRepository) *RunHandler {
	return &RunHandler{runs: runs}
}

// RunSummary is the list-view shape of a sync run: lifecycle fields plus
// checkpoint counts, without the full catalog snapshot.
type RunSummary struct {
	ID            string  `json:"id"`
	JobType       string  `json:"job_type"`
	RunDate       string  `json:"run_date"`
	Status        string  `json:"status"`
	Error         string  `json:"error,omitempty"`
	StartedAt     string  `json:"started_at"`
	CompletedAt   *string `json:"completed_at,omitempty"`
	EntitiesTotal int     `json:"entities_total"`
	Processed     int     `json:"entities_processed"`
	Successful    int     `json:"entities_successful"`
	Failed        int     `json:"entities_failed"`
	BatchSize     int     `json:"batch_size"`
	ResumeIndex   int     `json:"resume_index"`
}

// RunDetail extends RunSummary with per-entity failure counts.
type RunDetail struct {
	RunSummary
	FailedEntities map[string]int `json:"failed_entities,omitempty"`
}

func summarize(run *domain.SyncRun) RunSummary {
	summary := RunSummary{
		ID:            run.ID,
		JobType:       run.JobType,
		RunDate:       run.RunDate.Format("2006-01-02"),
		Status:        string(run.Status),
		Error:         run.Error,
		StartedAt:     run.StartedAt.Format(time.RFC3339),
		EntitiesTotal: run.Checkpoint.EntitiesTotal,
		Processed:     len(run.Checkpoint.EntitiesProcessed),
		Successful:    len(run.Checkpoint.EntitiesSuccessful),
		Failed:        len(run.Checkpoint.EntitiesFailed),
		BatchSize:     run.Checkpoint.BatchSize,
		ResumeIndex:   run.Checkpoint.ResumeIndex,
	}
	if run.CompletedAt != nil {
		completed := run.CompletedAt.Format(time.RFC3339)
		summary.CompletedAt = &completed
	}
	return summary
}

// ListRuns handles GET /api/v1/runs.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultRunsLimit)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	status := domain.RunStatus(c.Query("status"))
	switch status {
	case "", domain.RunStatusRunning, domain.RunStatusPartial, domain.RunStatusCompleted, domain.RunStatusFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + string(status)})
		return
	}

	runs, err := h.runs.List(c.Request.Context(), c.Query("job_type"), status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list runs: " + err.Error()})
		return
	}

	summaries := make([]RunSummary, 0, len(runs))
	for i := range runs {
		summaries = append(summaries, summarize(&runs[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"runs":  summaries,
		"count": len(summaries),
	})
}

// LatestRun handles GET /api/v1/runs/latest.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RunHandler) LatestRun(c *gin.Context) {
	run, err := h.runs.Latest(c.Request.Context(), c.Query("job_type"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No runs recorded yet"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load latest run: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, RunDetail{
		RunSummary:     summarize(run),
		FailedEntities: run.Checkpoint.EntitiesFailed,
	})
}

// GetRun handles GET /api/v1/runs/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RunHandler) GetRun(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Run ID is required"})
		return
	}

	run, err := h.runs.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load run: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, RunDetail{
		RunSummary:     summarize(run),
		FailedEntities: run.Checkpoint.EntitiesFailed,
	})
}

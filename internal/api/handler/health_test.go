package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHealthReportsDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler(newTestDB(t))
	router := gin.New()
	router.GET("/health", h.Health)

	w := get(t, router, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
	if body["database"] != "up" {
		t.Errorf("database field = %q, want up", body["database"])
	}
}

func TestHealthWithoutDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler(nil)
	router := gin.New()
	router.GET("/health", h.Health)

	w := get(t, router, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

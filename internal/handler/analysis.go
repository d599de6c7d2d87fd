package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kube-rca/jvm-analyzer/internal/model"
)

// runLister - db.Postgres (analysis_runs)
type runLister interface {
	ListAnalysisRuns(ctx context.Context, pod string, limit int) ([]model.AnalysisRun, error)
}

type AnalysisHandler struct {
	runs runLister
}

// runs가 nil이면 ledger 비활성화 상태로 항상 빈 목록을 응답한다
func NewAnalysisHandler(runs runLister) *AnalysisHandler {
	return &AnalysisHandler{runs: runs}
}

// ListAnalyses godoc
// @Summary List analysis runs
// @Tags analyses
// @Produce json
// @Param pod query string false "Pod name"
// @Param limit query int false "Max rows (default 50, max 500)"
// @Success 200 {object} model.AnalysisListResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/analyses [get]
func (h *AnalysisHandler) ListAnalyses(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	if h.runs == nil {
		c.JSON(http.StatusOK, model.AnalysisListResponse{Status: "success", Data: []model.AnalysisRun{}})
		return
	}

	runs, err := h.runs.ListAnalysisRuns(c.Request.Context(), c.Query("pod"), limit)
	if err != nil {
		log.Printf("Failed to list analysis runs: %v", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.AnalysisListResponse{Status: "success", Data: runs})
}

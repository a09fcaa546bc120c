package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quantfolio/portfolio-analyzer/internal/analyzer"
	"github.com/quantfolio/portfolio-analyzer/internal/publish"
	"github.com/quantfolio/portfolio-analyzer/internal/store"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/errors"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/logger"
)

// AnalysisRunner is the analyzer surface the API drives.
type AnalysisRunner interface {
	Run(ctx context.Context) (*analyzer.Run, error)
	Stress(ctx context.Context) (map[string]map[string]float64, error)
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	runner AnalysisRunner
	runs   *store.RunStore
	log    *logger.Logger
}

// CreateHandlers creates new API handlers
func CreateHandlers(runner AnalysisRunner, runs *store.RunStore) *Handlers {
	return &Handlers{
		runner: runner,
		runs:   runs,
		log:    logger.GetLogger("api.handlers"),
	}
}

// HealthCheckHandler handles health check requests
func (h *Handlers) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"runs":      h.runs.Len(),
	})
}

// TriggerAnalysisHandler runs the full analysis pipeline and stores the result
func (h *Handlers) TriggerAnalysisHandler(c *gin.Context) {
	run, err := h.runner.Run(c.Request.Context())
	if err != nil {
		h.log.Errorf("Analysis run failed: %v", err)
		c.JSON(statusFromError(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	if err := h.runs.Save(run); err != nil {
		h.log.Errorf("Failed to store run %s: %v", run.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, run)
}

// RunStressTestHandler runs only the stress battery, without storing a run
func (h *Handlers) RunStressTestHandler(c *gin.Context) {
	summaries, err := h.runner.Stress(c.Request.Context())
	if err != nil {
		h.log.Errorf("Stress run failed: %v", err)
		c.JSON(statusFromError(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scenarios": summaries,
	})
}

// GetLatestRunHandler returns the most recent analysis run
func (h *Handlers) GetLatestRunHandler(c *gin.Context) {
	run, err := h.runs.Latest()
	if err != nil {
		c.JSON(statusFromError(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, run)
}

// GetRunHandler returns one analysis run by ID
func (h *Handlers) GetRunHandler(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, run)
}

// GetRunGreeksHandler returns only the Greeks of one run
func (h *Handlers) GetRunGreeksHandler(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, run.Greeks)
}

// GetRunSimulationHandler returns only the simulation result of one run
func (h *Handlers) GetRunSimulationHandler(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, run.Simulation)
}

// GetRunAdviceHandler returns only the advisory report of one run
func (h *Handlers) GetRunAdviceHandler(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, run.Advice)
}

// GetRunScenariosHandler returns the scenario grid and stress summaries of
// one run
func (h *Handlers) GetRunScenariosHandler(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scenarios": run.Scenarios,
		"stress":    run.StressSummaries,
	})
}

// GetRunHedgeHandler returns the delta-hedge suggestions of one run
func (h *Handlers) GetRunHedgeHandler(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hedge_suggestions": run.HedgeSuggestions,
	})
}

func (h *Handlers) lookupRun(c *gin.Context) (*analyzer.Run, bool) {
	runID := c.Param("id")

	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "run ID is required",
		})
		return nil, false
	}

	run, err := h.runs.Get(runID)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{
			"error": err.Error(),
		})
		return nil, false
	}
	return run, true
}

// ListRunsHandler returns summaries of all stored runs, oldest first
func (h *Handlers) ListRunsHandler(c *gin.Context) {
	runs := h.runs.List()

	summaries := make([]publish.RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, publish.SummaryFromRun(run))
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(summaries),
		"runs":  summaries,
	})
}

// statusFromError maps typed application errors to HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.IsType(err, errors.ErrorTypeNotFound):
		return http.StatusNotFound
	case errors.IsType(err, errors.ErrorTypeInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

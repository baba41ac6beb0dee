package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	service "cash-application-engine/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReconciliationHandler struct {
	service *service.ReconciliationService
	logger  *slog.Logger
}

func NewReconciliationHandler(s *service.ReconciliationService, logger *slog.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{service: s, logger: logger.With("component", "http")}
}

// writeError maps service errors to status codes. Anything unrecognised is
// an infrastructure failure.
func (h *ReconciliationHandler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyApproved), errors.Is(err, service.ErrAlreadyMatched):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidConfig):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseID(c *gin.Context, raw, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *ReconciliationHandler) Health(c *gin.Context) {
	if err := h.service.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "connected"})
}

// GetConfig exposes the matching and journal settings. Connection settings
// are not serialised.
func (h *ReconciliationHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Config())
}

func (h *ReconciliationHandler) StartProcessing(c *gin.Context) {
	payload := struct {
		GenerateJournals         *bool `json:"generate_journals"`
		IncludeUnmatchedJournals *bool `json:"include_unmatched_journals"`
	}{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
	}
	generate, includeUnmatched := true, true
	if payload.GenerateJournals != nil {
		generate = *payload.GenerateJournals
	}
	if payload.IncludeUnmatchedJournals != nil {
		includeUnmatched = *payload.IncludeUnmatchedJournals
	}

	summary, err := h.service.RunPipeline(c.Request.Context(), generate, includeUnmatched)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ReconciliationHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	runs, err := h.service.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(runs), "runs": runs})
}

func (h *ReconciliationHandler) GetRun(c *gin.Context) {
	id, ok := parseID(c, c.Param("id"), "run")
	if !ok {
		return
	}
	run, err := h.service.GetRun(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := gin.H{"run": run}
	if phase, live := h.service.Phase(id); live {
		resp["phase"] = phase
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReconciliationHandler) RunMatching(c *gin.Context) {
	summary, err := h.service.RunMatching(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ReconciliationHandler) GenerateJournal(c *gin.Context) {
	includeUnmatched := c.DefaultQuery("include_unmatched", "true") != "false"
	summary, err := h.service.GenerateJournal(c.Request.Context(), includeUnmatched)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

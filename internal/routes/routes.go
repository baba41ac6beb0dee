package routes

import (
	"github.com/gin-gonic/gin"

	handler "cash-application-engine/internal/handlers"
)

func RegisterRoutes(r *gin.Engine, h *handler.ReconciliationHandler) {
	api := r.Group("/api")

	api.GET("/health", h.Health)
	api.GET("/config", h.GetConfig)

	// Record intake
	api.POST("/payments", h.CreatePayments)
	api.GET("/payments", h.ListPayments)
	api.GET("/payments/stats", h.PaymentStats)
	api.POST("/remittances", h.CreateRemittances)

	// Pipeline
	processing := api.Group("/processing")
	processing.POST("/start", h.StartProcessing)
	processing.GET("/runs", h.ListRuns)
	processing.GET("/runs/:id", h.GetRun)

	api.POST("/matching/run", h.RunMatching)
	api.POST("/journal/generate", h.GenerateJournal)

	// Match review
	matches := api.Group("/matches")
	{
		matches.GET("", h.ListMatches)
		matches.GET("/explain", h.ExplainScore)
		matches.POST("/manual", h.CreateManualMatch)
		matches.GET("/:id", h.GetMatch)
		matches.PUT("/:id/approve", h.ApproveMatch)
	}

	journal := api.Group("/journal-entries")
	journal.GET("", h.ListJournalEntries)
	journal.GET("/export", h.ExportJournalEntries)
}

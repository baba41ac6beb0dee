package handler

import (
	"net/http"
	"strconv"

	"cash-application-engine/internal/models"
	"cash-application-engine/internal/repository"

	"github.com/gin-gonic/gin"
)

func (h *ReconciliationHandler) ListMatches(c *gin.Context) {
	filter := repository.MatchFilter{Kind: models.MatchKind(c.Query("kind"))}
	if raw := c.Query("approved"); raw != "" {
		approved, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "approved must be true or false"})
			return
		}
		filter.Approved = &approved
	}

	matches, err := h.service.ListMatches(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(matches), "matches": matches})
}

func (h *ReconciliationHandler) GetMatch(c *gin.Context) {
	id, ok := parseID(c, c.Param("id"), "match")
	if !ok {
		return
	}
	view, err := h.service.GetMatch(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ReconciliationHandler) ApproveMatch(c *gin.Context) {
	id, ok := parseID(c, c.Param("id"), "match")
	if !ok {
		return
	}
	var payload struct {
		ApprovedBy string `json:"approved_by"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	m, err := h.service.ApproveMatch(c.Request.Context(), id, payload.ApprovedBy)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "match approved", "match": m})
}

func (h *ReconciliationHandler) CreateManualMatch(c *gin.Context) {
	var payload struct {
		PaymentID    string `json:"payment_id"`
		RemittanceID string `json:"remittance_id"`
		ApprovedBy   string `json:"approved_by"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	paymentID, ok := parseID(c, payload.PaymentID, "payment")
	if !ok {
		return
	}
	remittanceID, ok := parseID(c, payload.RemittanceID, "remittance")
	if !ok {
		return
	}

	m, err := h.service.CreateManualMatch(c.Request.Context(), paymentID, remittanceID, payload.ApprovedBy)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "manual match created", "match": m})
}

func (h *ReconciliationHandler) ExplainScore(c *gin.Context) {
	paymentID, ok := parseID(c, c.Query("payment_id"), "payment")
	if !ok {
		return
	}
	remittanceID, ok := parseID(c, c.Query("remittance_id"), "remittance")
	if !ok {
		return
	}

	exp, err := h.service.ExplainScore(c.Request.Context(), paymentID, remittanceID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

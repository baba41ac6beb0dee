package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cash-application-engine/internal/export"
	"cash-application-engine/internal/models"
	service "cash-application-engine/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// decodeOneOrMany accepts a JSON object or an array of them.
func decodeOneOrMany[T any](body []byte) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	if body[0] == '[' {
		var many []T
		err := json.Unmarshal(body, &many)
		return many, err
	}
	var one T
	if err := json.Unmarshal(body, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		// dd.mm.yyyy as printed on German bank statements
		d, err = time.Parse("02.01.2006", s)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected yyyy-mm-dd", s)
	}
	return &d, nil
}

type paymentPayload struct {
	BookingDate       string          `json:"booking_date"`
	ValueDate         string          `json:"value_date"`
	Amount            decimal.Decimal `json:"amount"`
	Counterparty      string          `json:"counterparty"`
	CustomerReference string          `json:"customer_reference"`
	Purpose           string          `json:"purpose"`
	BookingText       string          `json:"booking_text"`
	IBAN              string          `json:"iban"`
	BIC               string          `json:"bic"`
	Currency          string          `json:"currency"`
}

func (p paymentPayload) toModel() (*models.Payment, error) {
	booking, err := parseDate(p.BookingDate)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("booking_date is required")
	}
	value, err := parseDate(p.ValueDate)
	if err != nil {
		return nil, err
	}
	return &models.Payment{
		BookingDate:       *booking,
		ValueDate:         value,
		Amount:            p.Amount,
		Counterparty:      strings.TrimSpace(p.Counterparty),
		CustomerReference: strings.TrimSpace(p.CustomerReference),
		Purpose:           strings.TrimSpace(p.Purpose),
		BookingText:       p.BookingText,
		IBAN:              p.IBAN,
		BIC:               p.BIC,
		Currency:          strings.ToUpper(strings.TrimSpace(p.Currency)),
	}, nil
}

func (h *ReconciliationHandler) CreatePayments(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
		return
	}
	payloads, err := decodeOneOrMany[paymentPayload](body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	payments := make([]*models.Payment, 0, len(payloads))
	for i, p := range payloads {
		m, err := p.toModel()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("payment %d: %v", i, err)})
			return
		}
		payments = append(payments, m)
	}

	if err := h.service.CreatePayments(c.Request.Context(), payments); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": len(payments), "payments": payments})
}

type lineItemPayload struct {
	Position         int                 `json:"position"`
	InvoiceNumber    string              `json:"invoice_number"`
	Reference        string              `json:"reference"`
	GrossAmount      decimal.NullDecimal `json:"gross_amount"`
	Discount         decimal.NullDecimal `json:"discount"`
	NetPaymentAmount decimal.NullDecimal `json:"net_payment_amount"`
}

type remittancePayload struct {
	DocumentNumber string              `json:"document_number"`
	SenderName     string              `json:"sender_name"`
	SenderAddress  string              `json:"sender_address"`
	DocumentDate   string              `json:"document_date"`
	GrossAmount    decimal.NullDecimal `json:"gross_amount"`
	Discount       decimal.NullDecimal `json:"discount"`
	NetAmount      decimal.NullDecimal `json:"net_amount"`
	Currency       string              `json:"currency"`
	SourceFile     string              `json:"source_file"`
	LineItems      []lineItemPayload   `json:"line_items"`
}

func (p remittancePayload) toModel() (*models.RemittanceDocument, error) {
	date, err := parseDate(p.DocumentDate)
	if err != nil {
		return nil, err
	}
	if !p.NetAmount.Valid {
		return nil, fmt.Errorf("net_amount is required")
	}
	doc := &models.RemittanceDocument{
		DocumentNumber: strings.TrimSpace(p.DocumentNumber),
		SenderName:     strings.TrimSpace(p.SenderName),
		SenderAddress:  p.SenderAddress,
		DocumentDate:   date,
		GrossAmount:    p.GrossAmount,
		Discount:       p.Discount,
		NetAmount:      p.NetAmount.Decimal,
		Currency:       strings.ToUpper(strings.TrimSpace(p.Currency)),
		SourceFile:     p.SourceFile,
	}
	for i, li := range p.LineItems {
		if !li.NetPaymentAmount.Valid {
			return nil, fmt.Errorf("line item %d: net_payment_amount is required", i+1)
		}
		doc.LineItems = append(doc.LineItems, models.LineItem{
			Position:         li.Position,
			InvoiceNumber:    strings.TrimSpace(li.InvoiceNumber),
			Reference:        strings.TrimSpace(li.Reference),
			GrossAmount:      li.GrossAmount,
			Discount:         li.Discount,
			NetPaymentAmount: li.NetPaymentAmount,
		})
	}
	return doc, nil
}

func (h *ReconciliationHandler) CreateRemittances(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
		return
	}
	payloads, err := decodeOneOrMany[remittancePayload](body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	docs := make([]*models.RemittanceDocument, 0, len(payloads))
	for i, p := range payloads {
		d, err := p.toModel()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("remittance %d: %v", i, err)})
			return
		}
		docs = append(docs, d)
	}

	if err := h.service.CreateRemittances(c.Request.Context(), docs); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": len(docs), "remittances": docs})
}

func (h *ReconciliationHandler) ListPayments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	page, err := h.service.ListPayments(c.Request.Context(), service.PaymentQuery{
		Status: c.Query("status"),
		Cursor: c.Query("cursor"),
		Limit:  limit,
		Search: c.Query("search"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       page.Payments,
		"next_cursor": page.NextCursor,
		"has_more":    page.HasMore,
	})
}

func (h *ReconciliationHandler) PaymentStats(c *gin.Context) {
	stats, err := h.service.PaymentStats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func matchIDQuery(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("match_id")
	if raw == "" {
		return nil, true
	}
	id, ok := parseID(c, raw, "match")
	if !ok {
		return nil, false
	}
	return &id, true
}

func (h *ReconciliationHandler) ListJournalEntries(c *gin.Context) {
	matchID, ok := matchIDQuery(c)
	if !ok {
		return
	}
	list, err := h.service.ListPostings(c.Request.Context(), matchID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ReconciliationHandler) ExportJournalEntries(c *gin.Context) {
	matchID, ok := matchIDQuery(c)
	if !ok {
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", "xlsx"))
	if format != "xlsx" && format != "csv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	list, err := h.service.ListPostings(c.Request.Context(), matchID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if format == "xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = export.WriteXLSX(&buf, list.Entries)
	} else {
		err = export.WriteCSV(&buf, list.Entries)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=journal_entries."+format)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/lendora/servicing-api/internal/models"
	"github.com/lendora/servicing-api/internal/services"
)

type EventHandler struct {
	eventService *services.EventService
}

func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

type recordEventRequest struct {
	EventType     string           `json:"event_type" binding:"required"`
	EffectiveDate string           `json:"effective_date" binding:"required"`
	Amount        *decimal.Decimal `json:"amount"`
	Rate          *decimal.Decimal `json:"rate"`
	PaymentType   string           `json:"payment_type"`
	InterestType  string           `json:"interest_type"`
	Note          string           `json:"note"`
}

func (h *EventHandler) Index(c *gin.Context) {
	loanID, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}
	events, err := h.eventService.FindByLoan(c.Request.Context(), loanID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *EventHandler) Create(c *gin.Context) {
	loanID, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}
	var req recordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	effectiveDate, err := time.Parse(dateLayout, req.EffectiveDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "effective_date must be formatted YYYY-MM-DD"})
		return
	}

	event, err := h.eventService.Record(c.Request.Context(), loanID, services.RecordEventInput{
		EventType:     models.EventType(req.EventType),
		EffectiveDate: effectiveDate,
		Amount:        req.Amount,
		Rate:          req.Rate,
		Metadata: models.EventMetadata{
			PaymentType:  models.PaymentKind(req.PaymentType),
			InterestType: models.InterestType(req.InterestType),
			Note:         req.Note,
		},
	}, actor(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": event})
}

func (h *EventHandler) Approve(c *gin.Context) {
	id, ok := parseUUIDParam(c, "event_id")
	if !ok {
		return
	}
	event, err := h.eventService.Approve(c.Request.Context(), id, actor(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

// Reverse posts a compensating event; the original row is never touched.
func (h *EventHandler) Reverse(c *gin.Context) {
	id, ok := parseUUIDParam(c, "event_id")
	if !ok {
		return
	}

	var req struct {
		EffectiveDate string `json:"effective_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	effectiveDate, err := time.Parse(dateLayout, req.EffectiveDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "effective_date must be formatted YYYY-MM-DD"})
		return
	}

	reversal, err := h.eventService.Reverse(c.Request.Context(), id, effectiveDate, actor(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": reversal})
}

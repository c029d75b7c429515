package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lendora/servicing-api/internal/models"
	"github.com/lendora/servicing-api/internal/services"
)

type PeriodHandler struct {
	periodService *services.PeriodService
	exportService *services.ExportService
}

func NewPeriodHandler(periodService *services.PeriodService, exportService *services.ExportService) *PeriodHandler {
	return &PeriodHandler{periodService: periodService, exportService: exportService}
}

func (h *PeriodHandler) Index(c *gin.Context) {
	loanID, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}
	periods, err := h.periodService.FindByLoan(c.Request.Context(), loanID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"periods": periods})
}

// Generate creates monthly billing periods through the given date.
func (h *PeriodHandler) Generate(c *gin.Context) {
	loanID, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}

	var req struct {
		Through string `json:"through" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	through, err := time.Parse(dateLayout, req.Through)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "through must be formatted YYYY-MM-DD"})
		return
	}

	periods, err := h.periodService.GenerateMonthly(c.Request.Context(), loanID, through, actor(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"periods": periods})
}

// Accrual computes the full accrual report for one period.
func (h *PeriodHandler) Accrual(c *gin.Context) {
	id, ok := parseUUIDParam(c, "period_id")
	if !ok {
		return
	}
	accrual, err := h.periodService.Accrual(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accrual": accrual})
}

// Summary aggregates every period of the loan into portfolio totals.
func (h *PeriodHandler) Summary(c *gin.Context) {
	loanID, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}
	summary, err := h.periodService.Summary(c.Request.Context(), loanID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *PeriodHandler) Submit(c *gin.Context) {
	h.transition(c, h.periodService.Submit)
}

func (h *PeriodHandler) Approve(c *gin.Context) {
	h.transition(c, h.periodService.Approve)
}

func (h *PeriodHandler) Send(c *gin.Context) {
	h.transition(c, h.periodService.Send)
}

func (h *PeriodHandler) Reopen(c *gin.Context) {
	h.transition(c, h.periodService.Reopen)
}

// ExportXLSX streams the period statement workbook.
func (h *PeriodHandler) ExportXLSX(c *gin.Context) {
	id, ok := parseUUIDParam(c, "period_id")
	if !ok {
		return
	}
	data, filename, err := h.exportService.ExportPeriodXLSX(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *PeriodHandler) transition(c *gin.Context, apply func(ctx context.Context, id uuid.UUID, actor, ip string) (*models.Period, error)) {
	id, ok := parseUUIDParam(c, "period_id")
	if !ok {
		return
	}
	period, err := apply(c.Request.Context(), id, actor(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": period})
}

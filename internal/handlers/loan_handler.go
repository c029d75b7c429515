package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/lendora/servicing-api/internal/models"
	"github.com/lendora/servicing-api/internal/services"
)

type LoanHandler struct {
	loanService *services.LoanService
}

func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

type createLoanRequest struct {
	Name              string          `json:"name" binding:"required"`
	BorrowerRef       string          `json:"borrower_ref"`
	StartDate         string          `json:"start_date" binding:"required"`
	TotalCommitment   decimal.Decimal `json:"total_commitment" binding:"required"`
	CommitmentFeeRate decimal.Decimal `json:"commitment_fee_rate"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	InterestType      string          `json:"interest_type"`
	DayCount          string          `json:"day_count"`
	InitialDraw       decimal.Decimal `json:"initial_draw"`
}

func (h *LoanHandler) Index(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 20
	}

	loans, total, err := h.loanService.List(c.Request.Context(), perPage, (page-1)*perPage)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"loans": loans,
		"pagination": gin.H{
			"page":        page,
			"per_page":    perPage,
			"total":       total,
			"total_pages": (total + int64(perPage) - 1) / int64(perPage),
		},
	})
}

func (h *LoanHandler) Show(c *gin.Context) {
	id, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}
	loan, err := h.loanService.FindByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loan": loan})
}

func (h *LoanHandler) Create(c *gin.Context) {
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be formatted YYYY-MM-DD"})
		return
	}

	loan, err := h.loanService.Create(c.Request.Context(), services.CreateLoanInput{
		Name:              req.Name,
		BorrowerRef:       req.BorrowerRef,
		StartDate:         startDate,
		TotalCommitment:   req.TotalCommitment,
		CommitmentFeeRate: req.CommitmentFeeRate,
		InterestRate:      req.InterestRate,
		InterestType:      models.InterestType(req.InterestType),
		DayCount:          models.DayCount(req.DayCount),
		InitialDraw:       req.InitialDraw,
	}, actor(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"loan": loan})
}

// State replays the loan's approved events and returns the derived
// position as of the given date (today when omitted).
func (h *LoanHandler) State(c *gin.Context) {
	id, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}
	asOf, err := parseDateParam(c, "as_of")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	state, err := h.loanService.StateAt(c.Request.Context(), id, asOf)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *LoanHandler) Deactivate(c *gin.Context) {
	id, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}
	if err := h.loanService.Deactivate(c.Request.Context(), id, actor(c), c.ClientIP()); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "loan deactivated"})
}

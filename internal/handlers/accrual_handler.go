package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lendora/servicing-api/internal/services"
)

type AccrualHandler struct {
	accrualService *services.AccrualService
	exportService  *services.ExportService
}

func NewAccrualHandler(accrualService *services.AccrualService, exportService *services.ExportService) *AccrualHandler {
	return &AccrualHandler{accrualService: accrualService, exportService: exportService}
}

type runAccrualRequest struct {
	Date string `json:"date"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Run launches a batch accrual run. A bare date runs a single day; a
// from/to pair runs an inclusive range.
func (h *AccrualHandler) Run(c *gin.Context) {
	var req runAccrualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch {
	case req.Date != "":
		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be formatted YYYY-MM-DD"})
			return
		}
		run, err := h.accrualService.RunForDate(c.Request.Context(), date)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"run": run})

	case req.From != "" && req.To != "":
		from, err := time.Parse(dateLayout, req.From)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be formatted YYYY-MM-DD"})
			return
		}
		to, err := time.Parse(dateLayout, req.To)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be formatted YYYY-MM-DD"})
			return
		}
		run, err := h.accrualService.RunForRange(c.Request.Context(), from, to)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"run": run})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "provide date, or from and to"})
	}
}

// Backfill recomputes history for every active loan through a date.
func (h *AccrualHandler) Backfill(c *gin.Context) {
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

	run, err := h.accrualService.Backfill(c.Request.Context(), through)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"run": run})
}

// Entries lists a loan's persisted daily accrual rows.
func (h *AccrualHandler) Entries(c *gin.Context) {
	loanID, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}
	from, to, ok := h.entryRange(c)
	if !ok {
		return
	}

	entries, err := h.accrualService.Entries(c.Request.Context(), loanID, from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// EntriesCSV streams the same rows as a CSV download.
func (h *AccrualHandler) EntriesCSV(c *gin.Context) {
	loanID, ok := parseUUIDParam(c, "loan_id")
	if !ok {
		return
	}
	from, to, ok := h.entryRange(c)
	if !ok {
		return
	}

	data, filename, err := h.exportService.ExportEntriesCSV(c.Request.Context(), loanID, from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", data)
}

func (h *AccrualHandler) ShowRun(c *gin.Context) {
	id, ok := parseUUIDParam(c, "run_id")
	if !ok {
		return
	}
	run, err := h.accrualService.RunByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job run not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (h *AccrualHandler) Runs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.accrualService.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *AccrualHandler) entryRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := parseDateParam(c, "from")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return time.Time{}, time.Time{}, false
	}
	to, err := parseDateParam(c, "to")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return time.Time{}, time.Time{}, false
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	return from, to, true
}

package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/lendora/servicing-api/internal/engine"
)

type ExportService struct {
	periodSvc  *PeriodService
	accrualSvc *AccrualService
	loanSvc    *LoanService
}

func NewExportService(periodSvc *PeriodService, accrualSvc *AccrualService, loanSvc *LoanService) *ExportService {
	return &ExportService{periodSvc: periodSvc, accrualSvc: accrualSvc, loanSvc: loanSvc}
}

// ExportEntriesCSV dumps a loan's persisted daily accrual rows for a date
// range.
func (s *ExportService) ExportEntriesCSV(ctx context.Context, loanID uuid.UUID, from, to time.Time) ([]byte, string, error) {
	loan, err := s.loanSvc.FindByID(ctx, loanID)
	if err != nil {
		return nil, "", err
	}
	entries, err := s.accrualSvc.Entries(ctx, loanID, from, to)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	// Header
	_ = writer.Write([]string{"Daily Accrual Report", loan.Name, time.Now().Format("2006-01-02 15:04")})
	_ = writer.Write([]string{""})
	_ = writer.Write([]string{"Date", "Principal", "Rate", "Commitment", "Undrawn", "Daily Interest", "Daily Fee", "Interest Type"})

	for _, e := range entries {
		_ = writer.Write([]string{
			e.EntryDate.Format("2006-01-02"),
			e.Principal.StringFixed(2),
			e.Rate.String(),
			e.TotalCommitment.StringFixed(2),
			e.Undrawn.StringFixed(2),
			e.DailyInterest.StringFixed(2),
			e.DailyFee.StringFixed(2),
			string(e.InterestType),
		})
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("accrual_entries_%s.csv", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ExportPeriodXLSX renders one period's accrual statement as a workbook:
// a summary block, the interest segments, and the fee segments.
func (s *ExportService) ExportPeriodXLSX(ctx context.Context, periodID uuid.UUID) ([]byte, string, error) {
	accrual, err := s.periodSvc.Accrual(ctx, periodID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Period Accrual"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	_ = f.SetCellValue(sheet, "A1", "Period Accrual Statement")
	_ = f.SetCellStyle(sheet, "A1", "A1", headerStyle)
	_ = f.SetCellValue(sheet, "A2", fmt.Sprintf("%s to %s",
		accrual.PeriodStart.Format("2006-01-02"),
		accrual.PeriodEnd.Format("2006-01-02")))

	closingLabel := "Closing Principal"
	if accrual.ClosingProjected {
		closingLabel = "Closing Principal (projected)"
	}

	rows := [][2]interface{}{
		{"Opening Principal", accrual.Opening.OutstandingPrincipal.StringFixed(2)},
		{closingLabel, accrual.ClosingPrincipal.StringFixed(2)},
		{"Drawn", accrual.Drawn.StringFixed(2)},
		{"Repaid", accrual.Repaid.StringFixed(2)},
		{"PIK Capitalized", accrual.PIKCapitalized.StringFixed(2)},
		{"Fees Invoiced", accrual.FeesInvoiced.StringFixed(2)},
		{"Interest Accrued", accrual.InterestAccrued.StringFixed(2)},
		{"Cash Interest", accrual.CashInterestAccrued.StringFixed(2)},
		{"PIK Interest", accrual.PIKInterestAccrued.StringFixed(2)},
		{"Commitment Fee", accrual.CommitmentFeeAccrued.StringFixed(2)},
		{"Total Due", accrual.TotalDue.StringFixed(2)},
	}
	_ = f.SetCellValue(sheet, "A4", "Summary")
	for i, row := range rows {
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", 5+i), row[0])
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", 5+i), row[1])
	}

	base := 5 + len(rows) + 1
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", base), "Interest Segments")
	base++
	for i, h := range []string{"From", "To", "Days", "Principal", "Rate", "Type", "Interest"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, base)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for _, seg := range accrual.Segments {
		base++
		s.writeSegmentRow(f, sheet, base, seg)
	}

	base += 2
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", base), "Fee Segments")
	base++
	for i, h := range []string{"From", "To", "Days", "Undrawn", "Rate", "Fee"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, base)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for _, seg := range accrual.FeeSegments {
		base++
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", base), seg.Start.Format("2006-01-02"))
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", base), seg.End.Format("2006-01-02"))
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", base), seg.Days)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", base), seg.Undrawn.StringFixed(2))
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", base), seg.FeeRate.String())
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", base), seg.Fee.StringFixed(2))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("period_accrual_%s.xlsx", accrual.PeriodEnd.Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

func (s *ExportService) writeSegmentRow(f *excelize.File, sheet string, row int, seg engine.InterestSegment) {
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), seg.Start.Format("2006-01-02"))
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), seg.End.Format("2006-01-02"))
	_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), seg.Days)
	_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), seg.Principal.StringFixed(2))
	_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), seg.Rate.String())
	_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), string(seg.InterestType))
	_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), seg.Interest.StringFixed(2))
}

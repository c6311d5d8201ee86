package leave

import (
	"fmt"
	"io"
	"strings"

	"github.com/frahmantamala/employee-management/internal/core/common/validation"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const exportSheet = "Leave Requests"

var exportColumns = []string{
	"ID", "Requester", "Leave Type", "Start Date", "End Date",
	"Reason", "Details", "Status", "Reviewed By", "Reviewed At", "Submitted At",
}

// title builds a fresh Caser on every call; a Caser keeps state and must not
// be shared between goroutines.
func title(s string) string {
	return cases.Title(language.English).String(s)
}

// TypeLabel renders a leave type for people, e.g. "late-arrival" -> "Late Arrival".
func TypeLabel(t Type) string {
	return title(strings.ReplaceAll(string(t), "-", " "))
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// WriteWorkbook renders rows as a single-sheet xlsx document.
func WriteWorkbook(w io.Writer, rows []*LeaveRequest) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(exportColumns))
	for i, c := range exportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportColumns))
	if err := f.SetCellStyle(exportSheet, "A1", lastCol+"1", bold); err != nil {
		return err
	}

	for i, l := range rows {
		requester := l.RequesterID
		if l.RequesterName != nil {
			requester = *l.RequesterName
		}
		reviewedAt := ""
		if l.ReviewedAt != nil {
			reviewedAt = l.ReviewedAt.Format("2006-01-02 15:04")
		}

		record := []interface{}{
			l.ID,
			requester,
			TypeLabel(l.LeaveType),
			l.StartDate.Format(validation.DateLayout),
			l.EndDate.Format(validation.DateLayout),
			optional(l.Reason),
			optional(l.ExtraInfo),
			title(string(l.Status)),
			optional(l.ReviewedBy),
			reviewedAt,
			l.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(exportSheet, cell, &record); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(exportSheet, "A", lastCol, 18); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

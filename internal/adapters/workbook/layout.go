package workbook

import (
	"github.com/xuri/excelize/v2"

	"github.com/okian/prodplan/internal/domain/week"
)

// Input sheet layout. Rows and columns are 1-based as in the spreadsheet.
const (
	titleRow         = 1
	capacityHeadRow  = 2
	regularHoursRow  = 3
	overtimeHoursRow = 4
	productHeadRow   = 7
	firstProductRow  = 8

	nameCol         = 1 // A
	rateCol         = 2 // B
	firstDemandCol  = 3 // C..H
	regularCostCol  = 9 // I
	overtimeCostCol = 10
	firstHoursCol   = 2 // B..G
)

// Output sheet names.
const (
	ScheduleSheet = "Schedule"
	DetailSheet   = "Detail"
	SummarySheet  = "Summary"
)

// cellName returns the A1 reference for col and row. Both are positive
// constants or loop indices here, so the conversion cannot fail.
func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// dayTitles returns the working day titles in order.
func dayTitles() []any {
	days := week.WorkingDays()
	out := make([]any, len(days))
	for i, d := range days {
		out[i] = d.Title()
	}
	return out
}

package workbook

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/okian/prodplan/internal/domain/model"
	"github.com/okian/prodplan/internal/domain/week"
)

// WriteFile writes the schedule workbook for out to path.
func WriteFile(path string, out *model.Output) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	if err := Write(f, out); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Write renders out as an xlsx workbook with three sheets:
// Schedule (units produced per product and day), Detail (regular, overtime,
// demand and excess per product and day) and Summary (overtime flags and
// total cost).
func Write(w io.Writer, out *model.Output) error {
	if out == nil {
		return ErrNoOutput
	}

	b, err := newBook(ScheduleSheet)
	if err != nil {
		return err
	}
	defer b.f.Close()

	days := week.WorkingDays()

	header := append([]any{"Product"}, dayTitles()...)
	rows := make([][]any, 0, len(out.Products))
	for _, p := range out.Products {
		row := []any{p.Name}
		for _, d := range days {
			row = append(row, p.Produced[d])
		}
		rows = append(rows, row)
	}
	if err := b.table(ScheduleSheet, header, rows); err != nil {
		return err
	}

	rows = rows[:0]
	for _, p := range out.Products {
		for _, d := range days {
			rows = append(rows, []any{p.Name, d.Title(), p.Regular[d], p.Overtime[d], p.Produced[d], p.Demand[d], p.Excess[d]})
		}
	}
	header = []any{"Product", "Day", "Regular", "Overtime", "Produced", "Demand", "Excess"}
	if err := b.table(DetailSheet, header, rows); err != nil {
		return err
	}

	rows = rows[:0]
	for _, d := range days {
		used := "no"
		if out.OvertimeUsed[d] {
			used = "yes"
		}
		rows = append(rows, []any{d.Title(), used})
	}
	rows = append(rows, []any{}, []any{"Total cost", out.TotalCost}, []any{"Status", out.Status})
	if err := b.table(SummarySheet, []any{"Day", "Overtime used"}, rows); err != nil {
		return err
	}

	if err := b.f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteInput renders in in the input layout Read understands.
func WriteInput(w io.Writer, in model.Input) error {
	const sheet = "Input"
	b, err := newBook(sheet)
	if err != nil {
		return err
	}
	defer b.f.Close()

	days := week.WorkingDays()
	hours := func(label string, m map[week.Day]int) []any {
		row := []any{label}
		for _, d := range days {
			row = append(row, m[d])
		}
		return row
	}

	if err := b.row(sheet, titleRow, []any{"Weekly production plan"}, true); err != nil {
		return err
	}
	if err := b.row(sheet, capacityHeadRow, append([]any{"Hours"}, dayTitles()...), true); err != nil {
		return err
	}
	if err := b.row(sheet, regularHoursRow, hours("Regular", in.Capacity.RegularHours), false); err != nil {
		return err
	}
	if err := b.row(sheet, overtimeHoursRow, hours("Overtime", in.Capacity.OvertimeHours), false); err != nil {
		return err
	}

	header := []any{"Product", "Rate"}
	for _, d := range days {
		header = append(header, d.Title())
	}
	header = append(header, "Regular cost", "Overtime cost")
	if err := b.row(sheet, productHeadRow, header, true); err != nil {
		return err
	}
	for i, p := range in.Products {
		row := []any{p.Name, p.ProductionRate}
		for _, d := range days {
			row = append(row, p.Demand[d])
		}
		row = append(row, p.RegularUnitCost, p.OvertimeUnitCost)
		if err := b.row(sheet, firstProductRow+i, row, false); err != nil {
			return err
		}
	}

	if err := b.f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type book struct {
	f    *excelize.File
	bold int
}

// newBook creates a workbook whose default sheet is renamed to first.
func newBook(first string) (*book, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), first); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create style: %w", err)
	}
	return &book{f: f, bold: bold}, nil
}

// table writes a bold header on row 1 and rows below it, creating the sheet
// when needed.
func (b *book) table(sheet string, header []any, rows [][]any) error {
	if idx, _ := b.f.GetSheetIndex(sheet); idx < 0 {
		if _, err := b.f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %q: %w", sheet, err)
		}
	}
	if err := b.row(sheet, 1, header, true); err != nil {
		return err
	}
	for i, r := range rows {
		if err := b.row(sheet, i+2, r, false); err != nil {
			return err
		}
	}
	return nil
}

func (b *book) row(sheet string, n int, values []any, bold bool) error {
	if len(values) == 0 {
		return nil
	}
	start := cellName(1, n)
	if err := b.f.SetSheetRow(sheet, start, &values); err != nil {
		return fmt.Errorf("write %s!%s: %w", sheet, start, err)
	}
	if bold {
		if err := b.f.SetCellStyle(sheet, start, cellName(len(values), n), b.bold); err != nil {
			return fmt.Errorf("style %s!%s: %w", sheet, start, err)
		}
	}
	return nil
}

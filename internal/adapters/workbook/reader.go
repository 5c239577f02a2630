// Package workbook reads planning inputs from and writes schedules to xlsx
// workbooks.
//
// Input layout (first sheet):
//
//	row 3  B..G  regular hours, Monday..Saturday
//	row 4  B..G  overtime hours, Monday..Saturday
//	row 8+ A     product name (a blank name ends the list)
//	       B     production rate, units per hour
//	       C..H  demand, Monday..Saturday
//	       I     regular unit cost
//	       J     overtime unit cost
//
// Blank numeric cells count as zero.
package workbook

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/okian/prodplan/internal/domain/model"
	"github.com/okian/prodplan/internal/domain/week"
)

// ReadFile reads a planning input from the workbook at path.
func ReadFile(path string) (model.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Input{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read reads a planning input from an xlsx stream.
func Read(r io.Reader) (model.Input, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return model.Input{}, fmt.Errorf("read workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return model.Input{}, ErrNoSheet
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return model.Input{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	s := sheetReader{name: sheet, rows: rows}

	in := model.Input{
		Capacity: model.WeeklyCapacity{
			RegularHours:  map[week.Day]int{},
			OvertimeHours: map[week.Day]int{},
		},
	}
	for i, d := range week.WorkingDays() {
		if in.Capacity.RegularHours[d], err = s.int(regularHoursRow, firstHoursCol+i); err != nil {
			return model.Input{}, err
		}
		if in.Capacity.OvertimeHours[d], err = s.int(overtimeHoursRow, firstHoursCol+i); err != nil {
			return model.Input{}, err
		}
	}

	for row := firstProductRow; ; row++ {
		name := strings.TrimSpace(s.raw(row, nameCol))
		if name == "" {
			break
		}
		p, err := s.product(row, name)
		if err != nil {
			return model.Input{}, err
		}
		in.Products = append(in.Products, p)
	}
	if len(in.Products) == 0 {
		return model.Input{}, fmt.Errorf("%w: sheet %q has no name in %s", ErrNoProducts, sheet, cellName(nameCol, firstProductRow))
	}
	return in, nil
}

type sheetReader struct {
	name string
	rows [][]string
}

func (s sheetReader) product(row int, name string) (model.Product, error) {
	p := model.Product{Name: name, Demand: make(map[week.Day]int, 6)}
	var err error
	if p.ProductionRate, err = s.float(row, rateCol); err != nil {
		return p, err
	}
	for i, d := range week.WorkingDays() {
		if p.Demand[d], err = s.int(row, firstDemandCol+i); err != nil {
			return p, err
		}
	}
	if p.RegularUnitCost, err = s.float(row, regularCostCol); err != nil {
		return p, err
	}
	if p.OvertimeUnitCost, err = s.float(row, overtimeCostCol); err != nil {
		return p, err
	}
	return p, nil
}

// raw returns the cell text at 1-based row and col, or "" past the data.
func (s sheetReader) raw(row, col int) string {
	if row-1 >= len(s.rows) || col-1 >= len(s.rows[row-1]) {
		return ""
	}
	return s.rows[row-1][col-1]
}

func (s sheetReader) float(row, col int) (float64, error) {
	v := strings.TrimSpace(s.raw(row, col))
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, s.cellError(row, col, v, "not a number")
	}
	return f, nil
}

// int parses a whole-number cell. Spreadsheets store numbers as floats, so
// "10" and "10.0" both read as 10.
func (s sheetReader) int(row, col int) (int, error) {
	f, err := s.float(row, col)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, s.cellError(row, col, s.raw(row, col), "not a whole number")
	}
	return int(f), nil
}

func (s sheetReader) cellError(row, col int, v, msg string) error {
	return fmt.Errorf("%w %s!%s: %q is %s", ErrCell, s.name, cellName(col, row), v, msg)
}

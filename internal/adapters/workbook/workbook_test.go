package workbook_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"

	"github.com/okian/prodplan/internal/adapters/workbook"
	"github.com/okian/prodplan/internal/domain/model"
	"github.com/okian/prodplan/internal/domain/week"
)

func days(vals ...int) map[week.Day]int {
	m := map[week.Day]int{}
	for i, d := range week.WorkingDays() {
		m[d] = vals[i]
	}
	return m
}

func sampleInput() model.Input {
	return model.Input{
		Products: []model.Product{
			{Name: "Bolt", ProductionRate: 2.5, Demand: days(10, 0, 5, 5, 20, 0), RegularUnitCost: 1, OvertimeUnitCost: 1.5},
			{Name: "Nut", ProductionRate: 4, Demand: days(8, 8, 8, 8, 8, 8), RegularUnitCost: 0.5, OvertimeUnitCost: 0.75},
		},
		Capacity: model.WeeklyCapacity{
			RegularHours:  days(8, 8, 8, 8, 8, 4),
			OvertimeHours: days(2, 2, 2, 2, 2, 0),
		},
	}
}

// sheetWith returns a workbook in the input layout with extra cells applied.
func sheetWith(cells map[string]any) *bytes.Buffer {
	var buf bytes.Buffer
	So(workbook.WriteInput(&buf, sampleInput()), ShouldBeNil)
	if len(cells) == 0 {
		return &buf
	}
	f, err := excelize.OpenReader(&buf)
	So(err, ShouldBeNil)
	defer f.Close()
	for cell, v := range cells {
		So(f.SetCellValue("Input", cell, v), ShouldBeNil)
	}
	var out bytes.Buffer
	So(f.Write(&out), ShouldBeNil)
	return &out
}

func TestRead(t *testing.T) {
	Convey("Given a workbook in the input layout", t, func() {
		buf := sheetWith(nil)

		Convey("When it is read", func() {
			in, err := workbook.Read(buf)
			So(err, ShouldBeNil)

			Convey("Then capacity is taken from rows 3 and 4", func() {
				So(in.Capacity.RegularHours, ShouldResemble, days(8, 8, 8, 8, 8, 4))
				So(in.Capacity.OvertimeHours, ShouldResemble, days(2, 2, 2, 2, 2, 0))
				_, hasSunday := in.Capacity.RegularHours[week.Sunday]
				So(hasSunday, ShouldBeFalse)
			})

			Convey("Then every product row is read", func() {
				So(in.Products, ShouldResemble, sampleInput().Products)
			})
		})
	})

	Convey("Given a blank name in the product list", t, func() {
		buf := sheetWith(map[string]any{"A9": ""})

		Convey("Then the list ends there", func() {
			in, err := workbook.Read(buf)
			So(err, ShouldBeNil)
			So(len(in.Products), ShouldEqual, 1)
			So(in.Products[0].Name, ShouldEqual, "Bolt")
		})
	})

	Convey("Given blank numeric cells", t, func() {
		buf := sheetWith(map[string]any{"E8": "", "F4": ""})

		Convey("Then they read as zero", func() {
			in, err := workbook.Read(buf)
			So(err, ShouldBeNil)
			So(in.Products[0].Demand[week.Wednesday], ShouldEqual, 0)
			So(in.Capacity.OvertimeHours[week.Friday], ShouldEqual, 0)
		})
	})

	Convey("Given a malformed cell", t, func() {
		cases := map[string]any{
			"B8": "fast",
			"E9": 7.5,
			"C3": "eight",
		}
		for cell, v := range cases {
			buf := sheetWith(map[string]any{cell: v})
			_, err := workbook.Read(buf)

			So(errors.Is(err, workbook.ErrCell), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "Input!"+cell)
		}
	})

	Convey("Given a workbook without products", t, func() {
		buf := sheetWith(map[string]any{"A8": ""})

		Convey("Then reading fails", func() {
			_, err := workbook.Read(buf)
			So(errors.Is(err, workbook.ErrNoProducts), ShouldBeTrue)
		})
	})

	Convey("Given bytes that are not a workbook", t, func() {
		_, err := workbook.Read(bytes.NewBufferString("not a zip"))
		So(err, ShouldNotBeNil)
	})

	Convey("Given a missing file", t, func() {
		_, err := workbook.ReadFile(filepath.Join(t.TempDir(), "missing.xlsx"))
		So(err, ShouldNotBeNil)
	})
}

func sampleOutput() *model.Output {
	in := sampleInput()
	return &model.Output{
		Products: []model.ProductSchedule{
			{
				Product:  in.Products[0],
				Regular:  days(15, 0, 5, 5, 18, 0),
				Overtime: days(0, 0, 0, 0, 2, 0),
				Produced: days(15, 0, 5, 5, 20, 0),
				Excess:   days(5, 0, 0, 0, 0, 0),
			},
			{
				Product:  in.Products[1],
				Regular:  days(8, 8, 8, 8, 8, 8),
				Overtime: days(0, 0, 0, 0, 0, 0),
				Produced: days(8, 8, 8, 8, 8, 8),
				Excess:   days(0, 0, 0, 0, 0, 0),
			},
		},
		OvertimeUsed: map[week.Day]bool{week.Friday: true},
		TotalCost:    63,
		Status:       "optimal",
	}
}

func TestWrite(t *testing.T) {
	Convey("Given a solved schedule", t, func() {
		path := filepath.Join(t.TempDir(), "output.xlsx")
		So(workbook.WriteFile(path, sampleOutput()), ShouldBeNil)

		f, err := excelize.OpenFile(path)
		So(err, ShouldBeNil)
		defer f.Close()

		cell := func(sheet, ref string) string {
			v, err := f.GetCellValue(sheet, ref)
			So(err, ShouldBeNil)
			return v
		}

		Convey("Then the workbook has the three sheets", func() {
			So(f.GetSheetList(), ShouldResemble, []string{workbook.ScheduleSheet, workbook.DetailSheet, workbook.SummarySheet})
		})

		Convey("Then the schedule sheet holds production per day", func() {
			So(cell(workbook.ScheduleSheet, "A1"), ShouldEqual, "Product")
			So(cell(workbook.ScheduleSheet, "B1"), ShouldEqual, "Monday")
			So(cell(workbook.ScheduleSheet, "G1"), ShouldEqual, "Saturday")
			So(cell(workbook.ScheduleSheet, "A2"), ShouldEqual, "Bolt")
			So(cell(workbook.ScheduleSheet, "B2"), ShouldEqual, "15")
			So(cell(workbook.ScheduleSheet, "F2"), ShouldEqual, "20")
			So(cell(workbook.ScheduleSheet, "A3"), ShouldEqual, "Nut")

			style, err := f.GetCellStyle(workbook.ScheduleSheet, "A1")
			So(err, ShouldBeNil)
			So(style, ShouldNotEqual, 0)
		})

		Convey("Then the detail sheet splits each product day", func() {
			rows, err := f.GetRows(workbook.DetailSheet)
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 1+2*6)
			So(rows[5], ShouldResemble, []string{"Bolt", "Friday", "18", "2", "20", "20", "0"})
			So(rows[1][6], ShouldEqual, "5")
		})

		Convey("Then the summary sheet flags overtime and the cost", func() {
			So(cell(workbook.SummarySheet, "B2"), ShouldEqual, "no")
			So(cell(workbook.SummarySheet, "B6"), ShouldEqual, "yes")
			So(cell(workbook.SummarySheet, "A9"), ShouldEqual, "Total cost")
			So(cell(workbook.SummarySheet, "B9"), ShouldEqual, "63")
			So(cell(workbook.SummarySheet, "B10"), ShouldEqual, "optimal")
		})
	})

	Convey("Given no schedule", t, func() {
		var buf bytes.Buffer
		So(errors.Is(workbook.Write(&buf, nil), workbook.ErrNoOutput), ShouldBeTrue)
	})
}

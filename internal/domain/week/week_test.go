package week_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/prodplan/internal/domain/week"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDay_Previous(t *testing.T) {
	Convey("Given the days of the week", t, func() {
		Convey("Sunday has no predecessor", func() {
			prev, ok := week.Sunday.Previous()
			So(ok, ShouldBeFalse)
			So(prev, ShouldEqual, week.Sunday)
		})

		Convey("Every other day steps back by one", func() {
			for _, d := range week.All()[1:] {
				prev, ok := d.Previous()
				So(ok, ShouldBeTrue)
				So(int(prev), ShouldEqual, int(d)-1)
			}
		})

		Convey("Out-of-range values never produce an ordinal", func() {
			_, ok := week.Day(42).Previous()
			So(ok, ShouldBeFalse)
		})
	})
}

func TestDay_CreditSource(t *testing.T) {
	Convey("Given the isolated-week credit policy", t, func() {
		Convey("Monday receives no credit", func() {
			_, ok := week.Monday.CreditSource()
			So(ok, ShouldBeFalse)
		})

		Convey("Sunday receives no credit", func() {
			_, ok := week.Sunday.CreditSource()
			So(ok, ShouldBeFalse)
		})

		Convey("Tuesday through Saturday are credited by the previous working day", func() {
			for _, d := range week.WorkingDays()[1:] {
				src, ok := d.CreditSource()
				So(ok, ShouldBeTrue)
				So(src, ShouldEqual, d-1)
				So(src.IsWorking(), ShouldBeTrue)
			}
		})
	})
}

func TestParseDay(t *testing.T) {
	Convey("Given day names", t, func() {
		Convey("Full names and abbreviations parse case-insensitively", func() {
			d, err := week.ParseDay(" Wednesday ")
			So(err, ShouldBeNil)
			So(d, ShouldEqual, week.Wednesday)

			d, err = week.ParseDay("SAT")
			So(err, ShouldBeNil)
			So(d, ShouldEqual, week.Saturday)
		})

		Convey("Unknown names fail with ErrUnknownDay", func() {
			_, err := week.ParseDay("funday")
			So(errors.Is(err, week.ErrUnknownDay), ShouldBeTrue)
		})
	})
}

func TestDay_TextEncoding(t *testing.T) {
	Convey("Given a map keyed by Day", t, func() {
		demand := map[week.Day]int{week.Monday: 10, week.Saturday: 4}

		Convey("It round-trips through JSON with day-name keys", func() {
			data, err := json.Marshal(demand)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `"monday":10`)

			var decoded map[week.Day]int
			So(json.Unmarshal(data, &decoded), ShouldBeNil)
			So(decoded, ShouldResemble, demand)
		})
	})
}

func TestWorkingDays(t *testing.T) {
	Convey("Working days exclude Sunday", t, func() {
		days := week.WorkingDays()
		So(len(days), ShouldEqual, 6)
		for _, d := range days {
			So(d.IsWorking(), ShouldBeTrue)
		}
		So(week.Sunday.IsWorking(), ShouldBeFalse)
		So(week.Monday.Abbrev(), ShouldEqual, "mon")
		So(week.Friday.Title(), ShouldEqual, "Friday")
	})
}

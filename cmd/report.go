package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/okian/prodplan/internal/adapters/solver/simplex"
	"github.com/okian/prodplan/internal/domain/model"
	"github.com/okian/prodplan/internal/domain/schedule"
	"github.com/okian/prodplan/internal/domain/week"
)

// Sprint color functions for the report.
var (
	bold      = color.New(color.Bold).SprintFunc()
	dim       = color.New(color.Faint).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()
	boldGreen = color.New(color.Bold, color.FgGreen).SprintFunc()
	boldRed   = color.New(color.Bold, color.FgRed).SprintFunc()
)

const (
	nameWidth = 16
	dayWidth  = 9
)

// printReport renders the schedule as a product by day table. Cells show
// units produced, with the overtime share in yellow.
func printReport(w io.Writer, out *model.Output, stats simplex.Stats) {
	days := week.WorkingDays()

	fmt.Fprint(w, bold(fmt.Sprintf("%-*s", nameWidth, "Product")))
	for _, d := range days {
		fmt.Fprint(w, bold(fmt.Sprintf("%*s", dayWidth, d.Title()[:3])))
	}
	fmt.Fprintln(w)

	for _, p := range out.Products {
		fmt.Fprintf(w, "%-*s", nameWidth, truncate(p.Name, nameWidth-1))
		for _, d := range days {
			cell := fmt.Sprintf("%*d", dayWidth, p.Produced[d])
			if p.Overtime[d] > 0 {
				cell = yellow(fmt.Sprintf("%*s", dayWidth, fmt.Sprintf("%d(+%d)", p.Regular[d], p.Overtime[d])))
			}
			fmt.Fprint(w, cell)
		}
		fmt.Fprintln(w)

		fmt.Fprint(w, dim(fmt.Sprintf("%-*s", nameWidth, "  carried")))
		for _, d := range days {
			fmt.Fprint(w, dim(fmt.Sprintf("%*d", dayWidth, p.Excess[d])))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%-*s", nameWidth, "Overtime")
	for _, d := range days {
		flag := "-"
		if out.OvertimeUsed[d] {
			flag = "yes"
		}
		fmt.Fprintf(w, "%*s", dayWidth, flag)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total cost: %s  (%s)\n", bold(fmt.Sprintf("%.2f", out.TotalCost)), boldGreen(out.Status))
	search := fmt.Sprintf("%d nodes, %d LP solves, %d incumbents", stats.Nodes, stats.LPSolves, stats.Incumbents)
	if stats.HintUsed {
		search += ", hinted"
	}
	if stats.LimitHit {
		search += ", stopped at limit"
	}
	fmt.Fprintln(w, dim(search+", "+stats.Duration.Round(time.Microsecond).String()))
}

// printFailure reports a scheduling error, naming the product and day when
// the error carries them.
func printFailure(w io.Writer, err error) {
	kind, ok := schedule.KindOf(err)
	label := "error"
	if ok {
		label = kind.String()
	}
	fmt.Fprintf(w, "%s %v\n", boldRed(label+":"), err)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

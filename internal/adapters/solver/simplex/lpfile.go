package simplex

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/okian/prodplan/internal/domain/solver"
)

// WriteLP writes the model in CPLEX LP format so it can be inspected or fed to
// another solver.
func (e *Engine) WriteLP(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if e.direction == solver.Maximize {
		bw.WriteString("Maximize\n obj:")
	} else {
		bw.WriteString("Minimize\n obj:")
	}
	objective := make(solver.Expr, 0, len(e.vars))
	for j, v := range e.vars {
		if v.obj != 0 {
			objective = objective.Plus(v.obj, solver.Var(j))
		}
	}
	e.writeExpr(bw, objective)
	bw.WriteString("\nSubject To\n")

	for i, c := range e.cons {
		name := c.name
		if name == "" {
			name = "c" + strconv.Itoa(i+1)
		}
		fmt.Fprintf(bw, " %s:", name)
		e.writeExpr(bw, c.expr)
		fmt.Fprintf(bw, " %s %s\n", c.rel, formatNum(c.rhs))
	}

	bw.WriteString("Bounds\n")
	for j, v := range e.vars {
		upper := "+inf"
		if !math.IsInf(v.upper, 1) {
			upper = formatNum(v.upper)
		}
		fmt.Fprintf(bw, " %s <= %s <= %s\n", formatNum(v.lower), e.varName(j), upper)
	}

	general := false
	for j, v := range e.vars {
		if !v.integral {
			continue
		}
		if !general {
			bw.WriteString("General\n")
			general = true
		}
		fmt.Fprintf(bw, " %s\n", e.varName(j))
	}
	bw.WriteString("End\n")
	return bw.Flush()
}

func (e *Engine) writeExpr(w *bufio.Writer, expr solver.Expr) {
	if len(expr) == 0 {
		w.WriteString(" 0")
		return
	}
	for i, t := range expr {
		coef := t.Coef
		sign := "+"
		if coef < 0 {
			sign, coef = "-", -coef
		}
		if i == 0 && sign == "+" {
			sign = ""
		}
		if sign != "" {
			w.WriteString(" " + sign)
		}
		if coef != 1 {
			w.WriteString(" " + formatNum(coef))
		}
		w.WriteString(" " + e.varName(int(t.Var)))
	}
}

func (e *Engine) varName(j int) string {
	if name := e.vars[j].name; name != "" {
		return name
	}
	return "x" + strconv.Itoa(j+1)
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
